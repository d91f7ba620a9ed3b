package models

import (
	"log"

	"bitbucket.org/mmsoftwarehouse/salepay_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Business{},
		&User{},
		&Account{},
		&Party{},
		&StatementJournal{}, &SaleDevice{},
		&Sale{}, &SaleLine{},
		&Invoice{}, &InvoiceLine{},
		&Statement{}, &StatementLine{},
		&AccountMove{}, &MoveLine{}, &Reconciliation{},
		&History{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
