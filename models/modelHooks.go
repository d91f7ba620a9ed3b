package models

import (
	"fmt"

	"gorm.io/gorm"
)

func (s *Sale) AfterCreate(tx *gorm.DB) (err error) {
	total := SaleTotal(s.Lines, int32(s.CurrencyDigits))
	description := describeTotalAmountCreated("Sale", s.Currency, total)
	if err := SaveHistoryCreate(tx, s.ID, s, description); err != nil {
		return err
	}
	return nil
}

func (s *Sale) AfterDelete(tx *gorm.DB) (err error) {
	if err := SaveHistoryDelete(tx, s.ID, s, "Deleted Sale"); err != nil {
		return err
	}
	return nil
}

func (invoice *Invoice) AfterCreate(tx *gorm.DB) (err error) {
	if err := SaveHistoryCreate(tx, invoice.ID, invoice, "Created Invoice"); err != nil {
		return err
	}
	return nil
}

func (line *StatementLine) AfterCreate(tx *gorm.DB) (err error) {
	description := fmt.Sprintf("Payment taken for %v.", line.Amount)
	if err := SaveHistoryCreate(tx, line.ID, line, description); err != nil {
		return err
	}
	return nil
}

func (line *StatementLine) AfterDelete(tx *gorm.DB) (err error) {
	description := fmt.Sprintf("Payment of %v deleted.", line.Amount)
	if err := SaveHistoryDelete(tx, line.ID, line, description); err != nil {
		return err
	}
	return nil
}
