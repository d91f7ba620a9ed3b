package models

import (
	"time"

	"bitbucket.org/mmsoftwarehouse/salepay_backend/utils"
)

type Identifier interface {
	GetId() int
}

// interface for dataloader result
type Data interface {
	Identifier
	GetDefault(int) Data
}

// key
func (a Account) GetId() int {
	return a.ID
}

func (a Account) GetDefault(id int) Data {
	return Account{
		ID:        id,
		Kind:      AccountKindOther,
		IsActive:  utils.NewFalse(),
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

func (p Party) GetId() int {
	return p.ID
}

func (p Party) GetDefault(id int) Data {
	return Party{
		ID:              id,
		InvoiceGrouping: utils.NewFalse(),
		IsActive:        utils.NewFalse(),
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}
}

func (j StatementJournal) GetId() int {
	return j.ID
}

func (j StatementJournal) GetDefault(id int) Data {
	return StatementJournal{
		ID:        id,
		IsActive:  utils.NewFalse(),
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

func (d SaleDevice) GetId() int {
	return d.ID
}

func (d SaleDevice) GetDefault(id int) Data {
	return SaleDevice{
		ID:        id,
		IsActive:  utils.NewFalse(),
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

func (i Invoice) GetId() int {
	return i.ID
}

func (i Invoice) GetDefault(id int) Data {
	return Invoice{
		ID:        id,
		State:     InvoiceStateDraft,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

func (s Statement) GetId() int {
	return s.ID
}

func (s Statement) GetDefault(id int) Data {
	return Statement{
		ID:        id,
		State:     StatementStateDraft,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

type RelatedData interface {
	GetReferenceId() int
}

func (l SaleLine) GetReferenceId() int {
	return l.SaleId
}

func (l StatementLine) GetReferenceId() int {
	if l.SaleId == nil {
		return 0
	}
	return *l.SaleId
}

func (l InvoiceLine) GetReferenceId() int {
	return l.InvoiceId
}

func (l MoveLine) GetReferenceId() int {
	return l.MoveId
}
