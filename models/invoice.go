package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/mmsoftwarehouse/salepay_backend/config"
	"bitbucket.org/mmsoftwarehouse/salepay_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Invoice bills a party. Invoices generated from a sale are linked through
// their lines' origin tags, never by a column on the invoice itself.
type Invoice struct {
	ID          int             `gorm:"primary_key" json:"id"`
	BusinessId  string          `gorm:"index;not null" json:"business_id"`
	Number      string          `gorm:"size:255" json:"number"`
	SequenceNo  decimal.Decimal `gorm:"type:decimal(15);default:0" json:"sequence_no"`
	PartyId     int             `gorm:"index;not null" json:"party_id" binding:"required"`
	Party       *Party          `gorm:"foreignKey:PartyId" json:"party"`
	AccountId   int             `gorm:"index;not null" json:"account_id"`
	Date        *time.Time      `json:"date"`
	Description string          `gorm:"size:255" json:"description"`
	State       InvoiceState    `gorm:"type:enum('draft','validated','posted','paid','cancelled');default:draft" json:"state"`
	MoveId      *int            `gorm:"index" json:"move_id"`
	TotalAmount decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_amount"`
	Lines       []InvoiceLine   `gorm:"foreignKey:InvoiceId" json:"lines"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type InvoiceLine struct {
	ID          int             `gorm:"primary_key" json:"id"`
	BusinessId  string          `gorm:"index;not null" json:"business_id"`
	InvoiceId   int             `gorm:"index;not null" json:"invoice_id"`
	Description string          `gorm:"size:255" json:"description"`
	Quantity    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_price"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount"`
	AccountId   int             `gorm:"index;not null" json:"account_id"`
	OriginKind  OriginKind      `gorm:"type:enum('SL','MN');default:MN" json:"origin_kind"`
	OriginId    *int            `gorm:"index" json:"origin_id"`
}

type NewInvoice struct {
	PartyId     int              `json:"party_id" binding:"required"`
	AccountId   int              `json:"account_id"`
	Date        *time.Time       `json:"date"`
	Description string           `json:"description"`
	Lines       []NewInvoiceLine `json:"lines" binding:"required,dive"`
}

type NewInvoiceLine struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	AccountId   int             `json:"account_id" binding:"required"`
}

func (invoice Invoice) GetBusinessId() string {
	return invoice.BusinessId
}

func (invoice Invoice) CheckTransactionLock(ctx context.Context) error {
	if invoice.Date == nil {
		return nil
	}
	return validateTransactionLock(ctx, *invoice.Date, invoice.BusinessId, AccountantTransactionLock)
}

// Posted invoices are accounting facts. Drafts stay editable.
func (invoice *Invoice) BeforeUpdate(tx *gorm.DB) error {
	if invoice.State != InvoiceStatePosted && invoice.State != InvoiceStatePaid {
		return nil
	}
	allowed := map[string]bool{
		"State":     true,
		"UpdatedAt": true,
	}
	if tx == nil || tx.Statement == nil || tx.Statement.Schema == nil {
		return nil
	}
	for _, f := range tx.Statement.Schema.Fields {
		if tx.Statement.Changed(f.Name) && !allowed[f.Name] {
			return errors.New("posted invoices cannot be modified")
		}
	}
	return nil
}

func (input *NewInvoice) validate(ctx context.Context, businessId string) error {
	if err := utils.ValidateResourceId[Party](ctx, businessId, input.PartyId); err != nil {
		return errors.New("party not found")
	}
	if len(input.Lines) == 0 {
		return errors.New("invoice lines are required")
	}
	lineAccountIds := []int{}
	for _, line := range input.Lines {
		lineAccountIds = append(lineAccountIds, line.AccountId)
	}
	if err := utils.ValidateResourcesId[Account](ctx, businessId, utils.UniqueSlice(lineAccountIds)); err != nil {
		return errors.New("account not found")
	}
	if input.Date != nil {
		if err := validateTransactionLock(ctx, *input.Date, businessId, AccountantTransactionLock); err != nil {
			return err
		}
	}
	return nil
}

func CreateInvoice(ctx context.Context, input *NewInvoice) (*Invoice, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if err := input.validate(ctx, businessId); err != nil {
		return nil, err
	}

	accountId := input.AccountId
	if accountId == 0 {
		party, err := GetParty(ctx, input.PartyId)
		if err != nil {
			return nil, err
		}
		db := config.GetDB()
		account, err := party.ReceivableAccount(db.WithContext(ctx))
		if err != nil {
			return nil, err
		}
		accountId = account.ID
	}

	total := decimal.Zero
	lines := []InvoiceLine{}
	for _, line := range input.Lines {
		amount := line.Quantity.Mul(line.UnitPrice)
		total = total.Add(amount)
		lines = append(lines, InvoiceLine{
			BusinessId:  businessId,
			Description: line.Description,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			Amount:      amount,
			AccountId:   line.AccountId,
			OriginKind:  OriginKindManual,
		})
	}

	invoice := Invoice{
		BusinessId:  businessId,
		PartyId:     input.PartyId,
		AccountId:   accountId,
		Date:        input.Date,
		Description: input.Description,
		State:       InvoiceStateDraft,
		TotalAmount: total,
		Lines:       lines,
	}

	// db action
	db := config.GetDB()
	err := db.WithContext(ctx).Create(&invoice).Error
	if err != nil {
		return nil, err
	}

	return &invoice, nil
}

func GetInvoice(ctx context.Context, id int) (*Invoice, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	return utils.FetchModel[Invoice](ctx, businessId, id, "Party", "Lines")
}

func GetInvoices(ctx context.Context, partyId *int, state *InvoiceState) ([]*Invoice, error) {

	db := config.GetDB()
	var results []*Invoice

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId).Preload("Party")
	if partyId != nil && *partyId > 0 {
		dbCtx = dbCtx.Where("party_id = ?", *partyId)
	}
	if state != nil {
		dbCtx = dbCtx.Where("state = ?", *state)
	}
	err := dbCtx.Order("id DESC").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// InvoicesForSale walks the origin tags from the sale's lines to the
// invoices billing them.
func InvoicesForSale(tx *gorm.DB, businessId string, saleId int) ([]*Invoice, error) {

	var invoiceIds []int
	err := tx.Model(&InvoiceLine{}).
		Distinct("invoice_lines.invoice_id").
		Joins("JOIN sale_lines ON sale_lines.id = invoice_lines.origin_id").
		Where("invoice_lines.business_id = ? AND invoice_lines.origin_kind = ? AND sale_lines.sale_id = ?",
			businessId, OriginKindSaleLine, saleId).
		Pluck("invoice_lines.invoice_id", &invoiceIds).Error
	if err != nil {
		return nil, err
	}
	if len(invoiceIds) == 0 {
		return nil, nil
	}
	var invoices []*Invoice
	err = tx.Where("business_id = ?", businessId).
		Preload("Lines").
		Order("id").
		Find(&invoices, invoiceIds).Error
	if err != nil {
		return nil, err
	}
	return invoices, nil
}

// InvoiceWrite carries one invoice id and the draft fields to fix up before
// posting. Batches are applied inside the caller's transaction.
type InvoiceWrite struct {
	InvoiceId int
	Delta     InvoiceDelta
}

type InvoiceDelta struct {
	Date        *time.Time
	Description *string
}

func BatchWriteInvoices(tx *gorm.DB, writes []InvoiceWrite) error {
	for _, write := range writes {
		values := map[string]interface{}{}
		if write.Delta.Date != nil {
			values["date"] = *write.Delta.Date
		}
		if write.Delta.Description != nil {
			values["description"] = *write.Delta.Description
		}
		if len(values) == 0 {
			continue
		}
		if err := tx.Model(&Invoice{}).
			Where("id = ?", write.InvoiceId).
			Updates(values).Error; err != nil {
			return err
		}
	}
	return nil
}

// PostInvoicesTx posts draft invoices inside the caller's transaction.
// Posting numbers the invoice and writes its move: the receivable account is
// debited for the total against the lines' revenue accounts. Invoices
// already past draft are left alone.
func PostInvoicesTx(ctx context.Context, tx *gorm.DB, invoices []*Invoice) error {

	for _, invoice := range invoices {
		if invoice.State != InvoiceStateDraft {
			continue
		}
		if err := invoice.CheckTransactionLock(ctx); err != nil {
			return err
		}
		if invoice.Date == nil {
			return errors.New("invoice date is required for posting")
		}
		if len(invoice.Lines) == 0 {
			return errors.New("invoice has no lines")
		}

		if invoice.Number == "" {
			seqNo, err := utils.GetSequence[Invoice](ctx, invoice.BusinessId)
			if err != nil {
				return err
			}
			invoice.Number = "INV-" + fmt.Sprint(seqNo)
			invoice.SequenceNo = decimal.NewFromInt(seqNo)
		}

		move, err := createInvoiceMove(ctx, tx, invoice)
		if err != nil {
			return err
		}

		err = tx.WithContext(ctx).Model(invoice).Updates(map[string]interface{}{
			"Number":     invoice.Number,
			"SequenceNo": invoice.SequenceNo,
			"MoveId":     move.ID,
			"State":      InvoiceStatePosted,
		}).Error
		if err != nil {
			return err
		}
		invoice.MoveId = &move.ID
		invoice.State = InvoiceStatePosted
		if err := createHistory(tx.WithContext(ctx), "Update", invoice.ID, "invoices", nil, nil,
			"Updated state to posted"); err != nil {
			return err
		}
	}
	return nil
}

func createInvoiceMove(ctx context.Context, tx *gorm.DB, invoice *Invoice) (*AccountMove, error) {

	partyId := invoice.PartyId
	lines := []MoveLine{
		{
			BusinessId: invoice.BusinessId,
			AccountId:  invoice.AccountId,
			PartyId:    &partyId,
			Debit:      invoice.TotalAmount,
			Credit:     decimal.Zero,
		},
	}
	for _, line := range invoice.Lines {
		lines = append(lines, MoveLine{
			BusinessId: invoice.BusinessId,
			AccountId:  line.AccountId,
			Debit:      decimal.Zero,
			Credit:     line.Amount,
		})
	}
	move := AccountMove{
		BusinessId:  invoice.BusinessId,
		Date:        *invoice.Date,
		Description: invoice.Number,
		Lines:       lines,
	}
	if err := tx.WithContext(ctx).Create(&move).Error; err != nil {
		return nil, err
	}
	return &move, nil
}

// LinesToPay returns the invoice's unreconciled receivable move lines.
func (invoice *Invoice) LinesToPay(tx *gorm.DB) ([]MoveLine, error) {
	if invoice.MoveId == nil {
		return nil, nil
	}
	var lines []MoveLine
	err := tx.Where("business_id = ? AND move_id = ? AND account_id = ? AND reconciliation_id IS NULL",
		invoice.BusinessId, *invoice.MoveId, invoice.AccountId).
		Find(&lines).Error
	if err != nil {
		return nil, err
	}
	return lines, nil
}

// MarkInvoicePaidIfSettled flips a posted invoice to paid once every
// receivable line on its move carries a reconciliation.
func MarkInvoicePaidIfSettled(ctx context.Context, tx *gorm.DB, invoice *Invoice) error {
	if invoice.State != InvoiceStatePosted || invoice.MoveId == nil {
		return nil
	}
	var open int64
	err := tx.Model(&MoveLine{}).
		Where("business_id = ? AND move_id = ? AND account_id = ? AND reconciliation_id IS NULL",
			invoice.BusinessId, *invoice.MoveId, invoice.AccountId).
		Count(&open).Error
	if err != nil {
		return err
	}
	if open > 0 {
		return nil
	}
	err = tx.Model(invoice).Update("State", InvoiceStatePaid).Error
	if err != nil {
		return err
	}
	invoice.State = InvoiceStatePaid
	return createHistory(tx.WithContext(ctx), "Update", invoice.ID, "invoices", nil, nil,
		"Updated state to paid")
}
