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

type StatementJournal struct {
	ID         int       `gorm:"primary_key" json:"id"`
	BusinessId string    `gorm:"index;not null" json:"business_id"`
	Name       string    `gorm:"index;size:100;not null" json:"name" binding:"required"`
	Currency   string    `gorm:"size:3;not null;default:MMK" json:"currency"`
	AccountId  int       `gorm:"index;not null" json:"account_id" binding:"required"`
	IsActive   *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewStatementJournal struct {
	Name      string `json:"name" binding:"required"`
	Currency  string `json:"currency"`
	AccountId int    `json:"account_id" binding:"required"`
}

// Statement is a cash session for one journal. Payments live on draft
// statements only; posting writes the account moves.
type Statement struct {
	ID         int               `gorm:"primary_key" json:"id"`
	BusinessId string            `gorm:"index;not null" json:"business_id"`
	Name       string            `gorm:"size:255;not null" json:"name"`
	SequenceNo decimal.Decimal   `gorm:"type:decimal(15);not null" json:"sequence_no"`
	JournalId  int               `gorm:"index;not null" json:"journal_id" binding:"required"`
	Journal    *StatementJournal `gorm:"foreignKey:JournalId" json:"journal"`
	Date       time.Time         `gorm:"not null" json:"date" binding:"required"`
	State      StatementState    `gorm:"type:enum('draft','validated','posted');default:draft" json:"state"`
	Lines      []StatementLine   `gorm:"foreignKey:StatementId" json:"lines"`
	CreatedAt  time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewStatement struct {
	JournalId int       `json:"journal_id" binding:"required"`
	Date      time.Time `json:"date" binding:"required"`
}

// StatementLine is one payment taken against a party, usually for a sale.
// The move is written when the statement posts.
type StatementLine struct {
	ID          int             `gorm:"primary_key" json:"id"`
	BusinessId  string          `gorm:"index;not null" json:"business_id"`
	StatementId int             `gorm:"index;not null" json:"statement_id" binding:"required"`
	Statement   *Statement      `gorm:"foreignKey:StatementId" json:"statement"`
	Date        time.Time       `gorm:"not null" json:"date" binding:"required"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount"`
	PartyId     int             `gorm:"index;not null" json:"party_id" binding:"required"`
	Party       *Party          `gorm:"foreignKey:PartyId" json:"party"`
	AccountId   int             `gorm:"index;not null" json:"account_id"`
	SaleId      *int            `gorm:"index" json:"sale_id"`
	InvoiceId   *int            `gorm:"index" json:"invoice_id"`
	MoveId      *int            `gorm:"index" json:"move_id"`
	Description string          `gorm:"size:255" json:"description"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewStatementLine struct {
	StatementId int             `json:"statement_id" binding:"required"`
	Date        time.Time       `json:"date" binding:"required"`
	Amount      decimal.Decimal `json:"amount"`
	PartyId     int             `json:"party_id" binding:"required"`
	AccountId   int             `json:"account_id"`
	SaleId      *int            `json:"sale_id"`
	InvoiceId   *int            `json:"invoice_id"`
	Description string          `json:"description"`
}

func (journal StatementJournal) GetBusinessId() string {
	return journal.BusinessId
}

func (statement Statement) GetBusinessId() string {
	return statement.BusinessId
}

func (statement Statement) CheckTransactionLock(ctx context.Context) error {
	return validateTransactionLock(ctx, statement.Date, statement.BusinessId, AccountantTransactionLock)
}

// Posted statement lines are accounting facts. Once a move is attached only
// the attribution fields may move.
func (line *StatementLine) BeforeUpdate(tx *gorm.DB) error {
	if !config.StrictStatementImmutability() {
		return nil
	}
	allowed := map[string]bool{
		"InvoiceId":   true,
		"PartyId":     true,
		"MoveId":      true,
		"Description": true,
		"UpdatedAt":   true,
	}
	if tx == nil || tx.Statement == nil || tx.Statement.Schema == nil {
		return nil
	}
	for _, f := range tx.Statement.Schema.Fields {
		if tx.Statement.Changed(f.Name) && !allowed[f.Name] {
			return errors.New("statement line amounts are immutable, only attribution fields may be updated")
		}
	}
	return nil
}

// ---------- statement journal ----------

func (input *NewStatementJournal) validate(ctx context.Context, businessId string, id int) error {
	if id > 0 {
		if err := utils.ValidateResourceId[StatementJournal](ctx, businessId, id); err != nil {
			return err
		}
	}
	if err := utils.ValidateUnique[StatementJournal](ctx, businessId, "name", input.Name, id); err != nil {
		return err
	}
	account, err := GetAccount(ctx, input.AccountId)
	if err != nil {
		return errors.New("account not found")
	}
	if account.Kind != AccountKindCash && account.Kind != AccountKindBank {
		return errors.New("journal account must be a cash or bank account")
	}
	return nil
}

func CreateStatementJournal(ctx context.Context, input *NewStatementJournal) (*StatementJournal, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if err := input.validate(ctx, businessId, 0); err != nil {
		return nil, err
	}

	if input.Currency == "" {
		business, err := GetBusinessById(ctx, businessId)
		if err != nil {
			return nil, err
		}
		input.Currency = business.Currency
	}

	journal := StatementJournal{
		BusinessId: businessId,
		Name:       input.Name,
		Currency:   input.Currency,
		AccountId:  input.AccountId,
		IsActive:   utils.NewTrue(),
	}

	// db action
	db := config.GetDB()
	err := db.WithContext(ctx).Create(&journal).Error
	if err != nil {
		return nil, err
	}

	if err := RemoveRedisBoth(journal); err != nil {
		return nil, err
	}

	return &journal, nil
}

func GetStatementJournal(ctx context.Context, id int) (*StatementJournal, error) {

	return GetResource[StatementJournal](ctx, id)
}

func GetStatementJournals(ctx context.Context, name *string) ([]*StatementJournal, error) {

	db := config.GetDB()
	var results []*StatementJournal

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId)
	if name != nil && len(*name) > 0 {
		dbCtx = dbCtx.Where("name LIKE ?", "%"+*name+"%")
	}
	err := dbCtx.Order("name").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// ---------- statement ----------

func CreateStatement(ctx context.Context, input *NewStatement) (*Statement, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if err := utils.ValidateResourceId[StatementJournal](ctx, businessId, input.JournalId); err != nil {
		return nil, errors.New("journal not found")
	}

	seqNo, err := utils.GetSequence[Statement](ctx, businessId)
	if err != nil {
		return nil, err
	}

	statement := Statement{
		BusinessId: businessId,
		Name:       "STM-" + fmt.Sprint(seqNo),
		SequenceNo: decimal.NewFromInt(seqNo),
		JournalId:  input.JournalId,
		Date:       input.Date,
		State:      StatementStateDraft,
	}

	// db action
	db := config.GetDB()
	err = db.WithContext(ctx).Create(&statement).Error
	if err != nil {
		return nil, err
	}

	return &statement, nil
}

func GetStatement(ctx context.Context, id int) (*Statement, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	return utils.FetchModel[Statement](ctx, businessId, id, "Journal", "Lines")
}

func GetStatements(ctx context.Context, journalId *int, state *StatementState) ([]*Statement, error) {

	db := config.GetDB()
	var results []*Statement

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId).Preload("Journal")
	if journalId != nil && *journalId > 0 {
		dbCtx = dbCtx.Where("journal_id = ?", *journalId)
	}
	if state != nil {
		dbCtx = dbCtx.Where("state = ?", *state)
	}
	err := dbCtx.Order("date DESC, id DESC").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// FindDraftStatement returns the newest draft statement on the journal.
// Payments always land on the most recent open session.
func FindDraftStatement(tx *gorm.DB, businessId string, journal *StatementJournal) (*Statement, error) {
	var statement Statement
	err := tx.Where("business_id = ? AND journal_id = ? AND state = ?",
		businessId, journal.ID, StatementStateDraft).
		Order("date DESC, id DESC").
		First(&statement).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NoDraftStatementError{Journal: journal.Name}
	}
	if err != nil {
		return nil, err
	}
	return &statement, nil
}

// ValidateStatement closes the cash session. No further payments can land on
// the statement once it leaves draft.
func ValidateStatement(ctx context.Context, id int) (*Statement, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	statement, err := utils.FetchModel[Statement](ctx, businessId, id)
	if err != nil {
		return nil, err
	}
	if statement.State != StatementStateDraft {
		return nil, errors.New("statement is not draft")
	}

	db := config.GetDB()
	tx := db.Begin()
	err = tx.WithContext(ctx).Model(&statement).
		Update("State", StatementStateValidated).Error
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := createHistory(tx.WithContext(ctx), "Update", statement.ID, "statements", nil, nil,
		"Updated state to validated"); err != nil {
		tx.Rollback()
		return nil, err
	}
	return statement, tx.Commit().Error
}

// PostStatement writes one account move per non-zero line, pairing the
// journal's cash account against the line's receivable account, then marks
// the statement posted. Positive amounts debit cash and credit receivable.
func PostStatement(ctx context.Context, id int) (*Statement, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	statement, err := utils.FetchModelForChange[Statement](ctx, businessId, id, "Journal", "Lines")
	if err != nil {
		return nil, err
	}
	if statement.State != StatementStateValidated {
		return nil, errors.New("statement is not validated")
	}

	db := config.GetDB()
	tx := db.Begin()
	for i := range statement.Lines {
		line := &statement.Lines[i]
		if line.Amount.IsZero() {
			continue
		}
		move, err := createStatementLineMove(ctx, tx, statement, line)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		if err := tx.WithContext(ctx).Model(line).
			Update("MoveId", move.ID).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
	}
	if err := tx.WithContext(ctx).Model(&statement).
		Update("State", StatementStatePosted).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := createHistory(tx.WithContext(ctx), "Update", statement.ID, "statements", nil, nil,
		"Updated state to posted"); err != nil {
		tx.Rollback()
		return nil, err
	}
	return statement, tx.Commit().Error
}

func createStatementLineMove(ctx context.Context, tx *gorm.DB, statement *Statement, line *StatementLine) (*AccountMove, error) {

	cashDebit := line.Amount
	cashCredit := decimal.Zero
	if line.Amount.IsNegative() {
		cashDebit = decimal.Zero
		cashCredit = line.Amount.Neg()
	}

	partyId := line.PartyId
	move := AccountMove{
		BusinessId:  statement.BusinessId,
		Date:        line.Date,
		Description: line.Description,
		Lines: []MoveLine{
			{
				BusinessId: statement.BusinessId,
				AccountId:  statement.Journal.AccountId,
				Debit:      cashDebit,
				Credit:     cashCredit,
			},
			{
				BusinessId: statement.BusinessId,
				AccountId:  line.AccountId,
				PartyId:    &partyId,
				Debit:      cashCredit,
				Credit:     cashDebit,
			},
		},
	}
	if err := tx.WithContext(ctx).Create(&move).Error; err != nil {
		return nil, err
	}
	return &move, nil
}

// ---------- statement line ----------

func (input *NewStatementLine) validate(ctx context.Context, businessId string, id int) (*Statement, error) {
	if id > 0 {
		if err := utils.ValidateResourceId[StatementLine](ctx, businessId, id); err != nil {
			return nil, err
		}
	}
	statement, err := utils.FetchModel[Statement](ctx, businessId, input.StatementId)
	if err != nil {
		return nil, errors.New("statement not found")
	}
	if statement.State != StatementStateDraft {
		return nil, errors.New("statement is not draft")
	}
	saleIds := make([]int, 0, 1)
	if input.SaleId != nil {
		saleIds = append(saleIds, *input.SaleId)
	}
	invoiceIds := make([]int, 0, 1)
	if input.InvoiceId != nil {
		invoiceIds = append(invoiceIds, *input.InvoiceId)
	}

	// validate referenced records belong to the same business
	businessFilter := utils.Filter{Cond: "business_id = ?", Values: []interface{}{businessId}}
	if err := utils.MassValidateResourceIds(ctx, []utils.ValidationRule[int]{
		{Model: Party{}, Ids: []int{input.PartyId}, Message: "party not found", Filter: businessFilter},
		{Model: Sale{}, Ids: saleIds, Message: "sale not found", Filter: businessFilter},
		{Model: Invoice{}, Ids: invoiceIds, Message: "invoice not found", Filter: businessFilter},
	}); err != nil {
		return nil, err
	}

	if err := validateTransactionLock(ctx, input.Date, businessId, SalesTransactionLock); err != nil {
		return nil, err
	}
	return statement, nil
}

func CreateStatementLine(ctx context.Context, input *NewStatementLine) (*StatementLine, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if _, err := input.validate(ctx, businessId, 0); err != nil {
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

	line := StatementLine{
		BusinessId:  businessId,
		StatementId: input.StatementId,
		Date:        input.Date,
		Amount:      input.Amount,
		PartyId:     input.PartyId,
		AccountId:   accountId,
		SaleId:      input.SaleId,
		InvoiceId:   input.InvoiceId,
		Description: input.Description,
	}

	// db action
	db := config.GetDB()
	err := db.WithContext(ctx).Create(&line).Error
	if err != nil {
		return nil, err
	}

	return &line, nil
}

func UpdateStatementLine(ctx context.Context, id int, input *NewStatementLine) (*StatementLine, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if _, err := input.validate(ctx, businessId, id); err != nil {
		return nil, err
	}

	line, err := utils.FetchModel[StatementLine](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	accountId := input.AccountId
	if accountId == 0 {
		accountId = line.AccountId
	}

	// db action
	db := config.GetDB()
	err = db.WithContext(ctx).Model(&line).Updates(map[string]interface{}{
		"StatementId": input.StatementId,
		"Date":        input.Date,
		"Amount":      input.Amount,
		"PartyId":     input.PartyId,
		"AccountId":   accountId,
		"SaleId":      input.SaleId,
		"InvoiceId":   input.InvoiceId,
		"Description": input.Description,
	}).Error
	if err != nil {
		return nil, err
	}

	return line, nil
}

// DeleteStatementLine removes a payment. Lines on validated or posted
// statements cannot be deleted.
func DeleteStatementLine(ctx context.Context, id int) (*StatementLine, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	line, err := utils.FetchModel[StatementLine](ctx, businessId, id, "Statement")
	if err != nil {
		return nil, err
	}
	if line.Statement == nil || line.Statement.State != StatementStateDraft {
		return nil, errors.New("statement is not draft")
	}

	// db action
	db := config.GetDB()
	err = db.WithContext(ctx).Delete(&line).Error
	if err != nil {
		return nil, err
	}

	return line, nil
}

// StatementLineWrite carries one line id and the attribution fields to set
// on it. Batches are applied inside the caller's transaction.
type StatementLineWrite struct {
	LineId int
	Delta  StatementLineDelta
}

type StatementLineDelta struct {
	InvoiceId   *int
	PartyId     *int
	Description *string
}

func BatchWriteStatementLines(tx *gorm.DB, writes []StatementLineWrite) error {
	for _, write := range writes {
		values := map[string]interface{}{}
		if write.Delta.InvoiceId != nil {
			values["invoice_id"] = *write.Delta.InvoiceId
		}
		if write.Delta.PartyId != nil {
			values["party_id"] = *write.Delta.PartyId
		}
		if write.Delta.Description != nil {
			values["description"] = *write.Delta.Description
		}
		if len(values) == 0 {
			continue
		}
		if err := tx.Model(&StatementLine{}).
			Where("id = ?", write.LineId).
			Updates(values).Error; err != nil {
			return err
		}
	}
	return nil
}

// SumPaymentsBySale totals statement line amounts per sale in one query.
// Sales with no payments are absent from the map.
func SumPaymentsBySale(tx *gorm.DB, businessId string, saleIds []int) (map[int]decimal.Decimal, error) {

	type row struct {
		SaleId int
		Total  decimal.Decimal
	}
	var rows []row
	if len(saleIds) == 0 {
		return map[int]decimal.Decimal{}, nil
	}
	err := tx.Model(&StatementLine{}).
		Select("sale_id, SUM(amount) AS total").
		Where("business_id = ? AND sale_id IN ?", businessId, saleIds).
		Group("sale_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	totals := make(map[int]decimal.Decimal, len(rows))
	for _, r := range rows {
		totals[r.SaleId] = r.Total
	}
	return totals, nil
}

func PaymentsForSale(tx *gorm.DB, businessId string, saleId int) ([]StatementLine, error) {
	var lines []StatementLine
	err := tx.Where("business_id = ? AND sale_id = ?", businessId, saleId).
		Order("id").
		Find(&lines).Error
	if err != nil {
		return nil, err
	}
	return lines, nil
}

func ToggleActiveStatementJournal(ctx context.Context, id int, isActive bool) (*StatementJournal, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	return ToggleActiveModel[StatementJournal](ctx, businessId, id, isActive)
}
