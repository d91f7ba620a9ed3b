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

// AccountMove is one balanced double-entry posting. Moves are written by
// invoice posting and statement posting, never edited afterwards.
type AccountMove struct {
	ID          int        `gorm:"primary_key" json:"id"`
	BusinessId  string     `gorm:"index;not null" json:"business_id"`
	Date        time.Time  `gorm:"not null" json:"date"`
	Description string     `gorm:"size:255" json:"description"`
	Lines       []MoveLine `gorm:"foreignKey:MoveId" json:"lines"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

type MoveLine struct {
	ID               int             `gorm:"primary_key" json:"id"`
	BusinessId       string          `gorm:"index;not null" json:"business_id"`
	MoveId           int             `gorm:"index;not null" json:"move_id"`
	AccountId        int             `gorm:"index;not null" json:"account_id"`
	PartyId          *int            `gorm:"index" json:"party_id"`
	Debit            decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"debit"`
	Credit           decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"credit"`
	ReconciliationId *int            `gorm:"index" json:"reconciliation_id"`
}

// Reconciliation ties receivable move lines that settle each other to zero.
type Reconciliation struct {
	ID         int             `gorm:"primary_key" json:"id"`
	BusinessId string          `gorm:"index;not null" json:"business_id"`
	Name       string          `gorm:"size:255;not null" json:"name"`
	SequenceNo decimal.Decimal `gorm:"type:decimal(15);not null" json:"sequence_no"`
	Date       time.Time       `gorm:"not null" json:"date"`
	Lines      []MoveLine      `gorm:"foreignKey:ReconciliationId" json:"lines"`
	CreatedAt  time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (move *AccountMove) BeforeUpdate(tx *gorm.DB) error {
	return errors.New("immutable ledger: account_moves cannot be updated")
}

func (move *AccountMove) BeforeDelete(tx *gorm.DB) error {
	return errors.New("immutable ledger: account_moves cannot be deleted")
}

func (line *MoveLine) BeforeDelete(tx *gorm.DB) error {
	return errors.New("immutable ledger: move_lines cannot be deleted")
}

// Amounts never change once written. Only the reconciliation linkage may.
func (line *MoveLine) BeforeUpdate(tx *gorm.DB) error {
	allowed := map[string]bool{
		"ReconciliationId": true,
	}
	if tx == nil || tx.Statement == nil || tx.Statement.Schema == nil {
		return nil
	}
	for _, f := range tx.Statement.Schema.Fields {
		if tx.Statement.Changed(f.Name) && !allowed[f.Name] {
			return errors.New("immutable ledger: only the reconciliation may be set on move_lines")
		}
	}
	return nil
}

// SignedSum folds debits minus credits over the lines.
func SignedSum(lines []MoveLine) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.Debit).Sub(line.Credit)
	}
	return total
}

// ReconcilableToZero reports whether the group is non-empty, entirely
// unreconciled and nets to exactly zero.
func ReconcilableToZero(lines []MoveLine) bool {
	if len(lines) == 0 {
		return false
	}
	for _, line := range lines {
		if line.ReconciliationId != nil {
			return false
		}
	}
	return SignedSum(lines).IsZero()
}

// ReconcileMoveLines stamps one reconciliation across the whole group inside
// the caller's transaction. The group must share one account, carry no prior
// reconciliation and net to exactly zero.
func ReconcileMoveLines(ctx context.Context, tx *gorm.DB, businessId string, date time.Time, lines []MoveLine) (*Reconciliation, error) {

	if len(lines) == 0 {
		return nil, errors.New("no move lines to reconcile")
	}
	accountId := lines[0].AccountId
	for _, line := range lines {
		if line.AccountId != accountId {
			return nil, errors.New("move lines must share one account")
		}
		if line.ReconciliationId != nil {
			return nil, errors.New("move line is already reconciled")
		}
	}
	if !SignedSum(lines).IsZero() {
		return nil, errors.New("move lines do not net to zero")
	}

	seqNo, err := utils.GetSequence[Reconciliation](ctx, businessId)
	if err != nil {
		return nil, err
	}
	reconciliation := Reconciliation{
		BusinessId: businessId,
		Name:       "RCL-" + fmt.Sprint(seqNo),
		SequenceNo: decimal.NewFromInt(seqNo),
		Date:       date,
	}
	if err := tx.WithContext(ctx).Create(&reconciliation).Error; err != nil {
		return nil, err
	}

	lineIds := []int{}
	for _, line := range lines {
		lineIds = append(lineIds, line.ID)
	}
	err = tx.WithContext(ctx).Model(&MoveLine{}).
		Where("id IN ?", lineIds).
		Update("ReconciliationId", reconciliation.ID).Error
	if err != nil {
		return nil, err
	}
	return &reconciliation, nil
}

func GetAccountMove(ctx context.Context, id int) (*AccountMove, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	return utils.FetchModel[AccountMove](ctx, businessId, id, "Lines")
}

// UnreconciledReceivableLines lists a party's open receivable lines, oldest
// first, for the reconciliation screens.
func UnreconciledReceivableLines(ctx context.Context, partyId int) ([]MoveLine, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	var lines []MoveLine
	err := db.WithContext(ctx).
		Joins("JOIN accounts ON accounts.id = move_lines.account_id").
		Where("move_lines.business_id = ? AND move_lines.party_id = ? AND move_lines.reconciliation_id IS NULL AND accounts.kind = ?",
			businessId, partyId, AccountKindReceivable).
		Order("move_lines.id").
		Find(&lines).Error
	if err != nil {
		return nil, err
	}
	return lines, nil
}
