package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmsoftwarehouse/salepay_backend/config"
	"bitbucket.org/mmsoftwarehouse/salepay_backend/utils"
	"gorm.io/gorm"
)

// Party is a customer the business sells to. The receivable account and the
// invoice grouping preference drive payment attribution and settlement.
type Party struct {
	ID                  int       `gorm:"primary_key" json:"id"`
	BusinessId          string    `gorm:"index;not null" json:"business_id"`
	Name                string    `gorm:"index;size:100;not null" json:"name" binding:"required"`
	Email               string    `gorm:"size:100" json:"email"`
	Phone               string    `gorm:"size:20" json:"phone"`
	Address             string    `gorm:"type:text" json:"address"`
	TaxId               string    `gorm:"size:100" json:"tax_id"`
	ReceivableAccountId *int      `gorm:"index" json:"receivable_account_id"`
	InvoiceGrouping     *bool     `gorm:"not null;default:false" json:"invoice_grouping"`
	IsActive            *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt           time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewParty struct {
	Name                string `json:"name" binding:"required"`
	Email               string `json:"email"`
	Phone               string `json:"phone"`
	Address             string `json:"address"`
	TaxId               string `json:"tax_id"`
	ReceivableAccountId *int   `json:"receivable_account_id"`
	InvoiceGrouping     *bool  `json:"invoice_grouping"`
}

func (party Party) GetBusinessId() string {
	return party.BusinessId
}

func (input NewParty) validate(ctx context.Context, businessId string) error {

	if input.Email != "" && !utils.IsValidEmail(input.Email) {
		return errors.New("invalid email")
	}
	if input.Phone != "" {
		if err := utils.ValidatePhoneNumber(input.Phone, utils.CountryCode); err != nil {
			return err
		}
	}
	if input.ReceivableAccountId != nil {
		account, err := GetAccount(ctx, *input.ReceivableAccountId)
		if err != nil {
			return errors.New("receivable account not found")
		}
		if account.Kind != AccountKindReceivable {
			return errors.New("account is not a receivable account")
		}
	}
	return nil
}

func CreateParty(ctx context.Context, input *NewParty) (*Party, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if err := input.validate(ctx, businessId); err != nil {
		return nil, err
	}

	party := Party{
		BusinessId:          businessId,
		Name:                input.Name,
		Email:               input.Email,
		Phone:               input.Phone,
		Address:             input.Address,
		TaxId:               input.TaxId,
		ReceivableAccountId: input.ReceivableAccountId,
		InvoiceGrouping:     input.InvoiceGrouping,
		IsActive:            utils.NewTrue(),
	}
	if party.InvoiceGrouping == nil {
		party.InvoiceGrouping = utils.NewFalse()
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&party).Error; err != nil {
		return nil, err
	}
	if err := RemoveRedisBoth(party); err != nil {
		return nil, err
	}
	return &party, nil
}

func UpdateParty(ctx context.Context, partyId int, input *NewParty) (*Party, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if err := input.validate(ctx, businessId); err != nil {
		return nil, err
	}

	existing, err := utils.FetchModel[Party](ctx, businessId, partyId)
	if err != nil {
		return nil, err
	}

	existing.Name = input.Name
	existing.Email = input.Email
	existing.Phone = input.Phone
	existing.Address = input.Address
	existing.TaxId = input.TaxId
	existing.ReceivableAccountId = input.ReceivableAccountId
	if input.InvoiceGrouping != nil {
		existing.InvoiceGrouping = input.InvoiceGrouping
	}

	db := config.GetDB()
	tx := db.Begin()
	if err := tx.WithContext(ctx).Save(existing).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := RemoveRedisBoth(*existing); err != nil {
		tx.Rollback()
		return nil, err
	}
	return existing, tx.Commit().Error
}

func GetParty(ctx context.Context, id int) (*Party, error) {

	return GetResource[Party](ctx, id)
}

func GetParties(ctx context.Context, name *string) ([]*Party, error) {

	db := config.GetDB()
	var results []*Party

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

type PartiesEdge Edge[Party]
type PartiesConnection struct {
	PageInfo *PageInfo      `json:"pageInfo"`
	Edges    []*PartiesEdge `json:"edges"`
}

func (party Party) GetCursor() string {
	return party.Name
}

func PaginateParties(ctx context.Context, limit *int, after *string, name *string) (*PartiesConnection, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId)
	if name != nil && *name != "" {
		dbCtx.Where("name LIKE ?", "%"+*name+"%")
	}
	edges, pageInfo, err := FetchPagePureCursor[Party](dbCtx, *limit, after, "name", ">")
	if err != nil {
		return nil, err
	}
	var partiesConnection PartiesConnection
	partiesConnection.PageInfo = pageInfo
	for _, edge := range edges {
		partyEdge := PartiesEdge(edge)
		partiesConnection.Edges = append(partiesConnection.Edges, &partyEdge)
	}
	return &partiesConnection, err
}

func ToggleActiveParty(ctx context.Context, id int, isActive bool) (*Party, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	return ToggleActiveModel[Party](ctx, businessId, id, isActive)
}

// ReceivableAccount resolves the party's receivable account.
// Missing configuration is a user-facing error carrying the party name.
func (party *Party) ReceivableAccount(tx *gorm.DB) (*Account, error) {
	if party.ReceivableAccountId == nil || *party.ReceivableAccountId == 0 {
		return nil, &MissingReceivableAccountError{Party: party.Name}
	}
	var account Account
	if err := tx.Where("business_id = ?", party.BusinessId).
		First(&account, *party.ReceivableAccountId).Error; err != nil {
		return nil, &MissingReceivableAccountError{Party: party.Name}
	}
	return &account, nil
}
