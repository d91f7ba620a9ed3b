package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmsoftwarehouse/salepay_backend/config"
	"bitbucket.org/mmsoftwarehouse/salepay_backend/utils"
)

type AccountKind string

const (
	AccountKindReceivable AccountKind = "Receivable"
	AccountKindPayable    AccountKind = "Payable"
	AccountKindRevenue    AccountKind = "Revenue"
	AccountKindCash       AccountKind = "Cash"
	AccountKindBank       AccountKind = "Bank"
	AccountKindOther      AccountKind = "Other"
)

type Account struct {
	ID         int         `gorm:"primary_key" json:"id"`
	BusinessId string      `gorm:"index;not null" json:"business_id"`
	Kind       AccountKind `gorm:"type:enum('Receivable', 'Payable', 'Revenue', 'Cash', 'Bank', 'Other');default:'Other';index;size:20;not null" json:"kind" binding:"required"`
	Name       string      `gorm:"index;size:100;not null" json:"name" binding:"required"`
	Code       string      `gorm:"index;size:100" json:"code" binding:"required"`
	IsActive   *bool       `gorm:"not null;default:true" json:"is_active"`
	CreatedAt  time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewAccount struct {
	Kind AccountKind `json:"kind" binding:"required"`
	Name string      `json:"name" binding:"required"`
	Code string      `json:"code" binding:"required"`
}

func (account Account) GetBusinessId() string {
	return account.BusinessId
}

func CreateAccount(ctx context.Context, input *NewAccount) (*Account, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if err := utils.ValidateUnique[Account](ctx, businessId, "code", input.Code, 0); err != nil {
		return nil, err
	}

	account := Account{
		BusinessId: businessId,
		Kind:       input.Kind,
		Name:       input.Name,
		Code:       input.Code,
		IsActive:   utils.NewTrue(),
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&account).Error; err != nil {
		return nil, err
	}
	if err := RemoveRedisBoth(account); err != nil {
		return nil, err
	}
	return &account, nil
}

func GetAccount(ctx context.Context, id int) (*Account, error) {

	return GetResource[Account](ctx, id)
}

func GetAccounts(ctx context.Context, name *string, code *string) ([]*Account, error) {

	db := config.GetDB()
	var results []*Account

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId)
	if name != nil && len(*name) > 0 {
		dbCtx = dbCtx.Where("name LIKE ?", "%"+*name+"%")
	}
	if code != nil && len(*code) > 0 {
		dbCtx = dbCtx.Where("code LIKE ?", "%"+*code+"%")
	}
	err := dbCtx.Order("name").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func UpdateAccount(ctx context.Context, accountId int, input *NewAccount) (*Account, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if err := utils.ValidateUnique[Account](ctx, businessId, "code", input.Code, accountId); err != nil {
		return nil, err
	}

	existing, err := utils.FetchModel[Account](ctx, businessId, accountId)
	if err != nil {
		return nil, err
	}

	existing.Kind = input.Kind
	existing.Name = input.Name
	existing.Code = input.Code

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

func ToggleActiveAccount(ctx context.Context, id int, isActive bool) (*Account, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	return ToggleActiveModel[Account](ctx, businessId, id, isActive)
}
