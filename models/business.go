package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/mmsoftwarehouse/salepay_backend/config"
	"bitbucket.org/mmsoftwarehouse/salepay_backend/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Business struct {
	ID                            uuid.UUID `gorm:"primary_key" json:"id"`
	Name                          string    `gorm:"index;size:100;not null" json:"name" binding:"required"`
	ContactName                   string    `gorm:"size:100" json:"contact_name"`
	Email                         string    `gorm:"size:255" json:"email"`
	Phone                         string    `gorm:"size:20" json:"phone"`
	Address                       string    `gorm:"type:text" json:"address"`
	Country                       string    `gorm:"size:100"  json:"country"`
	City                          string    `gorm:"size:100"  json:"city"`
	Currency                      string    `gorm:"size:3;default:MMK" json:"currency"`
	CurrencyDigits                int       `gorm:"default:2" json:"currency_digits"`
	Timezone                      string    `gorm:"size:50" json:"timezone"`
	TaxId                         string    `gorm:"size:100" json:"tax_id"`
	MigrationDate                 time.Time `json:"migration_date"`
	SalesTransactionLockDate      time.Time `json:"sales_transaction_lock_date"`
	AccountantTransactionLockDate time.Time `json:"accountant_transaction_lock_date"`
	IsActive                      *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt                     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt                     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewBusiness struct {
	Name           string `json:"name" binding:"required"`
	ContactName    string `json:"contact_name"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	Address        string `json:"address"`
	Country        string `json:"country"`
	City           string `json:"city"`
	Currency       string `json:"currency"`
	CurrencyDigits int    `json:"currency_digits"`
	Timezone       string `json:"timezone"`
	TaxId          string `json:"tax_id"`
}

func (business *Business) StoreRedis() error {
	return config.SetRedisObject("Business:"+fmt.Sprint(business.ID), business, 0)
}

func (business *Business) RemoveRedis() error {
	return config.RemoveRedisKey("Business:" + fmt.Sprint(business.ID))
}

func (business *Business) BeforeCreate(tx *gorm.DB) error {
	if business.ID == uuid.Nil {
		business.ID = uuid.New()
	}
	return nil
}

// Today is the current date in the business's calendar. Payments and invoice
// postings are dated with this, not with server-local midnight.
func (business *Business) Today() (time.Time, error) {
	return utils.ConvertToDate(time.Now().UTC(), business.Timezone)
}

func CreateBusiness(ctx context.Context, input *NewBusiness) (*Business, error) {

	if input.Phone != "" {
		if err := utils.ValidatePhoneNumber(input.Phone, utils.CountryCode); err != nil {
			return nil, err
		}
	}

	business := Business{
		Name:           input.Name,
		ContactName:    input.ContactName,
		Email:          input.Email,
		Phone:          input.Phone,
		Address:        input.Address,
		Country:        input.Country,
		City:           input.City,
		Currency:       input.Currency,
		CurrencyDigits: input.CurrencyDigits,
		Timezone:       input.Timezone,
		TaxId:          input.TaxId,
		IsActive:       utils.NewTrue(),
	}
	if business.Currency == "" {
		business.Currency = "MMK"
	}
	if business.CurrencyDigits == 0 {
		business.CurrencyDigits = 2
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&business).Error; err != nil {
		return nil, err
	}
	return &business, nil
}

func GetBusinessById(ctx context.Context, id string) (*Business, error) {

	var result Business

	exists, err := config.GetRedisObject("Business:"+id, &result)
	if err != nil {
		return nil, err
	}

	if !exists {
		db := config.GetDB()
		// db query
		err := db.WithContext(ctx).Where("id = ?", id).First(&result).Error
		if err != nil {
			return nil, utils.ErrorRecordNotFound
		}
		// caching
		if err := result.StoreRedis(); err != nil {
			return nil, err
		}
	}

	// Enforce tenant ownership (fail closed) unless explicitly bypassed for admin/internal ops.
	if skip, ok := utils.GetSkipTenantScopeFromContext(ctx); ok && skip {
		return &result, nil
	}
	if isAdmin, ok := utils.GetIsAdminFromContext(ctx); ok && isAdmin {
		return &result, nil
	}
	if callerBusinessId, ok := utils.GetBusinessIdFromContext(ctx); ok && callerBusinessId != "" && callerBusinessId != result.ID.String() {
		return nil, errors.New("unauthorized")
	}
	return &result, nil
}

// GetBusiness resolves the business of the current session.
func GetBusiness(ctx context.Context) (*Business, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	return GetBusinessById(ctx, businessId)
}

// GetBootstrapSnapshot bundles the business with its dropdown lists into one
// JSON document. A payment device loads this once at login instead of four
// round trips.
func GetBootstrapSnapshot(ctx context.Context, bizId string) (string, error) {

	data := make(map[string]interface{})
	business, err := GetBusinessById(ctx, bizId)
	if err != nil {
		return "", err
	}
	data["business"] = business
	ctx = utils.SetBusinessIdInContext(ctx, business.ID.String())

	parties, _ := ListAllParty(ctx)
	data["parties"] = parties

	accounts, _ := ListAllAccount(ctx)
	data["accounts"] = accounts

	journals, _ := ListAllJournal(ctx)
	data["journals"] = journals

	devices, _ := ListAllDevice(ctx)
	data["devices"] = devices

	jsonStr, err := utils.MarshalToJSON(data)
	if err != nil {
		return "", err
	}
	return jsonStr, nil
}

func UpdateTransactionLockDates(ctx context.Context, salesLock time.Time, accountantLock time.Time) (*Business, error) {

	db := config.GetDB()

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	// check exists
	var business Business
	if err := db.WithContext(ctx).Where("id = ?", businessId).First(&business).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	// db action
	tx := db.Begin()
	err := tx.WithContext(ctx).Model(&business).Updates(map[string]interface{}{
		"SalesTransactionLockDate":      salesLock,
		"AccountantTransactionLockDate": accountantLock,
	}).Error
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	// caching
	if err := business.RemoveRedis(); err != nil {
		tx.Rollback()
		return nil, err
	}
	return &business, tx.Commit().Error
}
