package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmsoftwarehouse/salepay_backend/config"
	"bitbucket.org/mmsoftwarehouse/salepay_backend/utils"
	"gorm.io/gorm"
)

// SaleDevice is a point-of-sale terminal. Each device carries the statement
// journals it may collect money into and the journal preselected on the
// payment form.
type SaleDevice struct {
	ID         int                `gorm:"primary_key" json:"id"`
	BusinessId string             `gorm:"index;not null" json:"business_id"`
	Name       string             `gorm:"index;size:100;not null" json:"name" binding:"required"`
	JournalId  *int               `gorm:"index" json:"journal_id"`
	Journals   []StatementJournal `gorm:"many2many:sale_devices_journals" json:"journals"`
	IsActive   *bool              `gorm:"not null;default:true" json:"is_active"`
	CreatedAt  time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewSaleDevice struct {
	Name       string `json:"name" binding:"required"`
	JournalId  *int   `json:"journal_id"`
	JournalIds []int  `json:"journal_ids"`
}

func (device SaleDevice) GetBusinessId() string {
	return device.BusinessId
}

// validate input for both create & update. (id = 0 for create)

func (input *NewSaleDevice) validate(ctx context.Context, businessId string, id int) error {
	if id > 0 {
		if err := utils.ValidateResourceId[SaleDevice](ctx, businessId, id); err != nil {
			return err
		}
	}
	if err := utils.ValidateUnique[SaleDevice](ctx, businessId, "name", input.Name, id); err != nil {
		return err
	}
	if len(input.JournalIds) > 0 {
		if err := utils.ValidateResourcesId[StatementJournal](ctx, businessId, input.JournalIds); err != nil {
			return errors.New("journal not found")
		}
	}
	// the default journal must be one of the device's journals
	if input.JournalId != nil {
		found := false
		for _, journalId := range input.JournalIds {
			if journalId == *input.JournalId {
				found = true
				break
			}
		}
		if !found {
			return errors.New("default journal must be one of the device journals")
		}
	}
	return nil
}

func fetchDeviceJournals(ctx context.Context, journalIds []int) ([]StatementJournal, error) {
	if len(journalIds) == 0 {
		return nil, nil
	}
	db := config.GetDB()
	var journals []StatementJournal
	if err := db.WithContext(ctx).Find(&journals, journalIds).Error; err != nil {
		return nil, err
	}
	return journals, nil
}

func CreateSaleDevice(ctx context.Context, input *NewSaleDevice) (*SaleDevice, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if err := input.validate(ctx, businessId, 0); err != nil {
		return nil, err
	}

	journals, err := fetchDeviceJournals(ctx, input.JournalIds)
	if err != nil {
		return nil, err
	}

	device := SaleDevice{
		BusinessId: businessId,
		Name:       input.Name,
		JournalId:  input.JournalId,
		Journals:   journals,
		IsActive:   utils.NewTrue(),
	}

	// db action
	db := config.GetDB()
	err = db.WithContext(ctx).Omit("Journals.*").Create(&device).Error
	if err != nil {
		return nil, err
	}

	if err := RemoveRedisBoth(device); err != nil {
		return nil, err
	}

	return &device, nil
}

func UpdateSaleDevice(ctx context.Context, id int, input *NewSaleDevice) (*SaleDevice, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if err := input.validate(ctx, businessId, id); err != nil {
		return nil, err
	}

	device, err := utils.FetchModel[SaleDevice](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	journals, err := fetchDeviceJournals(ctx, input.JournalIds)
	if err != nil {
		return nil, err
	}

	// db action
	db := config.GetDB()
	tx := db.Begin()
	err = tx.WithContext(ctx).Model(&device).Updates(map[string]interface{}{
		"Name":      input.Name,
		"JournalId": input.JournalId,
	}).Error
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.WithContext(ctx).Model(&device).
		Omit("Journals.*").
		Association("Journals").
		Replace(&journals); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	if err := RemoveRedisBoth(*device); err != nil {
		return nil, err
	}

	device.Journals = journals
	return device, nil
}

func GetSaleDevice(ctx context.Context, id int) (*SaleDevice, error) {

	return GetResource[SaleDevice](ctx, id)
}

func GetSaleDevices(ctx context.Context, name *string) ([]*SaleDevice, error) {

	db := config.GetDB()
	var results []*SaleDevice

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId).Preload("Journals")
	if name != nil && len(*name) > 0 {
		dbCtx = dbCtx.Where("name LIKE ?", "%"+*name+"%")
	}
	err := dbCtx.Order("name").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// UserDevice resolves the calling user's device, with journals loaded.
// Cashiers without an assigned device cannot open the payment form.
func UserDevice(ctx context.Context, tx *gorm.DB, businessId string) (*SaleDevice, error) {

	// the middleware stamps the device id for users that have one
	if deviceId, ok := utils.GetDeviceIdFromContext(ctx); ok && deviceId > 0 {
		var device SaleDevice
		if err := tx.Where("business_id = ?", businessId).Preload("Journals").
			First(&device, deviceId).Error; err != nil {
			return nil, err
		}
		return &device, nil
	}

	// an unassigned admin opens the form with no journal preset
	if isAdmin, ok := utils.GetIsAdminFromContext(ctx); ok && isAdmin {
		return nil, nil
	}

	userId, _ := utils.GetUserIdFromContext(ctx)
	var user User
	if err := tx.Where("business_id = ?", businessId).First(&user, userId).Error; err != nil {
		return nil, err
	}
	if user.DeviceId == nil || *user.DeviceId == 0 {
		if user.Role == RoleAdmin || user.Role == RoleOwner {
			return nil, nil
		}
		return nil, &NoSaleDeviceError{Username: user.Username}
	}
	var device SaleDevice
	if err := tx.Where("business_id = ?", businessId).Preload("Journals").
		First(&device, *user.DeviceId).Error; err != nil {
		return nil, err
	}
	return &device, nil
}

func ToggleActiveSaleDevice(ctx context.Context, id int, isActive bool) (*SaleDevice, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	return ToggleActiveModel[SaleDevice](ctx, businessId, id, isActive)
}
