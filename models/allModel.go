package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmsoftwarehouse/salepay_backend/config"
	"bitbucket.org/mmsoftwarehouse/salepay_backend/utils"
)

// get AllModelMap for loader, redis or db
func MapAllModel[ModelT any, AllT Identifier](ctx context.Context) (map[int]*AllT, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	// retrieve from redis
	key := utils.GetTypeName[AllT]() + "Map:" + businessId

	var allMap map[int]*AllT

	if exists, err := config.GetRedisObject(key, &allMap); err != nil {
		return nil, err
	} else if !exists {
		// if the map has not been cached yet
		// fetch resources and construct the map, cache the result

		allMap = make(map[int]*AllT)
		var allSlice []*AllT
		db := config.GetDB()
		var m ModelT
		dbCtx := db.WithContext(ctx).Model(&m)
		dbCtx.Where("business_id = ?", businessId)
		if err := dbCtx.Find(&allSlice).Error; err != nil {
			return nil, err
		}

		// fill the map
		for _, allModel := range allSlice {
			allMap[(*allModel).GetId()] = allModel
		}

		// store redis
		var duration time.Duration
		if err := config.SetRedisObject(key, &allMap, duration); err != nil {
			return nil, err
		}
	}

	return allMap, nil
}

// embedding struct will receive ID field, satisfy Identifier interface
type HasId struct {
	ID int `json:"id"`
}

func (h HasId) GetId() int {
	return h.ID
}

type AllAccount struct {
	HasId
	Name     string      `json:"name"`
	Code     string      `json:"code"`
	Kind     AccountKind `json:"kind"`
	IsActive bool        `json:"is_active"`
}

type AllParty struct {
	HasId
	Name                string `json:"name"`
	ReceivableAccountId *int   `json:"receivable_account_id"`
	InvoiceGrouping     bool   `json:"invoice_grouping"`
	IsActive            bool   `json:"is_active"`
}

type AllJournal struct {
	HasId
	Name      string `json:"name"`
	Currency  string `json:"currency"`
	AccountId int    `json:"account_id"`
	IsActive  bool   `json:"is_active"`
}

type AllDevice struct {
	HasId
	Name      string `json:"name"`
	JournalId *int   `json:"journal_id"`
	IsActive  bool   `json:"is_active"`
}

func ListAllAccount(ctx context.Context) ([]*AllAccount, error) {
	return ListAllResource[Account, AllAccount](ctx, "name")
}

func MapAllAccount(ctx context.Context) (map[int]*AllAccount, error) {
	return MapAllModel[Account, AllAccount](ctx)
}

func ListAllParty(ctx context.Context) ([]*AllParty, error) {
	return ListAllResource[Party, AllParty](ctx, "name")
}

func MapAllParty(ctx context.Context) (map[int]*AllParty, error) {
	return MapAllModel[Party, AllParty](ctx)
}

func ListAllJournal(ctx context.Context) ([]*AllJournal, error) {
	return ListAllResource[StatementJournal, AllJournal](ctx, "name")
}

func MapAllJournal(ctx context.Context) (map[int]*AllJournal, error) {
	return MapAllModel[StatementJournal, AllJournal](ctx)
}

func ListAllDevice(ctx context.Context) ([]*AllDevice, error) {
	return ListAllResource[SaleDevice, AllDevice](ctx, "name")
}

func MapAllDevice(ctx context.Context) (map[int]*AllDevice, error) {
	return MapAllModel[SaleDevice, AllDevice](ctx)
}
