package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmsoftwarehouse/salepay_backend/utils"
)

type TransactionLockType string

const (
	SalesTransactionLock      TransactionLockType = "SalesTransactionLock"
	AccountantTransactionLock TransactionLockType = "AccountantTransactionLock"
)

// validateTransactionLock enforces posting locks (period close) server-side.
// Both API mutations and batch settlement jobs go through it.
func validateTransactionLock(ctx context.Context, transactionDate time.Time, businessId string, lockType TransactionLockType) error {
	business, err := GetBusinessById(ctx, businessId)
	if err != nil {
		return err
	}
	var lockDate time.Time
	switch lockType {
	case SalesTransactionLock:
		lockDate = business.SalesTransactionLockDate
	case AccountantTransactionLock:
		lockDate = business.AccountantTransactionLockDate
	default:
		return errors.New("invalid transaction lock")
	}
	tDate, err := utils.ConvertToDate(transactionDate, business.Timezone)
	if err != nil {
		return err
	}
	lDate, err := utils.ConvertToDate(lockDate, business.Timezone)
	if err != nil {
		return err
	}
	if !tDate.After(lDate) {
		return errors.New("transaction has been locked")
	}
	mDate, err := utils.ConvertToDate(business.MigrationDate, business.Timezone)
	if err != nil {
		return err
	}
	if !tDate.After(mDate) {
		return errors.New("transaction prior to the migration date has been locked")
	}
	return nil
}

// BusinessToday resolves "today" in the business's calendar.
func BusinessToday(ctx context.Context, businessId string) (time.Time, error) {
	business, err := GetBusinessById(ctx, businessId)
	if err != nil {
		return time.Time{}, err
	}
	return business.Today()
}
