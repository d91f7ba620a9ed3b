package workflow

import (
	"context"
	"errors"
	"fmt"

	"bitbucket.org/mmsoftwarehouse/salepay_backend/config"
	"bitbucket.org/mmsoftwarehouse/salepay_backend/models"
	"bitbucket.org/mmsoftwarehouse/salepay_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Payment sessions are a two state flow. The form is served from start,
// each submitted payment lands in pay, and pay answers with the next state:
// back to start while a balance remains, end once the sale is covered.
const (
	PaymentStateStart = "start"
	PaymentStateEnd   = "end"
)

// SalePaymentForm carries the defaults for the POS payment dialog. Journal
// choices come from the sale's device (or the cashier's device), the
// suggested amount from the open balance.
type SalePaymentForm struct {
	SaleId         int                       `json:"sale_id"`
	JournalId      *int                      `json:"journal_id"`
	Journals       []models.StatementJournal `json:"journals"`
	PaymentAmount  decimal.Decimal           `json:"payment_amount"`
	CurrencyDigits int                       `json:"currency_digits"`
	PartyId        int                       `json:"party_id"`
}

type PaySaleInput struct {
	JournalId     int             `json:"journal_id" binding:"required"`
	PaymentAmount decimal.Decimal `json:"payment_amount"`
}

type PaySaleResult struct {
	NextState string           `json:"next_state"`
	Form      *SalePaymentForm `json:"form,omitempty"`
	Sale      *models.Sale     `json:"sale"`
}

// DefaultPaymentAmount suggests what the cashier still needs to collect:
// the open balance once any payment exists, otherwise the full total.
func DefaultPaymentAmount(total, paid decimal.Decimal) decimal.Decimal {
	if !paid.IsZero() {
		return total.Sub(paid)
	}
	return total
}

// paymentNextState decides where the session goes after a payment and
// whether settlement runs now. A sale that already left draft was settled
// in an earlier session, so only the payment itself is recorded.
func paymentNextState(total, paid decimal.Decimal, state models.SaleState) (string, bool) {
	if !total.Equal(paid) {
		return PaymentStateStart, false
	}
	if state != models.SaleStateDraft {
		return PaymentStateEnd, false
	}
	return PaymentStateEnd, true
}

// DefaultSalePaymentForm builds the start view of the payment session.
func DefaultSalePaymentForm(ctx context.Context, saleId int) (*SalePaymentForm, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	sale, err := utils.FetchModel[models.Sale](ctx, businessId, saleId, "Lines", "Device", "Device.Journals")
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	device := sale.Device
	if device == nil {
		device, err = models.UserDevice(ctx, db.WithContext(ctx), businessId)
		if err != nil {
			return nil, err
		}
	}

	form := SalePaymentForm{
		SaleId:         sale.ID,
		CurrencyDigits: sale.CurrencyDigits,
		PartyId:        sale.PartyId,
	}
	if device != nil {
		form.JournalId = device.JournalId
		form.Journals = device.Journals
	}

	paid, err := sale.PaidAmount(db.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	form.PaymentAmount = DefaultPaymentAmount(sale.Total(), paid)

	return &form, nil
}

// PaySale commits one payment for the sale and decides the next state of the
// session. When the payment covers the balance of a still-draft sale, the
// settlement workflow runs in the same transaction, so the cashier either
// gets a settled sale or an untouched one.
func PaySale(ctx context.Context, saleId int, input *PaySaleInput) (*PaySaleResult, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	logger := config.GetLogger()

	// Two cashiers working the same sale would both read the same balance.
	// The session lock closes that window without touching the database.
	if !config.PaymentSessionLockDisabled() {
		lock, err := utils.ObtainBusinessLock(ctx, businessId,
			fmt.Sprintf("PaySale:%d", saleId), "paymentWizard.go", "PaySale")
		if err != nil {
			return nil, err
		}
		defer lock.Release(ctx)
	}

	journal, err := utils.FetchModel[models.StatementJournal](ctx, businessId, input.JournalId)
	if err != nil {
		return nil, err
	}

	today, err := models.BusinessToday(ctx, businessId)
	if err != nil {
		return nil, err
	}

	result := PaySaleResult{}
	db := config.GetDB()
	err = db.Transaction(func(tx *gorm.DB) error {

		statement, err := models.FindDraftStatement(tx.WithContext(ctx), businessId, journal)
		if err != nil {
			return err
		}

		var sale models.Sale
		err = tx.WithContext(ctx).Where("business_id = ?", businessId).
			Preload("Lines").
			First(&sale, saleId).Error
		if err != nil {
			return err
		}
		if err := models.SetSaleNumberTx(ctx, tx, &sale); err != nil {
			return err
		}

		var party models.Party
		err = tx.WithContext(ctx).Where("business_id = ?", businessId).
			First(&party, sale.PartyId).Error
		if err != nil {
			return err
		}
		account, err := party.ReceivableAccount(tx.WithContext(ctx))
		if err != nil {
			return err
		}

		if !input.PaymentAmount.IsZero() {
			saleRef := sale.ID
			payment := models.StatementLine{
				BusinessId:  businessId,
				StatementId: statement.ID,
				Date:        today,
				Amount:      input.PaymentAmount,
				PartyId:     sale.PartyId,
				AccountId:   account.ID,
				SaleId:      &saleRef,
				Description: sale.Number,
			}
			if err := tx.WithContext(ctx).Create(&payment).Error; err != nil {
				config.LogError(logger, "paymentWizard.go", "PaySale", "CreatePayment", payment, err)
				return err
			}
		}

		paid, err := sale.PaidAmount(tx)
		if err != nil {
			return err
		}
		nextState, settle := paymentNextState(sale.Total(), paid, sale.State)
		result.NextState = nextState
		if !settle {
			return nil
		}

		if err := tx.WithContext(ctx).Model(&sale).
			Update("Description", sale.Reference).Error; err != nil {
			return err
		}
		sale.Description = sale.Reference

		if err := AcquireBusinessSettleLock(tx.WithContext(ctx), businessId); err != nil {
			return err
		}
		defer ReleaseBusinessSettleLock(tx.WithContext(ctx), businessId)

		return AdvanceAndSettleTx(ctx, tx, logger, businessId, []int{sale.ID})
	})
	if err != nil {
		return nil, err
	}

	if result.NextState == PaymentStateStart {
		form, err := DefaultSalePaymentForm(ctx, saleId)
		if err != nil {
			return nil, err
		}
		result.Form = form
	}

	sale, err := models.GetSale(ctx, saleId)
	if err != nil {
		return nil, err
	}
	result.Sale = sale

	return &result, nil
}
