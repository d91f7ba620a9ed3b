package workflow

import (
	"context"
	"errors"

	"bitbucket.org/mmsoftwarehouse/salepay_backend/config"
	"bitbucket.org/mmsoftwarehouse/salepay_backend/models"
	"bitbucket.org/mmsoftwarehouse/salepay_backend/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ReconcileSalesTx closes out the receivable for each sale: the open lines
// from its invoices against the open lines from its payment moves. A sale
// whose lines do not sum to exactly zero is skipped, never partially
// reconciled, so rounding or timing mismatches stay open for manual review.
func ReconcileSalesTx(ctx context.Context, tx *gorm.DB, logger *logrus.Logger, businessId string, saleIds []int) error {

	today, err := models.BusinessToday(ctx, businessId)
	if err != nil {
		config.LogError(logger, "reconcileWorkflow.go", "ReconcileSalesTx", "BusinessToday", businessId, err)
		return err
	}

	invoiceIds := make([]int, 0)
	for _, saleId := range utils.UniqueSlice(saleIds) {
		var sale models.Sale
		err := tx.WithContext(ctx).Where("business_id = ?", businessId).
			First(&sale, saleId).Error
		if err != nil {
			config.LogError(logger, "reconcileWorkflow.go", "ReconcileSalesTx", "GetSale", saleId, err)
			return err
		}

		var party models.Party
		err = tx.WithContext(ctx).Where("business_id = ?", businessId).
			First(&party, sale.PartyId).Error
		if err != nil {
			config.LogError(logger, "reconcileWorkflow.go", "ReconcileSalesTx", "GetParty", sale.PartyId, err)
			return err
		}
		account, err := party.ReceivableAccount(tx.WithContext(ctx))
		if err != nil {
			return err
		}

		invoices, err := models.InvoicesForSale(tx, businessId, sale.ID)
		if err != nil {
			config.LogError(logger, "reconcileWorkflow.go", "ReconcileSalesTx", "InvoicesForSale", sale.ID, err)
			return err
		}
		saleInvoiceIds := make([]int, 0, len(invoices))
		for _, invoice := range invoices {
			saleInvoiceIds = append(saleInvoiceIds, invoice.ID)
		}
		// grouped invoicing can share one invoice across the batch
		invoiceIds = utils.MergeIntSlices(invoiceIds, saleInvoiceIds)

		lines := make([]models.MoveLine, 0)
		for _, invoice := range invoices {
			toPay, err := invoice.LinesToPay(tx)
			if err != nil {
				config.LogError(logger, "reconcileWorkflow.go", "ReconcileSalesTx", "LinesToPay", invoice.ID, err)
				return err
			}
			lines = append(lines, toPay...)
		}

		payments, err := models.PaymentsForSale(tx, businessId, sale.ID)
		if err != nil {
			config.LogError(logger, "reconcileWorkflow.go", "ReconcileSalesTx", "PaymentsForSale", sale.ID, err)
			return err
		}
		for _, payment := range payments {
			if payment.MoveId == nil {
				continue
			}
			var moveLines []models.MoveLine
			err = tx.WithContext(ctx).
				Where("business_id = ? AND move_id = ? AND account_id = ? AND reconciliation_id IS NULL",
					businessId, *payment.MoveId, account.ID).
				Find(&moveLines).Error
			if err != nil {
				config.LogError(logger, "reconcileWorkflow.go", "ReconcileSalesTx", "PaymentMoveLines", payment.ID, err)
				return err
			}
			lines = append(lines, moveLines...)
		}

		if !models.ReconcilableToZero(lines) {
			config.LogWarn(logger, "reconcileWorkflow.go", "ReconcileSalesTx",
				"sale skipped, open lines missing or not balanced", sale.ID)
			continue
		}

		if _, err := models.ReconcileMoveLines(ctx, tx, businessId, today, lines); err != nil {
			config.LogError(logger, "reconcileWorkflow.go", "ReconcileSalesTx", "Reconcile", sale.ID, err)
			return err
		}
	}

	// One paid check per touched invoice, after the whole batch, so an
	// invoice completed by a sibling sale's reconciliation still flips.
	for _, invoiceId := range invoiceIds {
		var invoice models.Invoice
		err := tx.WithContext(ctx).Where("business_id = ?", businessId).
			First(&invoice, invoiceId).Error
		if err != nil {
			config.LogError(logger, "reconcileWorkflow.go", "ReconcileSalesTx", "GetInvoice", invoiceId, err)
			return err
		}
		if err := models.MarkInvoicePaidIfSettled(ctx, tx, &invoice); err != nil {
			config.LogError(logger, "reconcileWorkflow.go", "ReconcileSalesTx", "MarkInvoicePaid", invoiceId, err)
			return err
		}
	}

	return nil
}

// ReconcileSales runs the reconciler in its own transaction, serialized per
// business.
func ReconcileSales(ctx context.Context, saleIds []int) error {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return errors.New("business id is required")
	}
	if len(saleIds) == 0 {
		return nil
	}

	logger := config.GetLogger()
	db := config.GetDB()
	return db.Transaction(func(tx *gorm.DB) error {
		if err := AcquireBusinessSettleLock(tx.WithContext(ctx), businessId); err != nil {
			return err
		}
		defer ReleaseBusinessSettleLock(tx.WithContext(ctx), businessId)

		return ReconcileSalesTx(ctx, tx, logger, businessId, saleIds)
	})
}
