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

// AdvanceAndSettleTx drives a batch of sales towards done inside the caller's
// transaction. The phases run strictly in order: lifecycle advance, invoice
// finalize and post, payment attribution, done transition. Payments can only
// be attributed to posted invoices, so the order is not negotiable.
func AdvanceAndSettleTx(ctx context.Context, tx *gorm.DB, logger *logrus.Logger, businessId string, saleIds []int) error {

	today, err := models.BusinessToday(ctx, businessId)
	if err != nil {
		config.LogError(logger, "saleSettlementWorkflow.go", "AdvanceAndSettleTx", "BusinessToday", businessId, err)
		return err
	}

	// Dedupe so a sale repeated in the request is loaded and advanced once.
	saleIds = utils.UniqueSlice(saleIds)
	sales := make([]*models.Sale, 0, len(saleIds))
	for _, saleId := range saleIds {
		var sale models.Sale
		err := tx.WithContext(ctx).Where("business_id = ?", businessId).
			Preload("Lines").
			First(&sale, saleId).Error
		if err != nil {
			config.LogError(logger, "saleSettlementWorkflow.go", "AdvanceAndSettleTx", "GetSale", saleId, err)
			return err
		}
		sales = append(sales, &sale)
	}

	// Phase 1: advance each sale as far as processing, then fix up and stage
	// the draft invoices. Staging spans the whole batch so one write and one
	// post cover every sale.
	invoiceWrites := make([]models.InvoiceWrite, 0)
	toPost := make([]*models.Invoice, 0)
	for _, sale := range sales {
		if sale.State == models.SaleStateDraft {
			if err := models.QuoteSaleTx(ctx, tx, sale); err != nil {
				config.LogError(logger, "saleSettlementWorkflow.go", "AdvanceAndSettleTx", "QuoteSale", sale.ID, err)
				return err
			}
		}
		if sale.State == models.SaleStateQuotation {
			if err := models.ConfirmSaleTx(ctx, tx, sale); err != nil {
				config.LogError(logger, "saleSettlementWorkflow.go", "AdvanceAndSettleTx", "ConfirmSale", sale.ID, err)
				return err
			}
		}
		if sale.State == models.SaleStateConfirmed {
			if err := models.ProcessSaleTx(ctx, tx, sale); err != nil {
				config.LogError(logger, "saleSettlementWorkflow.go", "AdvanceAndSettleTx", "ProcessSale", sale.ID, err)
				return err
			}
		}

		invoices, err := models.InvoicesForSale(tx, businessId, sale.ID)
		if err != nil {
			config.LogError(logger, "saleSettlementWorkflow.go", "AdvanceAndSettleTx", "InvoicesForSale", sale.ID, err)
			return err
		}
		if len(invoices) == 0 && sale.InvoiceMethod == models.InvoiceMethodOrder {
			return &models.MissingInvoiceError{Reference: sale.RecName()}
		}

		var party models.Party
		err = tx.WithContext(ctx).Where("business_id = ?", businessId).
			First(&party, sale.PartyId).Error
		if err != nil {
			config.LogError(logger, "saleSettlementWorkflow.go", "AdvanceAndSettleTx", "GetParty", sale.PartyId, err)
			return err
		}
		// Grouped invoicing collects lines from several sales into one
		// invoice later, so per-sale finalize/post must stay out of the way.
		if utils.DereferencePtr(party.InvoiceGrouping) {
			continue
		}

		for _, invoice := range invoices {
			if invoice.State != models.InvoiceStateDraft {
				continue
			}
			delta := models.InvoiceDelta{}
			if invoice.Date == nil {
				invoiceDate := today
				invoice.Date = &invoiceDate
				delta.Date = &invoiceDate
			}
			description := sale.Reference
			invoice.Description = description
			delta.Description = &description
			invoiceWrites = append(invoiceWrites, models.InvoiceWrite{InvoiceId: invoice.ID, Delta: delta})
			toPost = append(toPost, invoice)
		}
	}

	if len(toPost) > 0 {
		if err := models.BatchWriteInvoices(tx, invoiceWrites); err != nil {
			config.LogError(logger, "saleSettlementWorkflow.go", "AdvanceAndSettleTx", "BatchWriteInvoices", len(invoiceWrites), err)
			return err
		}
		if err := models.PostInvoicesTx(ctx, tx, toPost); err != nil {
			config.LogError(logger, "saleSettlementWorkflow.go", "AdvanceAndSettleTx", "PostInvoices", len(toPost), err)
			return err
		}
	}

	// Phase 2: attribute every payment to the first posted invoice of its
	// sale. Payments on sales without a posted invoice stay unattributed
	// until a later run.
	paymentWrites := make([]models.StatementLineWrite, 0)
	toDo := make([]int, 0)
	for _, sale := range sales {
		invoices, err := models.InvoicesForSale(tx, businessId, sale.ID)
		if err != nil {
			config.LogError(logger, "saleSettlementWorkflow.go", "AdvanceAndSettleTx", "InvoicesForSale", sale.ID, err)
			return err
		}
		var posted *models.Invoice
		for _, invoice := range invoices {
			if invoice.State == models.InvoiceStatePosted {
				posted = invoice
				break
			}
		}
		if posted != nil {
			payments, err := models.PaymentsForSale(tx, businessId, sale.ID)
			if err != nil {
				config.LogError(logger, "saleSettlementWorkflow.go", "AdvanceAndSettleTx", "PaymentsForSale", sale.ID, err)
				return err
			}
			for _, payment := range payments {
				// Already attributed on a previous run, nothing to write.
				if payment.InvoiceId != nil && *payment.InvoiceId == posted.ID &&
					payment.PartyId == posted.PartyId {
					continue
				}
				invoiceId := posted.ID
				delta := models.StatementLineDelta{InvoiceId: &invoiceId}
				// A payment taken for a walk-in party is re-homed onto the
				// invoice party so both sides of the receivable agree.
				if payment.PartyId != posted.PartyId {
					partyId := posted.PartyId
					delta.PartyId = &partyId
				}
				paymentWrites = append(paymentWrites, models.StatementLineWrite{LineId: payment.ID, Delta: delta})
			}
		}

		done, err := models.IsSaleDoneTx(tx, sale)
		if err != nil {
			config.LogError(logger, "saleSettlementWorkflow.go", "AdvanceAndSettleTx", "IsSaleDone", sale.ID, err)
			return err
		}
		if done {
			toDo = append(toDo, sale.ID)
		}
	}

	if len(paymentWrites) > 0 {
		if err := models.BatchWriteStatementLines(tx, paymentWrites); err != nil {
			config.LogError(logger, "saleSettlementWorkflow.go", "AdvanceAndSettleTx", "BatchWriteStatementLines", len(paymentWrites), err)
			return err
		}
	}

	if err := models.DoSalesTx(ctx, tx, businessId, toDo); err != nil {
		config.LogError(logger, "saleSettlementWorkflow.go", "AdvanceAndSettleTx", "DoSales", toDo, err)
		return err
	}

	return nil
}

// AdvanceAndSettle runs the settlement workflow in its own transaction,
// serialized per business.
func AdvanceAndSettle(ctx context.Context, saleIds []int) error {

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

		return AdvanceAndSettleTx(ctx, tx, logger, businessId, saleIds)
	})
}
