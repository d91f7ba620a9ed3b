package models_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"testing"
	"time"

	"bitbucket.org/mmsoftwarehouse/salepay_backend/config"
	"bitbucket.org/mmsoftwarehouse/salepay_backend/models"
	"bitbucket.org/mmsoftwarehouse/salepay_backend/utils"
	"bitbucket.org/mmsoftwarehouse/salepay_backend/workflow"
	"github.com/shopspring/decimal"
)

// Full POS day against real MySQL and Redis: open a cash session, take
// payments through the wizard, close and post the session, then reconcile
// the receivable. A covered sale is done as soon as its invoice posts; the
// invoice itself only flips to paid once the statement posts and the
// receivable reconciles.
func TestPosDaySettlementLifecycle(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := context.Background()

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	// Wire env for config.Connect* helpers.
	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "salepay_test")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	models.MigrateTable()

	ctx = utils.SetUserIdInContext(ctx, 1)
	ctx = utils.SetUserNameInContext(ctx, "Test")

	biz, err := models.CreateBusiness(ctx, &models.NewBusiness{
		Name:           "Test POS Shop",
		Email:          "owner@test.local",
		Currency:       "MMK",
		CurrencyDigits: 2,
		Timezone:       "Asia/Yangon",
	})
	if err != nil {
		t.Fatalf("CreateBusiness: %v", err)
	}
	businessID := biz.ID.String()
	ctx = utils.SetBusinessIdInContext(ctx, businessID)

	db := config.GetDB()
	if db == nil {
		t.Fatalf("db is nil after ConnectDatabaseWithRetry")
	}

	// Chart of accounts: one receivable, one revenue, one cash account for
	// the counter journal.
	receivable, err := models.CreateAccount(ctx, &models.NewAccount{
		Kind: models.AccountKindReceivable, Name: "Accounts Receivable", Code: "1100",
	})
	if err != nil {
		t.Fatalf("CreateAccount(receivable): %v", err)
	}
	revenue, err := models.CreateAccount(ctx, &models.NewAccount{
		Kind: models.AccountKindRevenue, Name: "Sales Revenue", Code: "4000",
	})
	if err != nil {
		t.Fatalf("CreateAccount(revenue): %v", err)
	}
	cash, err := models.CreateAccount(ctx, &models.NewAccount{
		Kind: models.AccountKindCash, Name: "Cash on Hand", Code: "1000",
	})
	if err != nil {
		t.Fatalf("CreateAccount(cash): %v", err)
	}

	party, err := models.CreateParty(ctx, &models.NewParty{
		Name:                "U Ba",
		ReceivableAccountId: &receivable.ID,
	})
	if err != nil {
		t.Fatalf("CreateParty: %v", err)
	}

	journal, err := models.CreateStatementJournal(ctx, &models.NewStatementJournal{
		Name: "Front Counter", Currency: "MMK", AccountId: cash.ID,
	})
	if err != nil {
		t.Fatalf("CreateStatementJournal: %v", err)
	}

	device, err := models.CreateSaleDevice(ctx, &models.NewSaleDevice{
		Name:       "Counter 1",
		JournalId:  &journal.ID,
		JournalIds: []int{journal.ID},
	})
	if err != nil {
		t.Fatalf("CreateSaleDevice: %v", err)
	}

	saleDate := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)

	// Sale 1: 3 x 25 + 1 x 75 = 150.
	sale1, err := models.CreateSale(ctx, &models.NewSale{
		PartyId:   party.ID,
		DeviceId:  &device.ID,
		Reference: "POS-1001",
		Date:      saleDate,
		Lines: []models.NewSaleLine{
			{Description: "Shan tea", Quantity: decimal.NewFromInt(3), UnitPrice: decimal.NewFromInt(25), AccountId: revenue.ID},
			{Description: "Coffee beans", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(75), AccountId: revenue.ID},
		},
	})
	if err != nil {
		t.Fatalf("CreateSale(1): %v", err)
	}
	if sale1.InvoiceMethod != models.InvoiceMethodOrder {
		t.Fatalf("expected default invoice method order; got %s", sale1.InvoiceMethod)
	}

	// The payment form defaults to the device journal and the full total.
	form, err := workflow.DefaultSalePaymentForm(ctx, sale1.ID)
	if err != nil {
		t.Fatalf("DefaultSalePaymentForm: %v", err)
	}
	if form.JournalId == nil || *form.JournalId != journal.ID {
		t.Fatalf("expected form journal %d; got %v", journal.ID, form.JournalId)
	}
	if form.PartyId != party.ID {
		t.Fatalf("expected form party %d; got %d", party.ID, form.PartyId)
	}
	if form.PaymentAmount.Cmp(decimal.NewFromInt(150)) != 0 {
		t.Fatalf("expected suggested amount 150; got %s", form.PaymentAmount.String())
	}

	// No cash session is open yet, so paying must refuse by name.
	_, err = workflow.PaySale(ctx, sale1.ID, &workflow.PaySaleInput{
		JournalId: journal.ID, PaymentAmount: decimal.NewFromInt(100),
	})
	var noDraft *models.NoDraftStatementError
	if !errors.As(err, &noDraft) {
		t.Fatalf("expected NoDraftStatementError; got %v", err)
	}
	if noDraft.Journal != "Front Counter" {
		t.Fatalf("expected journal name in error; got %q", noDraft.Journal)
	}

	stmt, err := models.CreateStatement(ctx, &models.NewStatement{
		JournalId: journal.ID, Date: saleDate,
	})
	if err != nil {
		t.Fatalf("CreateStatement: %v", err)
	}
	if stmt.State != models.StatementStateDraft {
		t.Fatalf("expected draft statement; got %s", stmt.State)
	}

	// Partial payment keeps the session on the form with the open balance.
	res, err := workflow.PaySale(ctx, sale1.ID, &workflow.PaySaleInput{
		JournalId: journal.ID, PaymentAmount: decimal.NewFromInt(100),
	})
	if err != nil {
		t.Fatalf("PaySale(100): %v", err)
	}
	if res.NextState != workflow.PaymentStateStart {
		t.Fatalf("expected next state start; got %s", res.NextState)
	}
	if res.Form == nil || res.Form.PaymentAmount.Cmp(decimal.NewFromInt(50)) != 0 {
		t.Fatalf("expected re-opened form suggesting 50; got %+v", res.Form)
	}
	if res.Sale.State != models.SaleStateDraft {
		t.Fatalf("partial payment must not advance the sale; got %s", res.Sale.State)
	}

	// Covering payment settles in the same transaction: the invoice posts,
	// the residual hits zero and the sale is done before the cashier sees
	// the response.
	res, err = workflow.PaySale(ctx, sale1.ID, &workflow.PaySaleInput{
		JournalId: journal.ID, PaymentAmount: decimal.NewFromInt(50),
	})
	if err != nil {
		t.Fatalf("PaySale(50): %v", err)
	}
	if res.NextState != workflow.PaymentStateEnd {
		t.Fatalf("expected next state end; got %s", res.NextState)
	}
	if res.Form != nil {
		t.Fatalf("expected no form on end; got %+v", res.Form)
	}
	if res.Sale.State != models.SaleStateDone {
		t.Fatalf("expected sale done after settle; got %s", res.Sale.State)
	}
	if res.Sale.Number == "" {
		t.Fatalf("expected sale number assigned on payment")
	}

	// Settlement generated and posted the order invoice.
	invoices, err := models.GetInvoices(ctx, &party.ID, nil)
	if err != nil {
		t.Fatalf("GetInvoices: %v", err)
	}
	if len(invoices) != 1 {
		t.Fatalf("expected 1 invoice; got %d", len(invoices))
	}
	invoice1 := invoices[0]
	if invoice1.State != models.InvoiceStatePosted {
		t.Fatalf("expected invoice posted; got %s", invoice1.State)
	}
	if invoice1.TotalAmount.Cmp(decimal.NewFromInt(150)) != 0 {
		t.Fatalf("expected invoice total 150; got %s", invoice1.TotalAmount.String())
	}
	if invoice1.MoveId == nil {
		t.Fatalf("expected invoice move written on post")
	}
	if !strings.HasPrefix(invoice1.Number, "INV-") {
		t.Fatalf("expected invoice number; got %q", invoice1.Number)
	}
	for _, line := range invoice1.Lines {
		if line.OriginKind != models.OriginKindSaleLine || line.OriginId == nil {
			t.Fatalf("expected invoice line traced to a sale line; got %+v", line)
		}
	}

	// Both payments are attributed to the posted invoice.
	var sale1Payments []models.StatementLine
	if err := db.WithContext(ctx).Where("sale_id = ?", sale1.ID).Order("id").Find(&sale1Payments).Error; err != nil {
		t.Fatalf("fetch sale1 payments: %v", err)
	}
	if len(sale1Payments) != 2 {
		t.Fatalf("expected 2 payments for sale1; got %d", len(sale1Payments))
	}
	for _, p := range sale1Payments {
		if p.InvoiceId == nil || *p.InvoiceId != invoice1.ID {
			t.Fatalf("expected payment %d attributed to invoice %d; got %v", p.ID, invoice1.ID, p.InvoiceId)
		}
		if p.AccountId != receivable.ID {
			t.Fatalf("expected payment on receivable account; got %d", p.AccountId)
		}
	}

	sale1Loaded, err := models.GetSale(ctx, sale1.ID)
	if err != nil {
		t.Fatalf("GetSale(1): %v", err)
	}
	paid, err := sale1Loaded.PaidAmount(db.WithContext(ctx))
	if err != nil {
		t.Fatalf("PaidAmount: %v", err)
	}
	if paid.Cmp(decimal.NewFromInt(150)) != 0 {
		t.Fatalf("expected paid 150; got %s", paid.String())
	}
	residual, err := sale1Loaded.ResidualAmount(db.WithContext(ctx))
	if err != nil {
		t.Fatalf("ResidualAmount: %v", err)
	}
	if !residual.IsZero() {
		t.Fatalf("expected residual 0; got %s", residual.String())
	}

	// Fully paid means not outstanding, even though the invoice is still
	// only posted.
	outstanding, err := models.GetOutstandingSales(ctx, nil)
	if err != nil {
		t.Fatalf("GetOutstandingSales: %v", err)
	}
	if len(outstanding) != 0 {
		t.Fatalf("expected no outstanding sales; got %d", len(outstanding))
	}

	// Sale 2: 4 x 20 = 80, paid 30 and settled explicitly while short.
	sale2, err := models.CreateSale(ctx, &models.NewSale{
		PartyId:   party.ID,
		DeviceId:  &device.ID,
		Reference: "POS-1002",
		Date:      saleDate,
		Lines: []models.NewSaleLine{
			{Description: "Palm sugar", Quantity: decimal.NewFromInt(4), UnitPrice: decimal.NewFromInt(20), AccountId: revenue.ID},
		},
	})
	if err != nil {
		t.Fatalf("CreateSale(2): %v", err)
	}
	res, err = workflow.PaySale(ctx, sale2.ID, &workflow.PaySaleInput{
		JournalId: journal.ID, PaymentAmount: decimal.NewFromInt(30),
	})
	if err != nil {
		t.Fatalf("PaySale(sale2, 30): %v", err)
	}
	if res.NextState != workflow.PaymentStateStart || res.Sale.State != models.SaleStateDraft {
		t.Fatalf("expected short-paid sale2 to stay draft on start; got %s/%s", res.NextState, res.Sale.State)
	}

	if err := workflow.AdvanceAndSettle(ctx, []int{sale2.ID}); err != nil {
		t.Fatalf("AdvanceAndSettle(sale2): %v", err)
	}
	sale2Loaded, err := models.GetSale(ctx, sale2.ID)
	if err != nil {
		t.Fatalf("GetSale(2): %v", err)
	}
	if sale2Loaded.State != models.SaleStateProcessing {
		t.Fatalf("expected sale2 processing; got %s", sale2Loaded.State)
	}
	invoices, err = models.GetInvoices(ctx, &party.ID, nil)
	if err != nil {
		t.Fatalf("GetInvoices: %v", err)
	}
	if len(invoices) != 2 {
		t.Fatalf("expected 2 invoices; got %d", len(invoices))
	}
	var invoice2 *models.Invoice
	for _, inv := range invoices {
		if inv.ID != invoice1.ID {
			invoice2 = inv
		}
	}
	if invoice2 == nil || invoice2.State != models.InvoiceStatePosted ||
		invoice2.TotalAmount.Cmp(decimal.NewFromInt(80)) != 0 {
		t.Fatalf("expected posted invoice2 over 80; got %+v", invoice2)
	}

	// Sale2 has a frozen total above its payments and a posted invoice, so it
	// is the one outstanding sale.
	outstanding, err = models.GetOutstandingSales(ctx, nil)
	if err != nil {
		t.Fatalf("GetOutstandingSales: %v", err)
	}
	if len(outstanding) != 1 || outstanding[0].ID != sale2.ID {
		t.Fatalf("expected outstanding = [sale2]; got %+v", outstanding)
	}
	yes := true
	conn, err := models.PaginateSales(ctx, nil, nil, nil, nil, nil, nil, nil, &yes)
	if err != nil {
		t.Fatalf("PaginateSales(outstanding): %v", err)
	}
	if len(conn.Edges) != 1 || conn.Edges[0].Node.ID != sale2.ID {
		t.Fatalf("expected paginated outstanding = [sale2]; got %d edges", len(conn.Edges))
	}

	// A party without a receivable account cannot take payments.
	walkIn, err := models.CreateParty(ctx, &models.NewParty{Name: "Walk In"})
	if err != nil {
		t.Fatalf("CreateParty(walk-in): %v", err)
	}
	sale3, err := models.CreateSale(ctx, &models.NewSale{
		PartyId:  walkIn.ID,
		DeviceId: &device.ID,
		Date:     saleDate,
		Lines: []models.NewSaleLine{
			{Description: "Candle", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(10), AccountId: revenue.ID},
		},
	})
	if err != nil {
		t.Fatalf("CreateSale(3): %v", err)
	}
	_, err = workflow.PaySale(ctx, sale3.ID, &workflow.PaySaleInput{
		JournalId: journal.ID, PaymentAmount: decimal.NewFromInt(10),
	})
	var noAccount *models.MissingReceivableAccountError
	if !errors.As(err, &noAccount) {
		t.Fatalf("expected MissingReceivableAccountError; got %v", err)
	}
	if noAccount.Party != "Walk In" {
		t.Fatalf("expected party name in error; got %q", noAccount.Party)
	}

	// An order-invoiced sale with nothing invoiceable cannot settle, and the
	// failed run leaves no trace.
	sale4, err := models.CreateSale(ctx, &models.NewSale{
		PartyId:   party.ID,
		DeviceId:  &device.ID,
		Reference: "POS-1004",
		Date:      saleDate,
		Lines: []models.NewSaleLine{
			{Description: "Placeholder", Quantity: decimal.Zero, UnitPrice: decimal.NewFromInt(10), AccountId: revenue.ID},
		},
	})
	if err != nil {
		t.Fatalf("CreateSale(4): %v", err)
	}
	err = workflow.AdvanceAndSettle(ctx, []int{sale4.ID})
	var noInvoice *models.MissingInvoiceError
	if !errors.As(err, &noInvoice) {
		t.Fatalf("expected MissingInvoiceError; got %v", err)
	}
	if noInvoice.Reference != "POS-1004" {
		t.Fatalf("expected sale reference in error; got %q", noInvoice.Reference)
	}
	sale4Loaded, err := models.GetSale(ctx, sale4.ID)
	if err != nil {
		t.Fatalf("GetSale(4): %v", err)
	}
	if sale4Loaded.State != models.SaleStateDraft {
		t.Fatalf("expected failed settle rolled back to draft; got %s", sale4Loaded.State)
	}

	// A cashier without a device cannot open the payment form for a sale
	// that has none either.
	cashier, err := models.CreateUser(ctx, &models.NewUser{
		BusinessId: businessID,
		Username:   "cashier1",
		Name:       "Cashier One",
		Password:   "S3cret!pw",
		IsActive:   utils.NewTrue(),
		Role:       models.RoleCashier,
	})
	if err != nil {
		t.Fatalf("CreateUser(cashier): %v", err)
	}
	sale5, err := models.CreateSale(ctx, &models.NewSale{
		PartyId: party.ID,
		Date:    saleDate,
		Lines: []models.NewSaleLine{
			{Description: "Soap", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(5), AccountId: revenue.ID},
		},
	})
	if err != nil {
		t.Fatalf("CreateSale(5): %v", err)
	}
	cashierCtx := utils.SetUserIdInContext(ctx, cashier.ID)
	_, err = workflow.DefaultSalePaymentForm(cashierCtx, sale5.ID)
	var noDevice *models.NoSaleDeviceError
	if !errors.As(err, &noDevice) {
		t.Fatalf("expected NoSaleDeviceError; got %v", err)
	}
	if noDevice.Username != "cashier1" {
		t.Fatalf("expected username in error; got %q", noDevice.Username)
	}

	// Close the session: validate, then post. Posting writes one move per
	// payment, cash against receivable.
	if _, err := models.ValidateStatement(ctx, stmt.ID); err != nil {
		t.Fatalf("ValidateStatement: %v", err)
	}
	posted, err := models.PostStatement(ctx, stmt.ID)
	if err != nil {
		t.Fatalf("PostStatement: %v", err)
	}
	if posted.State != models.StatementStatePosted {
		t.Fatalf("expected statement posted; got %s", posted.State)
	}

	var sessionLines []models.StatementLine
	if err := db.WithContext(ctx).Where("statement_id = ?", stmt.ID).Order("id").Find(&sessionLines).Error; err != nil {
		t.Fatalf("fetch statement lines: %v", err)
	}
	if len(sessionLines) != 3 {
		t.Fatalf("expected 3 session payments; got %d", len(sessionLines))
	}
	for _, line := range sessionLines {
		if line.MoveId == nil {
			t.Fatalf("expected move on payment %d after post", line.ID)
		}
		var moveLines []models.MoveLine
		if err := db.WithContext(ctx).Where("move_id = ?", *line.MoveId).Find(&moveLines).Error; err != nil {
			t.Fatalf("fetch move lines: %v", err)
		}
		if len(moveLines) != 2 {
			t.Fatalf("expected a two-line move; got %d", len(moveLines))
		}
		for _, ml := range moveLines {
			switch ml.AccountId {
			case cash.ID:
				if ml.Debit.Cmp(line.Amount) != 0 {
					t.Fatalf("expected cash debit %s; got %s", line.Amount.String(), ml.Debit.String())
				}
			case receivable.ID:
				if ml.Credit.Cmp(line.Amount) != 0 {
					t.Fatalf("expected receivable credit %s; got %s", line.Amount.String(), ml.Credit.String())
				}
			default:
				t.Fatalf("unexpected account %d on payment move", ml.AccountId)
			}
		}
	}

	// Receivable before reconciling: two invoice debits (150, 80) against
	// three payment credits (100, 50, 30).
	open, err := models.UnreconciledReceivableLines(ctx, party.ID)
	if err != nil {
		t.Fatalf("UnreconciledReceivableLines: %v", err)
	}
	if len(open) != 5 {
		t.Fatalf("expected 5 open receivable lines; got %d", len(open))
	}
	if models.SignedSum(open).Cmp(decimal.NewFromInt(50)) != 0 {
		t.Fatalf("expected open balance 50; got %s", models.SignedSum(open).String())
	}

	// Reconcile both sales in one batch: sale1 nets to zero and closes,
	// sale2 is short by 50 and must be skipped without an error.
	if err := workflow.ReconcileSales(ctx, []int{sale1.ID, sale2.ID}); err != nil {
		t.Fatalf("ReconcileSales: %v", err)
	}

	invoice1Loaded, err := models.GetInvoice(ctx, invoice1.ID)
	if err != nil {
		t.Fatalf("GetInvoice(1): %v", err)
	}
	if invoice1Loaded.State != models.InvoiceStatePaid {
		t.Fatalf("expected invoice1 paid after reconcile; got %s", invoice1Loaded.State)
	}
	invoice2Loaded, err := models.GetInvoice(ctx, invoice2.ID)
	if err != nil {
		t.Fatalf("GetInvoice(2): %v", err)
	}
	if invoice2Loaded.State != models.InvoiceStatePosted {
		t.Fatalf("expected invoice2 still posted; got %s", invoice2Loaded.State)
	}

	var recs []models.Reconciliation
	if err := db.WithContext(ctx).Find(&recs).Error; err != nil {
		t.Fatalf("fetch reconciliations: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 reconciliation; got %d", len(recs))
	}
	if !strings.HasPrefix(recs[0].Name, "RCL-") {
		t.Fatalf("expected reconciliation number; got %q", recs[0].Name)
	}
	var reconciled int64
	if err := db.WithContext(ctx).Model(&models.MoveLine{}).
		Where("reconciliation_id = ?", recs[0].ID).Count(&reconciled).Error; err != nil {
		t.Fatalf("count reconciled lines: %v", err)
	}
	if reconciled != 3 {
		t.Fatalf("expected 3 reconciled lines (150 vs 100+50); got %d", reconciled)
	}

	open, err = models.UnreconciledReceivableLines(ctx, party.ID)
	if err != nil {
		t.Fatalf("UnreconciledReceivableLines: %v", err)
	}
	if len(open) != 2 {
		t.Fatalf("expected sale2's 2 lines to stay open; got %d", len(open))
	}
	if models.SignedSum(open).Cmp(decimal.NewFromInt(50)) != 0 {
		t.Fatalf("expected open balance still 50; got %s", models.SignedSum(open).String())
	}

	// Reconciling moved no sale: sale1 was done the moment its covering
	// payment settled, sale2 stays processing until its balance clears.
	sale1Loaded, err = models.GetSale(ctx, sale1.ID)
	if err != nil {
		t.Fatalf("GetSale(1): %v", err)
	}
	if sale1Loaded.State != models.SaleStateDone {
		t.Fatalf("expected sale1 done; got %s", sale1Loaded.State)
	}
	sale2Loaded, err = models.GetSale(ctx, sale2.ID)
	if err != nil {
		t.Fatalf("GetSale(2): %v", err)
	}
	if sale2Loaded.State != models.SaleStateProcessing {
		t.Fatalf("expected sale2 still processing; got %s", sale2Loaded.State)
	}

	// Re-running the batch is harmless: no state change, no rewrite of the
	// already-attributed payments.
	var before []models.StatementLine
	if err := db.WithContext(ctx).Order("id").Find(&before).Error; err != nil {
		t.Fatalf("fetch payments before repeat: %v", err)
	}
	if err := workflow.AdvanceAndSettle(ctx, []int{sale1.ID, sale2.ID}); err != nil {
		t.Fatalf("AdvanceAndSettle(repeat): %v", err)
	}
	sale1Loaded, err = models.GetSale(ctx, sale1.ID)
	if err != nil {
		t.Fatalf("GetSale(1): %v", err)
	}
	if sale1Loaded.State != models.SaleStateDone {
		t.Fatalf("expected sale1 to stay done; got %s", sale1Loaded.State)
	}
	var after []models.StatementLine
	if err := db.WithContext(ctx).Order("id").Find(&after).Error; err != nil {
		t.Fatalf("fetch payments after repeat: %v", err)
	}
	if len(before) != len(after) {
		t.Fatalf("repeat settle changed the payment count: %d -> %d", len(before), len(after))
	}
	for i := range before {
		if !before[i].UpdatedAt.Equal(after[i].UpdatedAt) {
			t.Fatalf("repeat settle rewrote payment %d", before[i].ID)
		}
	}

	// The posted session is closed for business.
	_, err = workflow.PaySale(ctx, sale2.ID, &workflow.PaySaleInput{
		JournalId: journal.ID, PaymentAmount: decimal.NewFromInt(50),
	})
	if !errors.As(err, &noDraft) {
		t.Fatalf("expected NoDraftStatementError after post; got %v", err)
	}

	// Sale2 remains the one outstanding sale for the collections report.
	outstanding, err = models.GetOutstandingSales(ctx, &party.ID)
	if err != nil {
		t.Fatalf("GetOutstandingSales(party): %v", err)
	}
	if len(outstanding) != 1 || outstanding[0].ID != sale2.ID {
		t.Fatalf("expected outstanding = [sale2]; got %d", len(outstanding))
	}

	// The audit trail has sale1's whole life: the create plus one row per
	// transition, each stamped with the acting user.
	salesRef := "sales"
	trail, err := models.GetHistories(ctx, &sale1.ID, &salesRef, nil)
	if err != nil {
		t.Fatalf("GetHistories(sale1): %v", err)
	}
	if len(trail) != 5 {
		t.Fatalf("expected 5 audit rows for sale1 (create + 4 transitions); got %d", len(trail))
	}
	creates := 0
	for _, h := range trail {
		if h.UserName != "Test" {
			t.Fatalf("expected audit rows stamped with the acting user; got %q", h.UserName)
		}
		if h.ActionType == "CREATE" {
			creates++
		}
	}
	if creates != 1 {
		t.Fatalf("expected exactly 1 create row for sale1; got %d", creates)
	}

	// Sale4's failed settle rolled back, so only its create row survives.
	trail, err = models.GetHistories(ctx, &sale4.ID, &salesRef, nil)
	if err != nil {
		t.Fatalf("GetHistories(sale4): %v", err)
	}
	if len(trail) != 1 || trail[0].ActionType != "CREATE" {
		t.Fatalf("expected only sale4's create row after the rollback; got %d rows", len(trail))
	}
}

func startRedisContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("salepay-test-redis-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-p", "127.0.0.1:0:6379",
		"redis:7-alpine",
	)
	if err != nil {
		t.Fatalf("start redis container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "6379/tcp")
	if err != nil {
		t.Fatalf("redis docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "redis-cli", "ping")
		if err == nil {
			return name, port
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("redis did not become ready")
	return "", ""
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("salepay-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=salepay_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
		"--default-authentication-plugin=mysql_native_password",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	// Example: "127.0.0.1:49154\n"
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
