package main

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"bitbucket.org/mmsoftwarehouse/salepay_backend/config"
	"bitbucket.org/mmsoftwarehouse/salepay_backend/middlewares"
	"bitbucket.org/mmsoftwarehouse/salepay_backend/models"
	"bitbucket.org/mmsoftwarehouse/salepay_backend/models/reports"
	"bitbucket.org/mmsoftwarehouse/salepay_backend/utils"
	"bitbucket.org/mmsoftwarehouse/salepay_backend/workflow"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8"`
}

type toggleActiveRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

type saleIdsRequest struct {
	SaleIds []int `json:"sale_ids" binding:"required,min=1"`
}

type assignDeviceRequest struct {
	DeviceId *int `json:"device_id"`
}

type lockDatesRequest struct {
	SalesLockDate      models.MyDateString `json:"sales_lock_date" binding:"required"`
	AccountantLockDate models.MyDateString `json:"accountant_lock_date" binding:"required"`
}

func idParam(c *gin.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

func queryIntPtr(c *gin.Context, name string) *int {
	v := strings.TrimSpace(c.Query(name))
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil
	}
	return &n
}

func queryStringPtr(c *gin.Context, name string) *string {
	v := strings.TrimSpace(c.Query(name))
	if v == "" {
		return nil
	}
	return &v
}

func queryBoolPtr(c *gin.Context, name string) *bool {
	v := strings.TrimSpace(c.Query(name))
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil
	}
	return &b
}

func queryDate(c *gin.Context, name string) (models.MyDateString, error) {
	v := strings.TrimSpace(c.Query(name))
	if v == "" {
		return models.MyDateString{}, errors.New(name + " is required")
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return models.MyDateString{}, errors.New(name + " must be YYYY-MM-DD")
	}
	return models.MyDateString(t), nil
}

// respondError maps model errors to HTTP statuses. Missing rows become 404,
// everything else surfaces as a 400 with the model's message.
func respondError(c *gin.Context, err error) {
	if errors.Is(err, utils.ErrorRecordNotFound) || errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// startSpan opens a span for the money-moving endpoints. Read paths rely on
// the otelgorm instrumentation alone.
func startSpan(c *gin.Context, name string) (context.Context, trace.Span) {
	return tracer.Start(c.Request.Context(), name)
}

func loginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		info, err := models.Login(c.Request.Context(), req.Username, req.Password)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": info})
	}
}

func logoutHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, err := models.Logout(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": ok})
	}
}

func changePasswordHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req changePasswordRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		user, err := models.ChangePassword(c.Request.Context(), req.OldPassword, req.NewPassword)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": user})
	}
}

// bootstrapHandler hands the device its startup snapshot. The payload is
// pre-marshalled, so it goes out as raw JSON.
func bootstrapHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		businessId, ok := utils.GetBusinessIdFromContext(ctx)
		if !ok || businessId == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "business id is required"})
			return
		}
		snapshot, err := models.GetBootstrapSnapshot(ctx, businessId)
		if err != nil {
			respondError(c, err)
			return
		}
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(snapshot))
	}
}

type saleListRow struct {
	*models.Sale
	PartyName   string  `json:"party_name"`
	DeviceName  *string `json:"device_name,omitempty"`
	TotalAmount string  `json:"total_amount"`
	PaidAmount  string  `json:"paid_amount"`
}

func listSalesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		limit := queryIntPtr(c, "limit")
		after := queryStringPtr(c, "after")
		number := queryStringPtr(c, "number")
		reference := queryStringPtr(c, "reference")
		partyId := queryIntPtr(c, "party_id")
		deviceId := queryIntPtr(c, "device_id")
		outstanding := queryBoolPtr(c, "outstanding")
		var state *models.SaleState
		if v := queryStringPtr(c, "state"); v != nil {
			s, err := models.ParseSaleState(*v)
			if err != nil {
				respondError(c, err)
				return
			}
			state = &s
		}

		conn, err := models.PaginateSales(ctx, limit, after, number, reference, partyId, deviceId, state, outstanding)
		if err != nil {
			respondError(c, err)
			return
		}

		rows := make([]*saleListRow, 0, len(conn.Edges))
		for _, edge := range conn.Edges {
			row := &saleListRow{Sale: edge.Node}
			if party, err := middlewares.GetAllParty(ctx, edge.Node.PartyId); err == nil && party != nil {
				row.PartyName = party.Name
			}
			if edge.Node.DeviceId != nil {
				if device, err := middlewares.GetAllDevice(ctx, *edge.Node.DeviceId); err == nil && device != nil {
					row.DeviceName = &device.Name
				}
			}

			// Sales before confirm have no frozen total, so the row total
			// comes from the batched lines.
			total := decimal.Zero
			if edge.Node.TotalAmount != nil {
				total = *edge.Node.TotalAmount
			} else if lines, err := middlewares.GetSaleLines(ctx, edge.Node.ID); err == nil {
				saleLines := make([]models.SaleLine, 0, len(lines))
				for _, line := range lines {
					saleLines = append(saleLines, *line)
				}
				total = models.SaleTotal(saleLines, int32(edge.Node.CurrencyDigits))
			}
			row.TotalAmount = total.String()

			paid := decimal.Zero
			if payments, err := middlewares.GetSalePayments(ctx, edge.Node.ID); err == nil {
				for _, payment := range payments {
					paid = paid.Add(payment.Amount)
				}
			}
			row.PaidAmount = paid.String()

			rows = append(rows, row)
		}

		c.JSON(http.StatusOK, gin.H{"data": rows, "pageInfo": conn.PageInfo})
	}
}

type salePaymentRow struct {
	models.StatementLine
	StatementState models.StatementState `json:"statement_state"`
}

type saleDetailResponse struct {
	*models.Sale
	Payments       []salePaymentRow `json:"payments"`
	PaidAmount     string           `json:"paid_amount"`
	ResidualAmount string           `json:"residual_amount"`
}

func getSaleHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		id, err := idParam(c)
		if err != nil {
			respondError(c, err)
			return
		}
		sale, err := models.GetSale(ctx, id)
		if err != nil {
			respondError(c, err)
			return
		}

		tx := config.GetDB().WithContext(ctx)
		paid, err := sale.PaidAmount(tx)
		if err != nil {
			respondError(c, err)
			return
		}
		residual, err := sale.ResidualAmount(tx)
		if err != nil {
			respondError(c, err)
			return
		}

		// Each payment shows its session state, so collected cash and banked
		// cash read differently.
		payments := make([]salePaymentRow, 0, len(sale.Payments))
		for _, payment := range sale.Payments {
			row := salePaymentRow{StatementLine: payment}
			if stmt, err := middlewares.GetStatement(ctx, payment.StatementId); err == nil && stmt != nil {
				row.StatementState = stmt.State
			}
			payments = append(payments, row)
		}

		c.JSON(http.StatusOK, gin.H{"data": saleDetailResponse{
			Sale:           sale,
			Payments:       payments,
			PaidAmount:     paid.String(),
			ResidualAmount: residual.String(),
		}})
	}
}

func createSaleHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewSale
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		sale, err := models.CreateSale(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": sale})
	}
}

func updateSaleHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := idParam(c)
		if err != nil {
			respondError(c, err)
			return
		}
		var input models.NewSale
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		sale, err := models.UpdateSale(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": sale})
	}
}

func deleteSaleHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := idParam(c)
		if err != nil {
			respondError(c, err)
			return
		}
		sale, err := models.DeleteSale(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": sale})
	}
}

// saleLifecycleHandler serves the quote/confirm/process/cancel transitions,
// which all share the same shape.
func saleLifecycleHandler(transition func(ctx context.Context, id int) (*models.Sale, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := idParam(c)
		if err != nil {
			respondError(c, err)
			return
		}
		sale, err := transition(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": sale})
	}
}

func copySaleHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := idParam(c)
		if err != nil {
			respondError(c, err)
			return
		}
		duplicate, err := models.CopySale(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": duplicate})
	}
}

func salePaymentFormHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := idParam(c)
		if err != nil {
			respondError(c, err)
			return
		}
		form, err := workflow.DefaultSalePaymentForm(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": form})
	}
}

func paySaleHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := startSpan(c, "paySale")
		defer span.End()

		id, err := idParam(c)
		if err != nil {
			respondError(c, err)
			return
		}
		var input workflow.PaySaleInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		result, err := workflow.PaySale(ctx, id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": result})
	}
}

func settleSalesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := startSpan(c, "settleSales")
		defer span.End()

		var req saleIdsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := workflow.AdvanceAndSettle(ctx, req.SaleIds); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": gin.H{"settled": len(req.SaleIds)}})
	}
}

func reconcileSalesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := startSpan(c, "reconcileSales")
		defer span.End()

		var req saleIdsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := workflow.ReconcileSales(ctx, req.SaleIds); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": gin.H{"reconciled": len(req.SaleIds)}})
	}
}

func listPartiesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		name := queryStringPtr(c, "name")

		// Cursor-paginated when the caller asks for a page, plain list otherwise.
		if c.Query("limit") != "" || c.Query("after") != "" {
			conn, err := models.PaginateParties(ctx, queryIntPtr(c, "limit"), queryStringPtr(c, "after"), name)
			if err != nil {
				respondError(c, err)
				return
			}
			c.JSON(http.StatusOK, gin.H{"data": conn.Edges, "pageInfo": conn.PageInfo})
			return
		}

		parties, err := models.GetParties(ctx, name)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": parties})
	}
}

func createPartyHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewParty
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		party, err := models.CreateParty(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": party})
	}
}

type partyDetailResponse struct {
	*models.Party
	ReceivableAccountName *string `json:"receivable_account_name,omitempty"`
}

func getPartyHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		id, err := idParam(c)
		if err != nil {
			respondError(c, err)
			return
		}
		party, err := models.GetParty(ctx, id)
		if err != nil {
			respondError(c, err)
			return
		}
		resp := partyDetailResponse{Party: party}
		if party.ReceivableAccountId != nil {
			if account, err := middlewares.GetAllAccount(ctx, *party.ReceivableAccountId); err == nil && account != nil {
				resp.ReceivableAccountName = &account.Name
			}
		}
		c.JSON(http.StatusOK, gin.H{"data": resp})
	}
}

func updatePartyHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := idParam(c)
		if err != nil {
			respondError(c, err)
			return
		}
		var input models.NewParty
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		party, err := models.UpdateParty(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": party})
	}
}

func togglePartyHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := idParam(c)
		if err != nil {
			respondError(c, err)
			return
		}
		var req toggleActiveRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		party, err := models.ToggleActiveParty(c.Request.Context(), id, *req.IsActive)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": party})
	}
}

func listAccountsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		accounts, err := models.GetAccounts(c.Request.Context(), queryStringPtr(c, "name"), queryStringPtr(c, "code"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": accounts})
	}
}

func createAccountHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewAccount
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		account, err := models.CreateAccount(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": account})
	}
}

func getAccountHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := idParam(c)
		if err != nil {
			respondError(c, err)
			return
		}
		account, err := models.GetAccount(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": account})
	}
}

func updateAccountHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := idParam(c)
		if err != nil {
			respondError(c, err)
			return
		}
		var input models.NewAccount
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		account, err := models.UpdateAccount(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": account})
	}
}

func toggleAccountHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := idParam(c)
		if err != nil {
			respondError(c, err)
			return
		}
		var req toggleActiveRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		account, err := models.ToggleActiveAccount(c.Request.Context(), id, *req.IsActive)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": account})
	}
}

func listJournalsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		journals, err := models.GetStatementJournals(c.Request.Context(), queryStringPtr(c, "name"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": journals})
	}
}

func createJournalHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewStatementJournal
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		journal, err := models.CreateStatementJournal(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": journal})
	}
}

func getJournalHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := idParam(c)
		if err != nil {
			respondError(c, err)
			return
		}
		journal, err := models.GetStatementJournal(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": journal})
	}
}

func toggleJournalHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := idParam(c)
		if err != nil {
			respondError(c, err)
			return
		}
		var req toggleActiveRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		journal, err := models.ToggleActiveStatementJournal(c.Request.Context(), id, *req.IsActive)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": journal})
	}
}

func listDevicesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		devices, err := models.GetSaleDevices(c.Request.Context(), queryStringPtr(c, "name"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": devices})
	}
}

func createDeviceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewSaleDevice
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		device, err := models.CreateSaleDevice(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": device})
	}
}

func getDeviceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := idParam(c)
		if err != nil {
			respondError(c, err)
			return
		}
		device, err := models.GetSaleDevice(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": device})
	}
}

func updateDeviceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := idParam(c)
		if err != nil {
			respondError(c, err)
			return
		}
		var input models.NewSaleDevice
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		device, err := models.UpdateSaleDevice(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": device})
	}
}

func toggleDeviceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := idParam(c)
		if err != nil {
			respondError(c, err)
			return
		}
		var req toggleActiveRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		device, err := models.ToggleActiveSaleDevice(c.Request.Context(), id, *req.IsActive)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": device})
	}
}

type statementListRow struct {
	*models.Statement
	JournalName string `json:"journal_name"`
}

func listStatementsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		journalId := queryIntPtr(c, "journal_id")
		var state *models.StatementState
		if v := queryStringPtr(c, "state"); v != nil {
			s, err := models.ParseStatementState(*v)
			if err != nil {
				respondError(c, err)
				return
			}
			state = &s
		}

		statements, err := models.GetStatements(ctx, journalId, state)
		if err != nil {
			respondError(c, err)
			return
		}

		rows := make([]*statementListRow, 0, len(statements))
		for _, statement := range statements {
			row := &statementListRow{Statement: statement}
			if journal, err := middlewares.GetAllJournal(ctx, statement.JournalId); err == nil && journal != nil {
				row.JournalName = journal.Name
			}
			rows = append(rows, row)
		}

		c.JSON(http.StatusOK, gin.H{"data": rows})
	}
}

func createStatementHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewStatement
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		statement, err := models.CreateStatement(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": statement})
	}
}

type statementLineRow struct {
	models.StatementLine
	PartyName     string  `json:"party_name"`
	InvoiceNumber *string `json:"invoice_number,omitempty"`
}

type statementDetailResponse struct {
	*models.Statement
	Lines []statementLineRow `json:"lines"`
}

func getStatementHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		id, err := idParam(c)
		if err != nil {
			respondError(c, err)
			return
		}
		statement, err := models.GetStatement(ctx, id)
		if err != nil {
			respondError(c, err)
			return
		}

		// The session review screen reads names, not ids.
		lines := make([]statementLineRow, 0, len(statement.Lines))
		for _, line := range statement.Lines {
			row := statementLineRow{StatementLine: line}
			if party, err := middlewares.GetAllParty(ctx, line.PartyId); err == nil && party != nil {
				row.PartyName = party.Name
			}
			if line.InvoiceId != nil {
				if invoice, err := middlewares.GetInvoice(ctx, *line.InvoiceId); err == nil && invoice != nil {
					row.InvoiceNumber = &invoice.Number
				}
			}
			lines = append(lines, row)
		}

		c.JSON(http.StatusOK, gin.H{"data": statementDetailResponse{
			Statement: statement,
			Lines:     lines,
		}})
	}
}

func validateStatementHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := startSpan(c, "validateStatement")
		defer span.End()

		id, err := idParam(c)
		if err != nil {
			respondError(c, err)
			return
		}
		statement, err := models.ValidateStatement(ctx, id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": statement})
	}
}

func postStatementHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := startSpan(c, "postStatement")
		defer span.End()

		id, err := idParam(c)
		if err != nil {
			respondError(c, err)
			return
		}
		statement, err := models.PostStatement(ctx, id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": statement})
	}
}

func createStatementLineHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewStatementLine
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		line, err := models.CreateStatementLine(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": line})
	}
}

func updateStatementLineHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := idParam(c)
		if err != nil {
			respondError(c, err)
			return
		}
		var input models.NewStatementLine
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		line, err := models.UpdateStatementLine(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": line})
	}
}

func deleteStatementLineHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := idParam(c)
		if err != nil {
			respondError(c, err)
			return
		}
		line, err := models.DeleteStatementLine(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": line})
	}
}

type invoiceListRow struct {
	*models.Invoice
	PartyName string `json:"party_name"`
}

func listInvoicesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		partyId := queryIntPtr(c, "party_id")
		var state *models.InvoiceState
		if v := queryStringPtr(c, "state"); v != nil {
			s, err := models.ParseInvoiceState(*v)
			if err != nil {
				respondError(c, err)
				return
			}
			state = &s
		}

		invoices, err := models.GetInvoices(ctx, partyId, state)
		if err != nil {
			respondError(c, err)
			return
		}

		rows := make([]*invoiceListRow, 0, len(invoices))
		for _, invoice := range invoices {
			row := &invoiceListRow{Invoice: invoice}
			if party, err := middlewares.GetAllParty(ctx, invoice.PartyId); err == nil && party != nil {
				row.PartyName = party.Name
			}
			rows = append(rows, row)
		}

		c.JSON(http.StatusOK, gin.H{"data": rows})
	}
}

func createInvoiceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewInvoice
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		invoice, err := models.CreateInvoice(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": invoice})
	}
}

func getInvoiceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := idParam(c)
		if err != nil {
			respondError(c, err)
			return
		}
		invoice, err := models.GetInvoice(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": invoice})
	}
}

type moveLineRow struct {
	models.MoveLine
	AccountName string `json:"account_name"`
}

type moveResponse struct {
	*models.AccountMove
	Lines []moveLineRow `json:"lines"`
}

// getMoveHandler exposes the double-entry side of a payment or invoice for
// drill-down from the statement and invoice screens.
func getMoveHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		id, err := idParam(c)
		if err != nil {
			respondError(c, err)
			return
		}
		move, err := models.GetAccountMove(ctx, id)
		if err != nil {
			respondError(c, err)
			return
		}

		accountIds := make([]int, 0, len(move.Lines))
		for _, line := range move.Lines {
			accountIds = append(accountIds, line.AccountId)
		}
		names := make(map[int]string)
		accounts, _ := middlewares.GetAllAccounts(ctx, utils.UniqueSlice(accountIds))
		for _, account := range accounts {
			if account != nil {
				names[account.ID] = account.Name
			}
		}

		rows := make([]moveLineRow, 0, len(move.Lines))
		for _, line := range move.Lines {
			rows = append(rows, moveLineRow{MoveLine: line, AccountName: names[line.AccountId]})
		}

		c.JSON(http.StatusOK, gin.H{"data": moveResponse{AccountMove: move, Lines: rows}})
	}
}

func outstandingSalesReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		data, err := reports.GetOutstandingSalesReport(c.Request.Context(), queryIntPtr(c, "party_id"), queryIntPtr(c, "device_id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": data})
	}
}

func outstandingSalesExcelHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		data, err := reports.GetOutstandingSalesReport(c.Request.Context(), queryIntPtr(c, "party_id"), queryIntPtr(c, "device_id"))
		if err != nil {
			respondError(c, err)
			return
		}
		if err := reports.WriteOutstandingSalesExcel(c.Writer, data); err != nil {
			respondError(c, err)
			return
		}
	}
}

func paymentsReceivedReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		fromDate, err := queryDate(c, "from_date")
		if err != nil {
			respondError(c, err)
			return
		}
		toDate, err := queryDate(c, "to_date")
		if err != nil {
			respondError(c, err)
			return
		}
		data, err := reports.GetPaymentsReceivedReport(c.Request.Context(), queryIntPtr(c, "journal_id"), fromDate, toDate)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": data})
	}
}

func listUsersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		users, err := models.GetAllUsers(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		for _, user := range users {
			user.PrepareGive()
		}
		c.JSON(http.StatusOK, gin.H{"data": users})
	}
}

func createUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewUser
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		user, err := models.CreateUser(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		user.PrepareGive()
		c.JSON(http.StatusOK, gin.H{"data": user})
	}
}

func getUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := idParam(c)
		if err != nil {
			respondError(c, err)
			return
		}
		user, err := models.GetUser(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": user})
	}
}

func assignUserDeviceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := idParam(c)
		if err != nil {
			respondError(c, err)
			return
		}
		var req assignDeviceRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		user, err := models.AssignUserDevice(c.Request.Context(), id, req.DeviceId)
		if err != nil {
			respondError(c, err)
			return
		}
		user.PrepareGive()
		c.JSON(http.StatusOK, gin.H{"data": user})
	}
}

func createBusinessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewBusiness
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		business, err := models.CreateBusiness(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": business})
	}
}

func updateLockDatesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req lockDatesRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		business, err := models.UpdateTransactionLockDates(c.Request.Context(), time.Time(req.SalesLockDate), time.Time(req.AccountantLockDate))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": business})
	}
}

// listHistoriesHandler serves the audit trail, filterable by the record it
// concerns or the user who acted.
func listHistoriesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		histories, err := models.GetHistories(c.Request.Context(),
			queryIntPtr(c, "reference_id"),
			queryStringPtr(c, "reference_type"),
			queryIntPtr(c, "user_id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": histories})
	}
}
