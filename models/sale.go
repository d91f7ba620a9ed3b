package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/mmsoftwarehouse/salepay_backend/config"
	"bitbucket.org/mmsoftwarehouse/salepay_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Sale is a customer order. The total is computed from the lines while the
// sale is editable and frozen onto total_amount at confirmation; paid and
// residual amounts always derive from the linked statement lines.
type Sale struct {
	ID             int              `gorm:"primary_key" json:"id"`
	BusinessId     string           `gorm:"index;not null" json:"business_id"`
	Number         string           `gorm:"size:255" json:"number"`
	SequenceNo     decimal.Decimal  `gorm:"type:decimal(15);default:0" json:"sequence_no"`
	Reference      string           `gorm:"size:255" json:"reference"`
	Description    string           `gorm:"size:255" json:"description"`
	PartyId        int              `gorm:"index;not null" json:"party_id" binding:"required"`
	Party          *Party           `gorm:"foreignKey:PartyId" json:"party"`
	DeviceId       *int             `gorm:"index" json:"device_id"`
	Device         *SaleDevice      `gorm:"foreignKey:DeviceId" json:"device"`
	Date           time.Time        `gorm:"not null" json:"date" binding:"required"`
	Currency       string           `gorm:"size:3;not null;default:MMK" json:"currency"`
	CurrencyDigits int              `gorm:"not null;default:2" json:"currency_digits"`
	InvoiceMethod  InvoiceMethod    `gorm:"type:enum('manual','order','shipment');default:order" json:"invoice_method"`
	State          SaleState        `gorm:"type:enum('draft','quotation','confirmed','processing','done','cancelled');default:draft" json:"state"`
	TotalAmount    *decimal.Decimal `gorm:"type:decimal(20,4)" json:"total_amount"`
	Lines          []SaleLine       `gorm:"foreignKey:SaleId" json:"lines"`
	Payments       []StatementLine  `gorm:"foreignKey:SaleId" json:"payments"`
	CreatedAt      time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

type SaleLine struct {
	ID          int             `gorm:"primary_key" json:"id"`
	BusinessId  string          `gorm:"index;not null" json:"business_id"`
	SaleId      int             `gorm:"index;not null" json:"sale_id"`
	Description string          `gorm:"size:255" json:"description"`
	Quantity    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_price"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount"`
	AccountId   int             `gorm:"index;not null" json:"account_id"`
}

type NewSale struct {
	PartyId       int           `json:"party_id" binding:"required"`
	DeviceId      *int          `json:"device_id"`
	Reference     string        `json:"reference"`
	Description   string        `json:"description"`
	Date          time.Time     `json:"date" binding:"required"`
	InvoiceMethod InvoiceMethod `json:"invoice_method"`
	Lines         []NewSaleLine `json:"lines" binding:"dive"`
}

type NewSaleLine struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	AccountId   int             `json:"account_id" binding:"required"`
}

type SalesConnection struct {
	Edges    []*SalesEdge `json:"edges"`
	PageInfo *PageInfo    `json:"pageInfo"`
}

type SalesEdge Edge[Sale]

func (sale Sale) GetBusinessId() string {
	return sale.BusinessId
}

func (sale Sale) GetId() int {
	return sale.ID
}

func (sale Sale) GetCursor() string {
	return sale.CreatedAt.String()
}

func (sale Sale) CheckTransactionLock(ctx context.Context) error {
	return validateTransactionLock(ctx, sale.Date, sale.BusinessId, SalesTransactionLock)
}

// RecName is the human identifier used in descriptions and error messages.
func (sale *Sale) RecName() string {
	if sale.Reference != "" {
		return sale.Reference
	}
	return sale.Number
}

// SaleTotal sums the line amounts, each rounded to the currency's digits.
func SaleTotal(lines []SaleLine, digits int32) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.Quantity.Mul(line.UnitPrice).Round(digits))
	}
	return total
}

// Total returns the cached total once the sale is confirmed, the running
// line total before that.
func (sale *Sale) Total() decimal.Decimal {
	if sale.TotalAmount != nil {
		return *sale.TotalAmount
	}
	return SaleTotal(sale.Lines, int32(sale.CurrencyDigits))
}

// PaidAmounts totals payments for many sales in one query. Every requested
// sale id is present in the result, unpaid sales at zero.
func PaidAmounts(tx *gorm.DB, businessId string, saleIds []int) (map[int]decimal.Decimal, error) {
	totals, err := SumPaymentsBySale(tx, businessId, saleIds)
	if err != nil {
		return nil, err
	}
	for _, id := range saleIds {
		if _, ok := totals[id]; !ok {
			totals[id] = decimal.Zero
		}
	}
	return totals, nil
}

func (sale *Sale) PaidAmount(tx *gorm.DB) (decimal.Decimal, error) {
	totals, err := PaidAmounts(tx, sale.BusinessId, []int{sale.ID})
	if err != nil {
		return decimal.Zero, err
	}
	return totals[sale.ID], nil
}

// ResidualAmount is the cached total minus payments. Callers only ask for it
// once the lifecycle has cached the total.
func (sale *Sale) ResidualAmount(tx *gorm.DB) (decimal.Decimal, error) {
	paid, err := sale.PaidAmount(tx)
	if err != nil {
		return decimal.Zero, err
	}
	return sale.Total().Sub(paid), nil
}

// OutstandingSaleQuery selects the ids of sales whose payments do not yet
// cover the frozen total and that carry at least one posted invoice traced
// back through the origin tags. It composes as a subquery, callers add their
// own filters around `id IN (...)`. A null total_amount drops out of the
// HAVING comparison on its own.
func OutstandingSaleQuery(db *gorm.DB, businessId string) *gorm.DB {

	unpaid := db.Model(&Sale{}).
		Select("sales.id").
		Joins("LEFT JOIN statement_lines ON statement_lines.sale_id = sales.id").
		Where("sales.business_id = ? AND sales.state IN ?", businessId, totalCachedStates).
		Group("sales.id").
		Having("COALESCE(SUM(statement_lines.amount), 0) < sales.total_amount")

	return db.Model(&Sale{}).
		Select("sales.id").
		Joins("JOIN sale_lines ON sale_lines.sale_id = sales.id").
		Joins("JOIN invoice_lines ON invoice_lines.origin_kind = ? AND invoice_lines.origin_id = sale_lines.id", OriginKindSaleLine).
		Joins("JOIN invoices ON invoices.id = invoice_lines.invoice_id AND invoices.state = ?", InvoiceStatePosted).
		Where("sales.id IN (?)", unpaid).
		Group("sales.id")
}

func GetOutstandingSales(ctx context.Context, partyId *int) ([]*Sale, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).
		Where("sales.business_id = ?", businessId).
		Where("sales.id IN (?)", OutstandingSaleQuery(db.WithContext(ctx), businessId)).
		Preload("Party").Preload("Lines")
	if partyId != nil && *partyId > 0 {
		dbCtx = dbCtx.Where("sales.party_id = ?", *partyId)
	}
	var results []*Sale
	err := dbCtx.Order("sales.id").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// ---------- CRUD ----------

func (input *NewSale) validate(ctx context.Context, businessId string, id int) error {
	if id > 0 {
		if err := utils.ValidateResourceId[Sale](ctx, businessId, id); err != nil {
			return err
		}
	}
	if err := utils.ValidateResourceId[Party](ctx, businessId, input.PartyId); err != nil {
		return errors.New("party not found")
	}
	if input.DeviceId != nil {
		if err := utils.ValidateResourceId[SaleDevice](ctx, businessId, *input.DeviceId); err != nil {
			return errors.New("device not found")
		}
	}
	lineAccountIds := []int{}
	for _, line := range input.Lines {
		lineAccountIds = append(lineAccountIds, line.AccountId)
	}
	if len(lineAccountIds) > 0 {
		if err := utils.ValidateResourcesId[Account](ctx, businessId, utils.UniqueSlice(lineAccountIds)); err != nil {
			return errors.New("account not found")
		}
	}
	if err := validateTransactionLock(ctx, input.Date, businessId, SalesTransactionLock); err != nil {
		return err
	}
	if input.InvoiceMethod != "" {
		if _, err := ParseInvoiceMethod(string(input.InvoiceMethod)); err != nil {
			return err
		}
	}
	return nil
}

func mapNewSaleLines(businessId string, inputs []NewSaleLine, digits int32) []SaleLine {
	lines := []SaleLine{}
	for _, input := range inputs {
		lines = append(lines, SaleLine{
			BusinessId:  businessId,
			Description: input.Description,
			Quantity:    input.Quantity,
			UnitPrice:   input.UnitPrice,
			Amount:      input.Quantity.Mul(input.UnitPrice).Round(digits),
			AccountId:   input.AccountId,
		})
	}
	return lines
}

func CreateSale(ctx context.Context, input *NewSale) (*Sale, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if err := input.validate(ctx, businessId, 0); err != nil {
		return nil, err
	}

	business, err := GetBusinessById(ctx, businessId)
	if err != nil {
		return nil, err
	}

	invoiceMethod := input.InvoiceMethod
	if invoiceMethod == "" {
		invoiceMethod = InvoiceMethodOrder
	}

	sale := Sale{
		BusinessId:     businessId,
		Reference:      input.Reference,
		Description:    input.Description,
		PartyId:        input.PartyId,
		DeviceId:       input.DeviceId,
		Date:           input.Date,
		Currency:       business.Currency,
		CurrencyDigits: business.CurrencyDigits,
		InvoiceMethod:  invoiceMethod,
		State:          SaleStateDraft,
		Lines:          mapNewSaleLines(businessId, input.Lines, int32(business.CurrencyDigits)),
	}

	// db action
	db := config.GetDB()
	err = db.WithContext(ctx).Create(&sale).Error
	if err != nil {
		return nil, err
	}

	return &sale, nil
}

func UpdateSale(ctx context.Context, id int, input *NewSale) (*Sale, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if err := input.validate(ctx, businessId, id); err != nil {
		return nil, err
	}

	sale, err := utils.FetchModelForChange[Sale](ctx, businessId, id)
	if err != nil {
		return nil, err
	}
	if sale.State != SaleStateDraft {
		return nil, errors.New("sale is not draft")
	}

	lines := mapNewSaleLines(businessId, input.Lines, int32(sale.CurrencyDigits))

	db := config.GetDB()
	tx := db.Begin()
	err = tx.WithContext(ctx).Model(&sale).Updates(map[string]interface{}{
		"Reference":   input.Reference,
		"Description": input.Description,
		"PartyId":     input.PartyId,
		"DeviceId":    input.DeviceId,
		"Date":        input.Date,
	}).Error
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if input.InvoiceMethod != "" {
		if err := tx.WithContext(ctx).Model(&sale).
			Update("InvoiceMethod", input.InvoiceMethod).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
	}
	// replace the lines wholesale, drafts have no downstream references
	if err := tx.WithContext(ctx).
		Where("sale_id = ?", sale.ID).Delete(&SaleLine{}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	for i := range lines {
		lines[i].SaleId = sale.ID
	}
	if len(lines) > 0 {
		if err := tx.WithContext(ctx).Create(&lines).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	sale.Lines = lines
	return sale, nil
}

func DeleteSale(ctx context.Context, id int) (*Sale, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	sale, err := utils.FetchModelForChange[Sale](ctx, businessId, id)
	if err != nil {
		return nil, err
	}
	if sale.State != SaleStateDraft && sale.State != SaleStateCancelled {
		return nil, errors.New("sale is not draft")
	}

	db := config.GetDB()
	tx := db.Begin()
	if err := tx.WithContext(ctx).
		Where("sale_id = ?", sale.ID).Delete(&SaleLine{}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.WithContext(ctx).Delete(&sale).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	return sale, tx.Commit().Error
}

func GetSale(ctx context.Context, id int) (*Sale, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	return utils.FetchModel[Sale](ctx, businessId, id, "Party", "Device", "Lines", "Payments")
}

func PaginateSales(ctx context.Context, limit *int, after *string,
	number *string,
	reference *string,
	partyId *int,
	deviceId *int,
	state *SaleState,
	outstanding *bool) (*SalesConnection, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId)

	if utils.DereferencePtr(outstanding) {
		dbCtx.Where("sales.id IN (?)", OutstandingSaleQuery(db.WithContext(ctx), businessId))
	}

	if number != nil && *number != "" {
		dbCtx.Where("number LIKE ?", "%"+*number+"%")
	}
	if reference != nil && *reference != "" {
		dbCtx.Where("reference LIKE ?", "%"+*reference+"%")
	}
	if partyId != nil && *partyId > 0 {
		dbCtx.Where("party_id = ?", *partyId)
	}
	if deviceId != nil && *deviceId > 0 {
		dbCtx.Where("device_id = ?", *deviceId)
	}
	if state != nil {
		dbCtx.Where("state = ?", *state)
	}

	edges, pageInfo, err := FetchPageCompositeCursor[Sale](dbCtx, *limit, after, "created_at", "<")
	if err != nil {
		return nil, err
	}
	var salesConnection SalesConnection
	salesConnection.PageInfo = pageInfo
	for _, edge := range edges {
		salesEdge := SalesEdge(edge)
		salesConnection.Edges = append(salesConnection.Edges, &salesEdge)
	}

	return &salesConnection, err
}

// CopySale duplicates a sale as a fresh draft. The number, frozen total,
// payments and invoice links all belong to the source and are not carried
// over.
func CopySale(ctx context.Context, id int) (*Sale, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	source, err := utils.FetchModel[Sale](ctx, businessId, id, "Lines")
	if err != nil {
		return nil, err
	}

	today, err := BusinessToday(ctx, businessId)
	if err != nil {
		return nil, err
	}

	lines := []SaleLine{}
	for _, line := range source.Lines {
		lines = append(lines, SaleLine{
			BusinessId:  businessId,
			Description: line.Description,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			Amount:      line.Amount,
			AccountId:   line.AccountId,
		})
	}

	duplicate := Sale{
		BusinessId:     businessId,
		Reference:      source.Reference,
		Description:    source.Description,
		PartyId:        source.PartyId,
		DeviceId:       source.DeviceId,
		Date:           today,
		Currency:       source.Currency,
		CurrencyDigits: source.CurrencyDigits,
		InvoiceMethod:  source.InvoiceMethod,
		State:          SaleStateDraft,
		Lines:          lines,
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Create(&duplicate).Error
	if err != nil {
		return nil, err
	}
	return &duplicate, nil
}

// ---------- lifecycle ----------

// SetSaleNumberTx assigns the next sale number if none is set yet.
func SetSaleNumberTx(ctx context.Context, tx *gorm.DB, sale *Sale) error {
	if sale.Number != "" {
		return nil
	}
	seqNo, err := utils.GetSequence[Sale](ctx, sale.BusinessId)
	if err != nil {
		return err
	}
	number := "SALE-" + fmt.Sprint(seqNo)
	err = tx.WithContext(ctx).Model(sale).Updates(map[string]interface{}{
		"Number":     number,
		"SequenceNo": decimal.NewFromInt(seqNo),
	}).Error
	if err != nil {
		return err
	}
	sale.Number = number
	sale.SequenceNo = decimal.NewFromInt(seqNo)
	return nil
}

func QuoteSaleTx(ctx context.Context, tx *gorm.DB, sale *Sale) error {
	if sale.State != SaleStateDraft {
		return errors.New("sale is not draft")
	}
	if len(sale.Lines) == 0 {
		return errors.New("sale has no lines")
	}
	if err := SetSaleNumberTx(ctx, tx, sale); err != nil {
		return err
	}
	if err := tx.WithContext(ctx).Model(sale).
		Update("State", SaleStateQuotation).Error; err != nil {
		return err
	}
	sale.State = SaleStateQuotation
	return createHistory(tx.WithContext(ctx), "Update", sale.ID, "sales", nil, nil,
		"Updated state to quotation")
}

// ConfirmSaleTx freezes the order total. From here on residual amounts are
// well defined.
func ConfirmSaleTx(ctx context.Context, tx *gorm.DB, sale *Sale) error {
	if sale.State != SaleStateQuotation {
		return errors.New("sale is not quoted")
	}
	total := SaleTotal(sale.Lines, int32(sale.CurrencyDigits))
	err := tx.WithContext(ctx).Model(sale).Updates(map[string]interface{}{
		"TotalAmount": total,
		"State":       SaleStateConfirmed,
	}).Error
	if err != nil {
		return err
	}
	sale.TotalAmount = &total
	sale.State = SaleStateConfirmed
	return createHistory(tx.WithContext(ctx), "Update", sale.ID, "sales", nil, nil,
		"Updated state to confirmed")
}

// ProcessSaleTx moves the sale into processing and, for order-invoiced
// sales without an invoice yet, generates the draft invoice from the order
// lines.
func ProcessSaleTx(ctx context.Context, tx *gorm.DB, sale *Sale) error {
	if sale.State != SaleStateConfirmed {
		return errors.New("sale is not confirmed")
	}
	if err := tx.WithContext(ctx).Model(sale).
		Update("State", SaleStateProcessing).Error; err != nil {
		return err
	}
	sale.State = SaleStateProcessing
	if err := createHistory(tx.WithContext(ctx), "Update", sale.ID, "sales", nil, nil,
		"Updated state to processing"); err != nil {
		return err
	}

	if sale.InvoiceMethod != InvoiceMethodOrder {
		return nil
	}
	existing, err := InvoicesForSale(tx, sale.BusinessId, sale.ID)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	_, err = createSaleInvoiceTx(ctx, tx, sale)
	return err
}

// createSaleInvoiceTx builds the draft invoice for a sale's invoiceable
// lines, tagging each invoice line with its origin. Returns nil without an
// invoice when nothing is invoiceable.
func createSaleInvoiceTx(ctx context.Context, tx *gorm.DB, sale *Sale) (*Invoice, error) {

	invoiceLines := []InvoiceLine{}
	total := decimal.Zero
	for _, line := range sale.Lines {
		if line.Quantity.IsZero() {
			continue
		}
		originId := line.ID
		invoiceLines = append(invoiceLines, InvoiceLine{
			BusinessId:  sale.BusinessId,
			Description: line.Description,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			Amount:      line.Amount,
			AccountId:   line.AccountId,
			OriginKind:  OriginKindSaleLine,
			OriginId:    &originId,
		})
		total = total.Add(line.Amount)
	}
	if len(invoiceLines) == 0 {
		return nil, nil
	}

	var party Party
	if err := tx.WithContext(ctx).Where("business_id = ?", sale.BusinessId).
		First(&party, sale.PartyId).Error; err != nil {
		return nil, err
	}
	account, err := party.ReceivableAccount(tx)
	if err != nil {
		return nil, err
	}

	invoice := Invoice{
		BusinessId:  sale.BusinessId,
		PartyId:     sale.PartyId,
		AccountId:   account.ID,
		State:       InvoiceStateDraft,
		TotalAmount: total,
		Lines:       invoiceLines,
	}
	if err := tx.WithContext(ctx).Create(&invoice).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

// DoSalesTx moves the given sales to done in one statement.
func DoSalesTx(ctx context.Context, tx *gorm.DB, businessId string, saleIds []int) error {
	if len(saleIds) == 0 {
		return nil
	}
	err := tx.WithContext(ctx).Model(&Sale{}).
		Where("business_id = ? AND id IN ?", businessId, saleIds).
		Update("state", SaleStateDone).Error
	if err != nil {
		return err
	}
	for _, saleId := range saleIds {
		if err := createHistory(tx.WithContext(ctx), "Update", saleId, "sales", nil, nil,
			"Updated state to done"); err != nil {
			return err
		}
	}
	return nil
}

// IsSaleDoneTx reports whether the sale is fully paid and fully invoiced:
// zero residual, and every generated invoice at least posted. Posting is
// enough; collection against the receivable is the reconciler's business.
// Order-invoiced sales without an invoice are never done.
func IsSaleDoneTx(tx *gorm.DB, sale *Sale) (bool, error) {
	if sale.State != SaleStateProcessing {
		return false, nil
	}
	residual, err := sale.ResidualAmount(tx)
	if err != nil {
		return false, err
	}
	if !residual.IsZero() {
		return false, nil
	}
	invoices, err := InvoicesForSale(tx, sale.BusinessId, sale.ID)
	if err != nil {
		return false, err
	}
	if sale.InvoiceMethod == InvoiceMethodOrder && len(invoices) == 0 {
		return false, nil
	}
	for _, invoice := range invoices {
		switch invoice.State {
		case InvoiceStateCancelled, InvoiceStatePosted, InvoiceStatePaid:
		default:
			return false, nil
		}
	}
	return true, nil
}

// CancelSale aborts an order that never reached confirmation.
func CancelSale(ctx context.Context, id int) (*Sale, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	sale, err := utils.FetchModel[Sale](ctx, businessId, id)
	if err != nil {
		return nil, err
	}
	if sale.State != SaleStateDraft && sale.State != SaleStateQuotation {
		return nil, errors.New("sale cannot be cancelled")
	}

	db := config.GetDB()
	tx := db.Begin()
	err = tx.WithContext(ctx).Model(&sale).
		Update("State", SaleStateCancelled).Error
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := createHistory(tx.WithContext(ctx), "Update", sale.ID, "sales", nil, nil,
		"Updated state to cancelled"); err != nil {
		tx.Rollback()
		return nil, err
	}
	return sale, tx.Commit().Error
}

// QuoteSale, ConfirmSale and ProcessSale expose single lifecycle steps.
func QuoteSale(ctx context.Context, id int) (*Sale, error) {
	return saleLifecycleStep(ctx, id, QuoteSaleTx)
}

func ConfirmSale(ctx context.Context, id int) (*Sale, error) {
	return saleLifecycleStep(ctx, id, ConfirmSaleTx)
}

func ProcessSale(ctx context.Context, id int) (*Sale, error) {
	return saleLifecycleStep(ctx, id, ProcessSaleTx)
}

func saleLifecycleStep(ctx context.Context, id int, step func(context.Context, *gorm.DB, *Sale) error) (*Sale, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	sale, err := utils.FetchModelForChange[Sale](ctx, businessId, id, "Lines")
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.Begin()
	if err := step(ctx, tx, sale); err != nil {
		tx.Rollback()
		return nil, err
	}
	return sale, tx.Commit().Error
}
