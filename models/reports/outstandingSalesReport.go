package reports

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"bitbucket.org/mmsoftwarehouse/salepay_backend/config"
	"bitbucket.org/mmsoftwarehouse/salepay_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

type OutstandingSaleResponse struct {
	SaleId         int             `json:"SaleId"`
	Number         string          `json:"Number"`
	Reference      string          `json:"Reference"`
	PartyId        int             `json:"PartyId"`
	PartyName      *string         `json:"PartyName,omitempty"`
	State          string          `json:"State"`
	TotalAmount    decimal.Decimal `json:"TotalAmount"`
	PaidAmount     decimal.Decimal `json:"PaidAmount"`
	ResidualAmount decimal.Decimal `json:"ResidualAmount"`
}

// GetOutstandingSalesReport lists sales whose recorded payments fall short of
// the frozen total and that carry at least one posted invoice traced back to
// an order line. A sale whose total has never been frozen can not appear: the
// HAVING comparison against NULL filters it structurally.
func GetOutstandingSalesReport(ctx context.Context, partyId *int, deviceId *int) ([]*OutstandingSaleResponse, error) {

	sqlT := `
SELECT DISTINCT
    s.id AS sale_id,
    s.number,
    s.reference,
    s.party_id,
    parties.name AS party_name,
    s.state,
    s.total_amount,
    s.paid_amount,
    s.total_amount - s.paid_amount AS residual_amount
FROM
    (SELECT
        sales.id,
            sales.number,
            sales.reference,
            sales.party_id,
            sales.state,
            sales.total_amount,
            COALESCE(SUM(statement_lines.amount), 0) AS paid_amount
    FROM
        sales
    LEFT JOIN statement_lines ON statement_lines.sale_id = sales.id
    WHERE
        sales.business_id = @businessId
            AND sales.state IN ('confirmed' , 'processing', 'done')
            {{- if .partyId }} AND sales.party_id = @partyId {{- end }}
            {{- if .deviceId }} AND sales.device_id = @deviceId {{- end }}
    GROUP BY sales.id
    HAVING COALESCE(SUM(statement_lines.amount), 0) < sales.total_amount) AS s
        JOIN
    sale_lines ON sale_lines.sale_id = s.id
        JOIN
    invoice_lines ON invoice_lines.origin_kind = 'SL'
        AND invoice_lines.origin_id = sale_lines.id
        JOIN
    invoices ON invoices.id = invoice_lines.invoice_id
        AND invoices.state = 'posted'
        LEFT JOIN
    parties ON parties.id = s.party_id
ORDER BY s.id;
`

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	started := time.Now()
	cacheKey := fmt.Sprintf("Report:OutstandingSales:%s:%d:%d",
		businessId, utils.DereferencePtr(partyId), utils.DereferencePtr(deviceId))
	if reportCacheEnabled() {
		var cached []*OutstandingSaleResponse
		if exists, err := cacheGet(cacheKey, &cached); err == nil && exists {
			return cached, nil
		}
	}

	// generating sql from template
	sql, err := utils.ExecTemplate(sqlT, map[string]interface{}{
		"partyId":  utils.DereferencePtr(partyId),
		"deviceId": utils.DereferencePtr(deviceId),
	})
	if err != nil {
		return nil, err
	}

	var records []*OutstandingSaleResponse
	db := config.GetDB()
	if err := db.WithContext(ctx).Raw(sql, map[string]interface{}{
		"businessId": businessId,
		"partyId":    partyId,
		"deviceId":   deviceId,
	}).Scan(&records).Error; err != nil {
		return nil, err
	}

	if reportCacheEnabled() {
		cacheSet(cacheKey, &records, reportCacheTTL())
	}
	logSlowReport(ctx, "outstanding_sales", started, map[string]any{"rows": len(records)})

	return records, nil
}

func (r OutstandingSaleResponse) GetCellValues() []interface{} {
	return []interface{}{
		r.Number,
		r.Reference,
		utils.DereferencePtr(r.PartyName, ""),
		r.State,
		r.TotalAmount,
		r.PaidAmount,
		r.ResidualAmount,
	}
}

// WriteOutstandingSalesExcel streams the report rows as an xlsx attachment.
func WriteOutstandingSalesExcel(w http.ResponseWriter, data []*OutstandingSaleResponse) error {

	f := excelize.NewFile()
	sheetName := "Sheet1"
	_, err := f.NewSheet(sheetName)
	if err != nil {
		return err
	}

	// Add headers
	headings := []string{"Number", "Reference", "Party", "State", "Total", "Paid", "Residual"}
	col := 'A'
	for _, h := range headings {
		f.SetCellValue(sheetName, string(col)+"1", h)
		col++
	}

	// Add data
	rowNo := 2
	for _, d := range data {
		col := 'A'
		for _, value := range d.GetCellValues() {
			f.SetCellValue(sheetName, string(col)+fmt.Sprint(rowNo), value)
			col++
		}
		rowNo++
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename=outstanding-sales.xlsx")
	return f.Write(w)
}
