package reports

import (
	"context"
	"time"

	"bitbucket.org/mmsoftwarehouse/salepay_backend/config"
	"bitbucket.org/mmsoftwarehouse/salepay_backend/models"
	"bitbucket.org/mmsoftwarehouse/salepay_backend/utils"
	"github.com/shopspring/decimal"
)

type PaymentReceived struct {
	PaymentId      int             `json:"paymentId"`
	PaymentDate    time.Time       `json:"paymentDate"`
	Amount         decimal.Decimal `json:"amount"`
	Description    string          `json:"description"`
	SaleId         *int            `json:"saleId,omitempty"`
	SaleNumber     *string         `json:"saleNumber,omitempty"`
	InvoiceId      *int            `json:"invoiceId,omitempty"`
	InvoiceNumber  *string         `json:"invoiceNumber,omitempty"`
	PartyId        int             `json:"partyId"`
	PartyName      *string         `json:"partyName,omitempty"`
	StatementId    int             `json:"statementId"`
	StatementName  string          `json:"statementName"`
	StatementState string          `json:"statementState"`
	JournalId      int             `json:"journalId"`
	JournalName    string          `json:"journalName"`
	Currency       string          `json:"currency"`
}

// GetPaymentsReceivedReport lists payment lines over a date range, joined out
// to their statement, journal, party and attributed sale/invoice.
func GetPaymentsReceivedReport(ctx context.Context, journalId *int, fromDate models.MyDateString, toDate models.MyDateString) ([]*PaymentReceived, error) {

	sqlT := `
SELECT
    statement_lines.id AS payment_id,
    statement_lines.date AS payment_date,
    statement_lines.amount,
    statement_lines.description,
    statement_lines.sale_id,
    sales.number AS sale_number,
    statement_lines.invoice_id,
    invoices.number AS invoice_number,
    statement_lines.party_id,
    parties.name AS party_name,
    statements.id AS statement_id,
    statements.name AS statement_name,
    statements.state AS statement_state,
    statement_journals.id AS journal_id,
    statement_journals.name AS journal_name,
    statement_journals.currency
FROM
    statement_lines
        JOIN
    statements ON statements.id = statement_lines.statement_id
        JOIN
    statement_journals ON statement_journals.id = statements.journal_id
        LEFT JOIN
    parties ON parties.id = statement_lines.party_id
        LEFT JOIN
    sales ON sales.id = statement_lines.sale_id
        LEFT JOIN
    invoices ON invoices.id = statement_lines.invoice_id
WHERE
    statement_lines.business_id = @businessId
        AND statement_lines.date BETWEEN @fromDate AND @toDate
        {{- if .journalId }} AND statements.journal_id = @journalId {{- end }}
ORDER BY statement_lines.date , statement_lines.id;
`

	business, err := models.GetBusiness(ctx)
	if err != nil {
		return nil, err
	}

	if err := fromDate.StartOfDayUTCTime(business.Timezone); err != nil {
		return nil, err
	}
	if err := toDate.EndOfDayUTCTime(business.Timezone); err != nil {
		return nil, err
	}

	// generating sql from template
	sql, err := utils.ExecTemplate(sqlT, map[string]interface{}{
		"journalId": utils.DereferencePtr(journalId),
	})
	if err != nil {
		return nil, err
	}

	started := time.Now()
	db := config.GetDB()
	var results []*PaymentReceived
	if err := db.WithContext(ctx).Raw(sql, map[string]interface{}{
		"businessId": business.ID,
		"journalId":  journalId,
		"fromDate":   fromDate,
		"toDate":     toDate,
	}).Scan(&results).Error; err != nil {
		return nil, err
	}
	logSlowReport(ctx, "payments_received", started, map[string]any{"rows": len(results)})

	return results, nil
}
