package reports

/*

First pass at the xlsx export, kept for reference. The interface survived as
GetCellValues on the report row types; the file-writing variant was dropped
when the reports moved to streaming straight into the response.

type ExcelExporter interface {
	// InsertCellValue(f *excelize.File, rowNo int) error
	GetCellValues() []interface{}
}

func getPaymentsByPartyReport(ctx context.Context) ([]*PaymentsByPartyResponse, error) {

	sql := `
SELECT
    pl.party_id,
    pl.total_paid,
    pl.payment_count,
    parties.name AS party_name
FROM
    (
        SELECT
            party_id,
            SUM(amount) AS total_paid,
            COUNT(statement_lines.id) AS payment_count
        FROM
            statement_lines
        GROUP BY
            party_id
    ) AS pl
    LEFT JOIN parties ON parties.id = pl.party_id;
`

	var records []*PaymentsByPartyResponse
	db := config.GetDB()
	if err := db.WithContext(ctx).Raw(sql).Scan(&records).Error; err != nil {
		return nil, err
	}

	return records, nil
}

func exportExcel(data []ExcelExporter, filename string, headings ...string) error {

	f := excelize.NewFile()
	sheetName := "Sheet1"
	_, err := f.NewSheet("Sheet1")
	if err != nil {
		return err
	}

	// Add headers

	col := 'A'
	for _, h := range headings {
		f.SetCellValue(sheetName, string(col)+"1", h)
		col++
	}

	// Add data
	rowNo := 2
	for _, d := range data {
		// d.InsertCellValue(f, rowNo)
		col := 'A'
		for _, value := range d.GetCellValues() {
			f.SetCellValue(sheetName, string(col)+fmt.Sprint(rowNo), value)
			col++
		}
		rowNo++
	}

	if err := f.SaveAs(filename); err != nil {
		return err
	}
	return nil
}

*/
