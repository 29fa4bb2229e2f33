package reporting

import (
	"encoding/csv"
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.Indonesian)

func header(dim Dimension) []string {
	label := "Customer"
	if dim == DimensionVendor {
		label = "Vendor"
	}
	return []string{"No", "User", "Date", label, "PO Number", "Description", "Qty", "Unit", "Unit Price", "Total"}
}

// WriteCSV serialises report rows followed by the summary lines.
func WriteCSV(w io.Writer, report Report) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write(header(report.Dimension)); err != nil {
		return err
	}
	for _, row := range report.Rows {
		if err := writer.Write([]string{
			printer.Sprintf("%d", row.Seq),
			row.User,
			row.Date.Format("2006-01-02"),
			row.DimensionLabel,
			row.PONumber,
			row.Description,
			formatQty(row.Qty),
			row.Unit,
			FormatRupiah(row.UnitPrice),
			FormatRupiah(row.Total),
		}); err != nil {
			return err
		}
	}
	summary := [][]string{
		{"Total", FormatRupiah(report.Summary.Total)},
		{"PPN", FormatRupiah(report.Summary.PPNAmount)},
		{"Grand Total", FormatRupiah(report.Summary.GrandTotal)},
		{"Terbilang", report.AmountInWords},
	}
	for _, record := range summary {
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteXLSX writes the report as a single-sheet workbook. Amounts stay
// numeric so the sheet can be summed; the summary follows a blank row.
func WriteXLSX(w io.Writer, report Report) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := "Sales"
	if report.Dimension == DimensionVendor {
		sheet = "Purchases"
	}
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}

	setRow := func(row int, values []any) error {
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		return f.SetSheetRow(sheet, cell, &values)
	}

	head := header(report.Dimension)
	values := make([]any, len(head))
	for i, h := range head {
		values[i] = h
	}
	if err := setRow(1, values); err != nil {
		return err
	}
	for i, row := range report.Rows {
		if err := setRow(i+2, []any{
			row.Seq,
			row.User,
			row.Date.Format("2006-01-02"),
			row.DimensionLabel,
			row.PONumber,
			row.Description,
			row.Qty.InexactFloat64(),
			row.Unit,
			row.UnitPrice.Round(0).IntPart(),
			row.Total.Round(0).IntPart(),
		}); err != nil {
			return err
		}
	}
	next := len(report.Rows) + 3
	summary := [][]any{
		{"Total", report.Summary.Total.Round(0).IntPart()},
		{"PPN", report.Summary.PPNAmount.Round(0).IntPart()},
		{"Grand Total", report.Summary.GrandTotal.Round(0).IntPart()},
		{"Terbilang", report.AmountInWords},
	}
	for i, record := range summary {
		if err := setRow(next+i, record); err != nil {
			return err
		}
	}
	return f.Write(w)
}

// FormatRupiah renders a whole-Rupiah amount with Indonesian grouping,
// e.g. 1.500.000.
func FormatRupiah(amount decimal.Decimal) string {
	return printer.Sprintf("%d", amount.Round(0).IntPart())
}

func formatQty(qty decimal.Decimal) string {
	if qty.Equal(qty.Truncate(0)) {
		return printer.Sprintf("%d", qty.IntPart())
	}
	f, _ := qty.Float64()
	return printer.Sprintf("%.2f", f)
}
