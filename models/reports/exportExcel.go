package reports

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const exportSheet = "Sheet1"

// writeNode flattens a rollup node into indented rows starting at rowNo and
// returns the next free row.
func writeNode(f *excelize.File, node *GroupNode, depth int, rowNo int) int {
	indent := ""
	for i := 0; i < depth; i++ {
		indent += "  "
	}
	f.SetCellValue(exportSheet, "A"+fmt.Sprint(rowNo), node.Code)
	f.SetCellValue(exportSheet, "B"+fmt.Sprint(rowNo), indent+node.Name)
	f.SetCellValue(exportSheet, "C"+fmt.Sprint(rowNo), node.Total.StringFixed(2))
	rowNo++
	for _, child := range node.Children {
		rowNo = writeNode(f, child, depth+1, rowNo)
	}
	for _, account := range node.Accounts {
		f.SetCellValue(exportSheet, "A"+fmt.Sprint(rowNo), account.AccountCode)
		f.SetCellValue(exportSheet, "B"+fmt.Sprint(rowNo), indent+"  "+account.AccountName)
		f.SetCellValue(exportSheet, "C"+fmt.Sprint(rowNo), account.Amount.StringFixed(2))
		rowNo++
	}
	return rowNo
}

func writeSection(f *excelize.File, title string, nodes []*GroupNode, total decimal.Decimal, rowNo int) int {
	f.SetCellValue(exportSheet, "A"+fmt.Sprint(rowNo), title)
	rowNo++
	for _, node := range nodes {
		rowNo = writeNode(f, node, 0, rowNo)
	}
	f.SetCellValue(exportSheet, "B"+fmt.Sprint(rowNo), "Total "+title)
	f.SetCellValue(exportSheet, "C"+fmt.Sprint(rowNo), total.StringFixed(2))
	return rowNo + 2
}

// ProfitAndLossExcel renders the report as a workbook for download.
func ProfitAndLossExcel(report *ProfitAndLossResponse) (*excelize.File, error) {
	f := excelize.NewFile()
	if _, err := f.NewSheet(exportSheet); err != nil {
		return nil, err
	}
	f.SetCellValue(exportSheet, "A1", "Profit and Loss")
	f.SetCellValue(exportSheet, "B1", report.FromDate.Format("2006-01-02"))
	f.SetCellValue(exportSheet, "C1", report.ToDate.Format("2006-01-02"))

	rowNo := 3
	rowNo = writeSection(f, "Revenue", report.Revenue, report.TotalRevenue, rowNo)
	rowNo = writeSection(f, "Expenses", report.Expenses, report.TotalExpense, rowNo)
	f.SetCellValue(exportSheet, "B"+fmt.Sprint(rowNo), "Net Income")
	f.SetCellValue(exportSheet, "C"+fmt.Sprint(rowNo), report.NetIncome.StringFixed(2))
	return f, nil
}

// BalanceSheetExcel renders the report as a workbook for download.
func BalanceSheetExcel(report *BalanceSheetResponse) (*excelize.File, error) {
	f := excelize.NewFile()
	if _, err := f.NewSheet(exportSheet); err != nil {
		return nil, err
	}
	f.SetCellValue(exportSheet, "A1", "Balance Sheet")
	f.SetCellValue(exportSheet, "B1", "As of")
	f.SetCellValue(exportSheet, "C1", report.AsOf.Format("2006-01-02"))

	rowNo := 3
	rowNo = writeSection(f, "Assets", report.Assets, report.TotalAssets, rowNo)
	rowNo = writeSection(f, "Liabilities", report.Liabilities, report.TotalLiabilities, rowNo)
	rowNo = writeSection(f, "Equity", report.Equity, report.TotalEquity, rowNo)
	f.SetCellValue(exportSheet, "B"+fmt.Sprint(rowNo), "Retained Earnings")
	f.SetCellValue(exportSheet, "C"+fmt.Sprint(rowNo), report.RetainedEarnings.StringFixed(2))
	return f, nil
}
