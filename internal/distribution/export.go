package distribution

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const exportSheet = "Distribution"

// BuildWorkbook renders a round and its per-owner outcomes as an XLSX
// workbook for download by the initiating company.
func BuildWorkbook(dist *ProfitDistribution, details []*ProfitDistributionDetail) (*excelize.File, error) {
	file := excelize.NewFile()
	file.SetSheetName("Sheet1", exportSheet)

	headerStyle, err := file.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF", Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"4472C4"}},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	summary := [][]interface{}{
		{"Distribution ID", dist.ID},
		{"Company ID", dist.CompanyID},
		{"Total Amount", dist.TotalAmount.String()},
		{"Formula", string(dist.Formula)},
		{"Status", string(dist.Status)},
		{"Created At", dist.CreatedAt.Format("2006-01-02 15:04:05")},
	}
	for i, row := range summary {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := file.SetSheetRow(exportSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write summary row: %w", err)
		}
	}

	headerRow := len(summary) + 2
	headers := []interface{}{"Owner ID", "Amount", "Energy (kWh)", "Status", "Error"}
	cell, _ := excelize.CoordinatesToCellName(1, headerRow)
	if err := file.SetSheetRow(exportSheet, cell, &headers); err != nil {
		return nil, fmt.Errorf("failed to write header row: %w", err)
	}
	endCell, _ := excelize.CoordinatesToCellName(len(headers), headerRow)
	if err := file.SetCellStyle(exportSheet, cell, endCell, headerStyle); err != nil {
		return nil, fmt.Errorf("failed to style header row: %w", err)
	}

	for i, d := range details {
		row := []interface{}{d.OwnerID, d.AmountMoney.String(), d.AmountEnergy.String(), string(d.Status), d.ErrorMessage}
		cell, _ := excelize.CoordinatesToCellName(1, headerRow+1+i)
		if err := file.SetSheetRow(exportSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write detail row: %w", err)
		}
	}

	return file, nil
}
