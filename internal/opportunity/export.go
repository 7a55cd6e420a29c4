package opportunity

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

const exportSheet = "Opportunities"

var exportHeader = []interface{}{
	"Rank", "Opportunity ID", "Patient ID", "First Name", "Last Name", "Phone", "Email",
	"Total Fee", "Plan Count", "Last Plan Date", "Days Since Plan", "Top Codes", "Status", "Score",
}

// WriteWorkbook renders the ranked list as an xlsx workbook. Fees are
// written in major currency units.
func WriteWorkbook(w io.Writer, opps []Opportunity) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	if err := f.SetSheetRow(exportSheet, "A1", &exportHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(exportHeader))
	if err := f.SetCellStyle(exportSheet, "A1", lastCol+"1", headerStyle); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	for i, o := range opps {
		lastPlan := ""
		if o.LastPlanDate != nil {
			lastPlan = *o.LastPlanDate
		}
		row := []interface{}{
			i + 1, o.ID, o.PatientID, o.FirstName, o.LastName, o.Phone, o.Email,
			float64(o.TotalFee) / 100, o.PlanCount, lastPlan, o.DaysSincePlan,
			strings.Join(o.TopCodes, ", "), o.Status, o.Score,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	if err := f.SetPanes(exportSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze header: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
