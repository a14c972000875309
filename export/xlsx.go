package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/zalepa/aduscore/townstats"
)

const (
	townsSheet     = "Towns"
	statewideSheet = "Statewide"
)

// WriteTownsXLSX writes the town export as a workbook with a Towns sheet in
// TownColumns order and a Statewide summary sheet. Numeric columns are
// written as numbers so they sort and sum in a spreadsheet.
func WriteTownsXLSX(w io.Writer, towns []townstats.TownRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", townsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]any, len(TownColumns))
	for i, c := range TownColumns {
		header[i] = c
	}
	if err := f.SetSheetRow(townsSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	if err := f.SetRowStyle(townsSheet, 1, 1, bold); err != nil {
		return fmt.Errorf("apply header style: %w", err)
	}

	for i, t := range towns {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := townCells(t)
		if err := f.SetSheetRow(townsSheet, cell, &row); err != nil {
			return fmt.Errorf("write %s: %w", t.Slug, err)
		}
	}

	if _, err := f.NewSheet(statewideSheet); err != nil {
		return fmt.Errorf("add summary sheet: %w", err)
	}
	var submitted, approved, denied, pending int
	for _, t := range towns {
		submitted += t.Submitted
		approved += t.Approved
		denied += t.Denied
		pending += t.Pending
	}
	summary := [][]any{
		{"Towns", len(towns)},
		{"Applications Submitted", submitted},
		{"Approved", approved},
		{"Denied", denied},
		{"Pending", pending},
		{"Approvals per 10K Residents (population weighted)", townstats.StatewidePerCapitaAverage(towns)},
	}
	for i, row := range summary {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(statewideSheet, cell, &row); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
	}

	return f.Write(w)
}

func townCells(t townstats.TownRecord) []any {
	var parcels any = notAvailable
	if t.SingleFamilyParcels != nil {
		parcels = *t.SingleFamilyParcels
	}
	var perParcel any = notAvailable
	if rate, ok := townstats.ApprovalsPerThousandParcels(t); ok {
		perParcel = rate
	}
	byRight := "No"
	if t.ByRight {
		byRight = "Yes"
	}
	return []any{
		t.Name,
		t.County,
		t.Population,
		parcels,
		t.Submitted,
		t.Approved,
		t.Denied,
		t.Pending,
		t.ApprovalRate,
		perParcel,
		byRight,
		optionalCell(t.AvgRent),
		optionalCell(t.MedianHomeValue),
		t.Source,
	}
}

func optionalCell(v *int) any {
	if v == nil {
		return notAvailable
	}
	return *v
}
