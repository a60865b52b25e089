package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/weighcheck/weighcheck/internal/weighing"
)

const sheetName = "Weighings"

// WriteXLSX writes the same table as WriteCSV as a spreadsheet. Weights are
// stored as numbers with a three-decimal format.
func WriteXLSX(w io.Writer, recs []weighing.Record, loc *time.Location) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("export: rename sheet: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("export: header style: %w", err)
	}
	weightFmt := "0.000"
	weightStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &weightFmt})
	if err != nil {
		return fmt.Errorf("export: weight style: %w", err)
	}

	for col, title := range Columns {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheetName, cell, title); err != nil {
			return err
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(Columns), 1)
	if err := f.SetCellStyle(sheetName, "A1", last, headerStyle); err != nil {
		return err
	}

	for i, rec := range recs {
		row := i + 2
		cells := Row(rec, loc)
		values := []any{
			cells[0], cells[1], cells[2], cells[3], cells[4],
			rec.NoteWeight, rec.GrossWeight, rec.TaraTotal, rec.NetWeight, rec.Difference(),
			cells[10],
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return err
			}
		}
		from, _ := excelize.CoordinatesToCellName(6, row)
		to, _ := excelize.CoordinatesToCellName(10, row)
		if err := f.SetCellStyle(sheetName, from, to, weightStyle); err != nil {
			return err
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("export: write xlsx: %w", err)
	}
	return nil
}
