// Package export renders weighing history as CSV or XLSX and single records
// as printable PDF receiving tickets.
package export

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/weighcheck/weighcheck/internal/weighing"
)

// DateLayout is the timestamp layout used in every export.
const DateLayout = "02/01/2006 15:04"

// Columns is the fixed column order of the history export.
var Columns = []string{
	"Date", "Supplier", "Product", "Batch", "Expiration",
	"Note Weight", "Gross Weight", "Total Tare", "Net Weight", "Difference", "Status",
}

// Row flattens a record into export cells.
func Row(rec weighing.Record, loc *time.Location) []string {
	if loc == nil {
		loc = time.Local
	}
	return []string{
		rec.Timestamp.In(loc).Format(DateLayout),
		rec.Supplier,
		rec.Product,
		rec.Batch,
		rec.ExpirationDate,
		formatKg(rec.NoteWeight),
		formatKg(rec.GrossWeight),
		formatKg(rec.TaraTotal),
		formatKg(rec.NetWeight),
		formatKg(rec.Difference()),
		string(rec.Status),
	}
}

// WriteCSV emits one row per record after the header.
func WriteCSV(w io.Writer, recs []weighing.Record, loc *time.Location) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write(Columns); err != nil {
		return err
	}
	for _, rec := range recs {
		if err := writer.Write(Row(rec, loc)); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func formatKg(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}
