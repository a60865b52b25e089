package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/go-pdf/fpdf"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/weighcheck/weighcheck/internal/weighing"
)

const (
	ticketWidth  = 80.0 // mm, thermal roll
	ticketHeight = 150.0
	ticketMargin = 4.0
	ticketQRSize = 36.0
)

// TicketPayload is the JSON encoded into the ticket's QR code.
type TicketPayload struct {
	ID         string  `json:"id"`
	Supplier   string  `json:"supplier"`
	Product    string  `json:"product"`
	Gross      float64 `json:"gross"`
	Note       float64 `json:"note"`
	Net        float64 `json:"net"`
	Difference float64 `json:"diff"`
	Status     string  `json:"status"`
}

// WriteTicket renders a single-page receiving ticket for rec.
func WriteTicket(w io.Writer, rec weighing.Record, loc *time.Location) error {
	payload, err := json.Marshal(TicketPayload{
		ID:         rec.ID,
		Supplier:   rec.Supplier,
		Product:    rec.Product,
		Gross:      rec.GrossWeight,
		Note:       rec.NoteWeight,
		Net:        rec.NetWeight,
		Difference: rec.Difference(),
		Status:     string(rec.Status),
	})
	if err != nil {
		return fmt.Errorf("export: encode ticket payload: %w", err)
	}
	qrPNG, err := qrcode.Encode(string(payload), qrcode.Medium, 256)
	if err != nil {
		return fmt.Errorf("export: qr code: %w", err)
	}

	cells := Row(rec, loc)
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: ticketWidth, Ht: ticketHeight},
	})
	pdf.SetMargins(ticketMargin, ticketMargin, ticketMargin)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	inner := ticketWidth - 2*ticketMargin
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(inner, 7, "RECEIVING TICKET", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 8)
	if rec.Store != "" {
		pdf.CellFormat(inner, 4, tr(rec.Store), "", 1, "C", false, 0, "")
	}
	pdf.CellFormat(inner, 4, cells[0], "", 1, "C", false, 0, "")
	pdf.Ln(2)

	line := func(label, value string) {
		pdf.SetFont("Helvetica", "B", 8)
		pdf.CellFormat(26, 5, label, "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 8)
		pdf.CellFormat(inner-26, 5, tr(value), "", 1, "L", false, 0, "")
	}
	line("Supplier", rec.Supplier)
	line("Product", rec.Product)
	if rec.Batch != "" {
		line("Batch", rec.Batch)
	}
	if rec.ExpirationDate != "" {
		line("Expiration", rec.ExpirationDate)
	}
	if rec.RecommendedTemperature != "" {
		line("Storage", rec.RecommendedTemperature)
	}
	pdf.Ln(1)
	line("Boxes", fmt.Sprintf("%d x %s kg", rec.Boxes.Qty, formatKg(rec.Boxes.UnitTara)))
	line("Gross", cells[6]+" kg")
	line("Total tare", cells[7]+" kg")
	line("Net", cells[8]+" kg")
	line("Invoice", cells[5]+" kg")
	line("Difference", cells[9]+" kg")

	pdf.Ln(2)
	pdf.SetFont("Helvetica", "B", 11)
	status := "VERIFIED"
	if rec.Status == weighing.StatusError {
		status = "DIVERGENT"
		pdf.SetTextColor(180, 0, 0)
	}
	pdf.CellFormat(inner, 7, status, "1", 1, "C", false, 0, "")
	pdf.SetTextColor(0, 0, 0)

	imgName := "qr_" + rec.ID
	pdf.RegisterImageOptionsReader(imgName, fpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(qrPNG))
	qrX := (ticketWidth - ticketQRSize) / 2
	pdf.ImageOptions(imgName, qrX, pdf.GetY()+3, ticketQRSize, ticketQRSize, false, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")
	pdf.SetY(pdf.GetY() + ticketQRSize + 4)
	pdf.SetFont("Helvetica", "", 6)
	pdf.CellFormat(inner, 3, rec.ID, "", 1, "C", false, 0, "")

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("export: render ticket: %w", err)
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("export: write ticket: %w", err)
	}
	return nil
}
