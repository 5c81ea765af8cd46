package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// ReceiptData carries everything printed on a registration receipt.
type ReceiptData struct {
	RegistrationID   string
	CompetitionTitle string
	CategoryLabel    string
	BatchName        string
	ParticipantName  string
	ParticipantEmail string
	School           string
	Amount           int64
	IssuedAt         time.Time
	TeamMembers      []ReceiptTeamMember
}

// ReceiptTeamMember is one roster row on a team receipt.
type ReceiptTeamMember struct {
	Name   string
	Grade  string
	Role   string
	School string
}

// ReceiptRenderer renders approved-registration receipts as PDF documents.
type ReceiptRenderer struct{}

// NewReceiptRenderer constructs a ReceiptRenderer.
func NewReceiptRenderer() *ReceiptRenderer {
	return &ReceiptRenderer{}
}

// Render produces the PDF bytes for a receipt.
func (r *ReceiptRenderer) Render(data ReceiptData) ([]byte, error) {
	if data.RegistrationID == "" {
		return nil, fmt.Errorf("receipt requires a registration id")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 20, 15)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, "BUKTI PENDAFTARAN", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, data.CompetitionTitle, "", 1, "C", false, 0, "")
	pdf.Ln(6)

	row := func(label, value string) {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(50, 7, label, "", 0, "", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 7, value, "", 1, "", false, 0, "")
	}

	row("Nomor Pendaftaran", data.RegistrationID)
	row("Gelombang", data.BatchName)
	row("Kategori", data.CategoryLabel)
	row("Nama", data.ParticipantName)
	row("Email", data.ParticipantEmail)
	if data.School != "" {
		row("Sekolah/Instansi", data.School)
	}
	row("Biaya", fmt.Sprintf("Rp %d", data.Amount))
	if !data.IssuedAt.IsZero() {
		row("Diterbitkan Pada", data.IssuedAt.Format("02 January 2006 15:04 MST"))
	}

	if len(data.TeamMembers) > 0 {
		pdf.Ln(6)
		pdf.SetFont("Arial", "B", 11)
		pdf.CellFormat(0, 8, "Anggota Tim", "", 1, "", false, 0, "")

		pdf.SetFont("Arial", "B", 9)
		pdf.CellFormat(70, 7, "Nama", "1", 0, "C", false, 0, "")
		pdf.CellFormat(40, 7, "Kelas", "1", 0, "C", false, 0, "")
		pdf.CellFormat(40, 7, "Sekolah", "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 7, "Peran", "1", 1, "C", false, 0, "")

		pdf.SetFont("Arial", "", 9)
		for _, m := range data.TeamMembers {
			pdf.CellFormat(70, 7, m.Name, "1", 0, "", false, 0, "")
			pdf.CellFormat(40, 7, m.Grade, "1", 0, "", false, 0, "")
			pdf.CellFormat(40, 7, m.School, "1", 0, "", false, 0, "")
			pdf.CellFormat(30, 7, m.Role, "1", 1, "C", false, 0, "")
		}
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render receipt: %w", err)
	}
	return buf.Bytes(), nil
}
