package export

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// Badge card size in millimetres.
const (
	BadgeWidth  = 59.0
	BadgeHeight = 84.0
)

// BadgeHeader is the organisation block printed at the top of every badge.
type BadgeHeader struct {
	Organisation string
	Lines        []string
}

// DefaultBadgeHeader mirrors the printed card stock used on site.
var DefaultBadgeHeader = BadgeHeader{
	Organisation: "ASSYMEX MONTERREY, S.A. DE C.V.",
	Lines: []string{
		"San Sebastian No.110 Col. Los Lermas",
		"67190 Guadalupe, N.L. Mexico",
		"Tels. +52 81 8127 2833 y +52 81 8127 2835",
	},
}

// BadgeData is the content of one employee badge. Photo and QRCode hold raw
// image bytes; an empty Photo renders a placeholder box.
type BadgeData struct {
	EmployeeID int
	FirstName  string
	LastName   string
	Position   string
	Photo      []byte
	QRCode     []byte
}

// BadgeRenderer draws identity badges on a single small page.
type BadgeRenderer struct {
	header BadgeHeader
}

// NewBadgeRenderer builds a renderer using header, or the default when empty.
func NewBadgeRenderer(header BadgeHeader) *BadgeRenderer {
	if header.Organisation == "" {
		header = DefaultBadgeHeader
	}
	return &BadgeRenderer{header: header}
}

// Render produces the badge PDF.
func (r *BadgeRenderer) Render(data BadgeData) ([]byte, error) {
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           gofpdf.SizeType{Wd: BadgeWidth, Ht: BadgeHeight},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetDrawColor(0, 0, 0)
	pdf.Rect(1, 1, BadgeWidth-2, BadgeHeight-2, "D")

	pdf.SetXY(0, 5)
	pdf.SetFont("Helvetica", "B", 7)
	pdf.CellFormat(BadgeWidth, 3, tr(r.header.Organisation), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 6)
	for _, line := range r.header.Lines {
		pdf.SetX(0)
		pdf.CellFormat(BadgeWidth, 3.5, tr(line), "", 1, "C", false, 0, "")
	}

	pdf.SetDrawColor(191, 191, 191)
	pdf.SetLineWidth(0.15)
	pdf.Line(5, 23, BadgeWidth-5, 23)

	// Images sit in the lower half: QR on the left, photo on the right.
	const imageTop = BadgeHeight - 51
	if len(data.QRCode) > 0 {
		if err := placeImage(pdf, "qr", data.QRCode, 9, imageTop+12, 20, 20); err != nil {
			return nil, err
		}
	}

	pdf.SetDrawColor(0, 0, 0)
	if len(data.Photo) == 0 || placeImage(pdf, "photo", data.Photo, 33, imageTop, 24, 32) != nil {
		pdf.Rect(33, imageTop, 24, 32, "D")
		pdf.SetFont("Helvetica", "I", 6)
		pdf.SetXY(33, imageTop+14)
		pdf.CellFormat(24, 4, "No Photo", "", 0, "C", false, 0, "")
	}

	pdf.SetFillColor(43, 89, 176)
	pdf.Rect(4, BadgeHeight-18, BadgeWidth-8, 12, "F")
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 7)
	pdf.SetXY(4, BadgeHeight-17)
	fullName := strings.ToUpper(strings.TrimSpace(data.FirstName + " " + data.LastName))
	pdf.CellFormat(BadgeWidth-8, 4, tr(fullName), "", 2, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 6)
	pdf.CellFormat(BadgeWidth-8, 3.5, tr(data.Position), "", 2, "C", false, 0, "")
	pdf.CellFormat(BadgeWidth-8, 3.5, fmt.Sprintf("ID: %d", data.EmployeeID), "", 0, "C", false, 0, "")

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("render badge: %w", err)
	}
	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render badge: %w", err)
	}
	return buf.Bytes(), nil
}

func placeImage(pdf *gofpdf.Fpdf, name string, data []byte, x, y, w, h float64) error {
	imageType := imageTypeOf(data)
	if imageType == "" {
		return fmt.Errorf("unsupported %s image", name)
	}
	opts := gofpdf.ImageOptions{ImageType: imageType, ReadDpi: false}
	info := pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))
	if info == nil || pdf.Err() {
		pdf.ClearError()
		return fmt.Errorf("register %s image", name)
	}
	pdf.ImageOptions(name, x, y, w, h, false, opts, 0, "")
	return nil
}

func imageTypeOf(data []byte) string {
	switch http.DetectContentType(data) {
	case "image/png":
		return "PNG"
	case "image/jpeg":
		return "JPG"
	case "image/gif":
		return "GIF"
	default:
		return ""
	}
}
