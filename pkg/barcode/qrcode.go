package barcode

import (
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// DefaultSize is the edge length in pixels of generated QR images.
const DefaultSize = 256

// EncodePNG renders content as a PNG QR code with medium error correction.
func EncodePNG(content string, size int) ([]byte, error) {
	if content == "" {
		return nil, fmt.Errorf("qr content is empty")
	}
	if size <= 0 {
		size = DefaultSize
	}
	png, err := qrcode.Encode(content, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}

// ProfileURL is the public profile address encoded on employee badges.
func ProfileURL(publicBaseURL string, employeeID int) string {
	return fmt.Sprintf("%s/public/employees/%d", publicBaseURL, employeeID)
}
