// Package qrcode renders event QR codes.
package qrcode

import (
	"fmt"

	qr "github.com/skip2/go-qrcode"
)

const DefaultSize = 256

// PNG encodes content as a square PNG of size pixels at medium recovery.
func PNG(content string, size int) ([]byte, error) {
	if size <= 0 {
		size = DefaultSize
	}

	png, err := qr.Encode(content, qr.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}
