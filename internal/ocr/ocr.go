// Package ocr turns poster images into plain text.
package ocr

import (
	"context"
	"errors"
	"strings"
)

var ErrTimeout = errors.New("ocr timed out")

// Extractor reads the text printed on an image. An image without text yields
// "" and a nil error.
type Extractor interface {
	Extract(ctx context.Context, image []byte) (string, error)
}

// NormalizeLines trims every line, drops empty ones and joins the rest with
// "\n", keeping the detector's reading order.
func NormalizeLines(raw string) string {
	lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")

	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}

// ExtractorFunc adapts a function to Extractor.
type ExtractorFunc func(ctx context.Context, image []byte) (string, error)

func (f ExtractorFunc) Extract(ctx context.Context, image []byte) (string, error) {
	return f(ctx, image)
}
