// Package tesseract implements ocr.Extractor on top of the Tesseract engine.
// It needs cgo and the tesseract/leptonica libraries at build time.
package tesseract

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"

	"github.com/geocoder89/eventparser/internal/ocr"
)

// Extractor owns one engine for the whole process. The engine is not safe for
// concurrent use, so calls go through ocr.Serial.
type Extractor struct {
	client *gosseract.Client
	serial *ocr.Serial
}

func New(languages ...string) (*Extractor, error) {
	client := gosseract.NewClient()
	if len(languages) > 0 {
		if err := client.SetLanguage(languages...); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("tesseract languages: %w", err)
		}
	}

	e := &Extractor{client: client}
	e.serial = ocr.NewSerial(e.recognize)
	return e, nil
}

func (e *Extractor) Extract(ctx context.Context, image []byte) (string, error) {
	return e.serial.Extract(ctx, image)
}

func (e *Extractor) recognize(image []byte) (string, error) {
	if err := e.client.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("tesseract load image: %w", err)
	}

	text, err := e.client.Text()
	if err != nil {
		return "", fmt.Errorf("tesseract recognise: %w", err)
	}
	return text, nil
}

func (e *Extractor) Close() error {
	return e.serial.Locked(e.client.Close)
}
