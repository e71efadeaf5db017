package extraction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/geocoder89/eventparser/internal/observability"
	"github.com/geocoder89/eventparser/internal/ocr"
)

// Pipeline runs OCR over a poster image and feeds the text to a Client.
type Pipeline struct {
	ocr        ocr.Extractor
	client     *Client
	ocrTimeout time.Duration
	prom       *observability.Prom
	log        *slog.Logger
}

func NewPipeline(extractor ocr.Extractor, client *Client, ocrTimeout time.Duration, prom *observability.Prom, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{ocr: extractor, client: client, ocrTimeout: ocrTimeout, prom: prom, log: log}
}

func (p *Pipeline) ParseImage(ctx context.Context, image []byte) (Record, error) {
	text, err := p.readText(ctx, image)
	if err != nil {
		return nil, err
	}
	return p.client.Extract(ctx, text)
}

// readText returns "" for OCR failures other than a timeout.
func (p *Pipeline) readText(ctx context.Context, image []byte) (string, error) {
	ocrCtx := ctx
	if p.ocrTimeout > 0 {
		var cancel context.CancelFunc
		ocrCtx, cancel = context.WithTimeout(ctx, p.ocrTimeout)
		defer cancel()
	}

	ocrCtx, span := observability.Tracer().Start(ocrCtx, "extraction.ocr")
	defer span.End()

	start := time.Now()
	text, err := p.ocr.Extract(ocrCtx, image)
	switch {
	case err == nil:
		result := "ok"
		if text == "" {
			result = "empty"
		}
		p.prom.ObserveExtraction("ocr", result, time.Since(start))
		return text, nil

	case errors.Is(err, ocr.ErrTimeout) || errors.Is(err, context.DeadlineExceeded):
		span.RecordError(err)
		p.prom.ObserveExtraction("ocr", "timeout", time.Since(start))
		return "", fmt.Errorf("%w: %w", ErrTimeout, err)

	default:
		span.RecordError(err)
		p.log.WarnContext(ctx, "ocr failed, treating poster as blank", "err", err)
		p.prom.ObserveExtraction("ocr", "error", time.Since(start))
		return "", nil
	}
}
