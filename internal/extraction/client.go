package extraction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"

	"github.com/geocoder89/eventparser/internal/observability"
)

// ErrTimeout means an upstream call (OCR or model) ran out of time. Callers
// may retry.
var ErrTimeout = errors.New("extraction upstream timed out")

// Generator sends a prompt to a generative model and returns its raw text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

type ClientOptions struct {
	Timeout       time.Duration
	RatePerSecond float64
	Prom          *observability.Prom
	Log           *slog.Logger
}

type Client struct {
	gen     Generator
	limiter *rate.Limiter
	timeout time.Duration
	prom    *observability.Prom
	log     *slog.Logger
	now     func() time.Time
}

func NewClient(gen Generator, opts ClientOptions) *Client {
	limit := rate.Inf
	if opts.RatePerSecond > 0 {
		limit = rate.Limit(opts.RatePerSecond)
	}

	log := opts.Log
	if log == nil {
		log = slog.Default()
	}

	return &Client{
		gen:     gen,
		limiter: rate.NewLimiter(limit, 1),
		timeout: opts.Timeout,
		prom:    opts.Prom,
		log:     log,
		now:     time.Now,
	}
}

// Extract asks the model for a Record describing text. Blank text returns the
// all-null record without a model call. A timeout returns ErrTimeout; any other
// model failure or unparseable reply degrades to the all-null record.
func (c *Client) Extract(ctx context.Context, text string) (Record, error) {
	if strings.TrimSpace(text) == "" {
		c.prom.ObserveExtraction("llm", "skipped", 0)
		return EmptyRecord(), nil
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	ctx, span := observability.Tracer().Start(ctx, "extraction.generate")
	defer span.End()

	start := time.Now()

	if err := c.limiter.Wait(ctx); err != nil {
		// Wait fails early when the deadline cannot be met
		span.SetStatus(codes.Error, "rate limit wait")
		c.prom.ObserveExtraction("llm", "timeout", time.Since(start))
		return nil, fmt.Errorf("%w: waiting for model slot: %v", ErrTimeout, err)
	}

	raw, err := c.gen.Generate(ctx, BuildPrompt(text, c.now()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generate")

		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			c.prom.ObserveExtraction("llm", "timeout", time.Since(start))
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}

		c.log.WarnContext(ctx, "model call failed, returning empty record", "err", err)
		c.prom.ObserveExtraction("llm", "error", time.Since(start))
		return EmptyRecord(), nil
	}

	rec, ok := ParseResponse(raw)
	span.SetAttributes(attribute.Bool("extraction.parsed", ok))
	if !ok {
		c.log.WarnContext(ctx, "model reply had no JSON object", "reply_len", len(raw))
		c.prom.ObserveExtraction("llm", "unparseable", time.Since(start))
		return rec, nil
	}

	c.prom.ObserveExtraction("llm", "ok", time.Since(start))
	return rec, nil
}
