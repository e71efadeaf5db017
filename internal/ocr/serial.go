package ocr

import (
	"context"
	"errors"
	"sync"
)

// Serial runs an engine that is not safe for concurrent use one image at a
// time. Callers wait in the background so their context bounds the wait.
type Serial struct {
	mu        sync.Mutex
	recognize func(image []byte) (string, error)
}

func NewSerial(recognize func(image []byte) (string, error)) *Serial {
	return &Serial{recognize: recognize}
}

type serialResult struct {
	text string
	err  error
}

// Extract waits for the engine and recognizes image. A caller whose context
// ends while queued gets ErrTimeout (deadline) or ctx.Err() and the engine
// never sees its image. A call already running keeps the engine until done.
func (s *Serial) Extract(ctx context.Context, image []byte) (string, error) {
	done := make(chan serialResult, 1)

	go func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		if err := ctx.Err(); err != nil {
			done <- serialResult{err: err}
			return
		}

		text, err := s.recognize(image)
		done <- serialResult{text: text, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return "", contextError(r.err)
		}
		return NormalizeLines(r.text), nil
	case <-ctx.Done():
		return "", contextError(ctx.Err())
	}
}

// Locked runs fn with the engine held, for teardown.
func (s *Serial) Locked(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn()
}

func contextError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	return err
}
