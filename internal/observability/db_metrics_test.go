package observability

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestClassifyDBErr(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&pgconn.PgError{Code: "23505"}, "unique_violation"},
		{fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: "40P01"}), "deadlock"},
		{&pgconn.PgError{Code: "22001"}, "pg_22001"},
		{context.DeadlineExceeded, "timeout"},
		{errors.New("connection refused"), "connection"},
		{errors.New("boom"), "unknown"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyDBErr(tt.err), tt.err.Error())
	}
}

func TestObserveDB_CountsErrors(t *testing.T) {
	p := NewProm(prometheus.NewRegistry())

	_ = p.ObserveDB("events.get", func() error { return nil })
	_ = p.ObserveDB("events.get", func() error { return &pgconn.PgError{Code: "23505"} })

	assert.Equal(t, 1.0, testutil.ToFloat64(p.DbErrorsTotal.WithLabelValues("events.get", "unique_violation")))
}

func TestObserveDB_NilPromRunsFn(t *testing.T) {
	var p *Prom
	called := false
	err := p.ObserveDB("x", func() error { called = true; return nil })

	assert.NoError(t, err)
	assert.True(t, called)
	p.ObserveLedger("register", "ok")
}
