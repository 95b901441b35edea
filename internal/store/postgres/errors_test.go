package postgres

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/milavdabgar/gpp-ingest/internal/store"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"no rows", pgx.ErrNoRows, store.ErrNotFound},
		{"wrapped no rows", fmt.Errorf("select: %w", pgx.ErrNoRows), store.ErrNotFound},
		{"unique violation", &pgconn.PgError{Code: "23505", ConstraintName: "students_enrollment_no_key"}, store.ErrDuplicateKey},
		{"connection failure", &pgconn.PgError{Code: "08006"}, store.ErrUnavailable},
		{"admin shutdown", &pgconn.PgError{Code: "57P01"}, store.ErrUnavailable},
		{"network", &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, store.ErrUnavailable},
		{"closed pool", errors.New("closed pool"), store.ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, classify(tt.err), tt.want)
		})
	}
}

func TestClassify_PassesThroughOtherErrors(t *testing.T) {
	assert.NoError(t, classify(nil))

	check := &pgconn.PgError{Code: "23514", Message: "check constraint"}
	got := classify(check)
	assert.Same(t, check, got)
	assert.NotErrorIs(t, got, store.ErrUnavailable)

	assert.Equal(t, context.Canceled, classify(context.Canceled))
}
