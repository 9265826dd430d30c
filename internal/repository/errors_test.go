package repository

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		network bool
		target  error
	}{
		{name: "no rows", err: pgx.ErrNoRows, target: ErrNotFound},
		{name: "admin shutdown", err: &pgconn.PgError{Code: "57P01"}, network: true},
		{name: "connection failure", err: &pgconn.PgError{Code: "08006"}, network: true},
		{name: "dial error", err: &net.OpError{Op: "dial", Err: errors.New("refused")}, network: true},
		{name: "unexpected eof", err: fmt.Errorf("read: %w", io.ErrUnexpectedEOF), network: true},
		{name: "unique violation", err: &pgconn.PgError{Code: "23505"}, target: ErrDuplicate},
		{name: "check violation", err: &pgconn.PgError{Code: "23514"}},
		{name: "canceled", err: context.Canceled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.err)
			assert.Equal(t, tt.network, IsNetworkError(got))
			if tt.target != nil {
				assert.ErrorIs(t, got, tt.target)
			}
		})
	}
}

func TestClassifyNil(t *testing.T) {
	assert.NoError(t, classify(nil))
}
