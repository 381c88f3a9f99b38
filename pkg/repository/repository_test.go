package repository_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JaimeStill/countersign/pkg/repository"
)

var (
	errNotFound = errors.New("not found")
	errConflict = errors.New("conflict")
)

func TestMapError(t *testing.T) {
	other := errors.New("connection reset")
	fk := &pgconn.PgError{Code: "23503"}

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"nil", nil, nil},
		{"no rows", sql.ErrNoRows, errNotFound},
		{"wrapped no rows", fmt.Errorf("find: %w", sql.ErrNoRows), errNotFound},
		{"unique violation", &pgconn.PgError{Code: "23505"}, errConflict},
		{"foreign key passthrough", fk, fk},
		{"other passthrough", other, other},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := repository.MapError(tt.err, errNotFound, errConflict)
			if got != tt.want {
				t.Errorf("MapError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsForeignKeyViolation(t *testing.T) {
	approver := &pgconn.PgError{Code: "23503", ConstraintName: "documents_current_approver_fkey"}

	tests := []struct {
		name       string
		err        error
		constraint string
		want       bool
	}{
		{"any constraint", approver, "", true},
		{"matching constraint", approver, "documents_current_approver_fkey", true},
		{"other constraint", approver, "documents_submitted_by_fkey", false},
		{"wrapped", fmt.Errorf("update: %w", approver), "", true},
		{"unique violation", &pgconn.PgError{Code: "23505"}, "", false},
		{"no rows", sql.ErrNoRows, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := repository.IsForeignKeyViolation(tt.err, tt.constraint); got != tt.want {
				t.Errorf("IsForeignKeyViolation() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsUniqueViolation(t *testing.T) {
	slot := &pgconn.PgError{Code: "23505", ConstraintName: "signatures_document_slot_key"}

	tests := []struct {
		name       string
		err        error
		constraint string
		want       bool
	}{
		{"any constraint", slot, "", true},
		{"matching constraint", slot, "signatures_document_slot_key", true},
		{"other constraint", slot, "signatures_document_approver_key", false},
		{"wrapped", fmt.Errorf("insert: %w", slot), "", true},
		{"not unique", &pgconn.PgError{Code: "23503"}, "", false},
		{"plain error", errors.New("x"), "", false},
		{"nil", nil, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := repository.IsUniqueViolation(tt.err, tt.constraint); got != tt.want {
				t.Errorf("IsUniqueViolation() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"serialization failure", &pgconn.PgError{Code: "40001"}, true},
		{"deadlock", fmt.Errorf("update: %w", &pgconn.PgError{Code: "40P01"}), true},
		{"unique violation", &pgconn.PgError{Code: "23505"}, false},
		{"plain error", errors.New("x"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := repository.IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

type beginner struct {
	err  error
	opts *sql.TxOptions
}

func (b *beginner) BeginTx(_ context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	b.opts = opts
	return nil, b.err
}

func TestWithTxBeginFailure(t *testing.T) {
	down := errors.New("connection refused")
	db := &beginner{err: down}

	called := false
	_, err := repository.WithTx(context.Background(), db, func(*sql.Tx) (int, error) {
		called = true
		return 1, nil
	})
	if !errors.Is(err, down) {
		t.Errorf("WithTx() err = %v, want wrapped begin error", err)
	}
	if called {
		t.Error("fn ran without a transaction")
	}
	if db.opts == nil || db.opts.Isolation != sql.LevelReadCommitted {
		t.Errorf("opts = %+v, want read committed", db.opts)
	}
}
