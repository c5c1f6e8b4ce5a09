package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	pkgerrors "github.com/lanlhvn/location-assignment/pkg/errors"
)

// PostgreSQL 完整性约束 SQLSTATE
const (
	pgNotNullViolation    = "23502"
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
	pgCheckViolation      = "23514"
)

// wrapStoreErr 将底层错误归类为 ErrConstraintViolation 或 ErrStore
func wrapStoreErr(op string, err error) error {
	if err == nil {
		return nil
	}
	kind := pkgerrors.ErrStore
	if isConstraintViolation(err) {
		kind = pkgerrors.ErrConstraintViolation
	}
	return &pkgerrors.StoreError{Op: op, Kind: kind, Err: err}
}

func constraintErr(op string, err error) error {
	return &pkgerrors.StoreError{Op: op, Kind: pkgerrors.ErrConstraintViolation, Err: err}
}

func isConstraintViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) ||
		errors.Is(err, gorm.ErrForeignKeyViolated) ||
		errors.Is(err, gorm.ErrCheckConstraintViolated) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgNotNullViolation, pgForeignKeyViolation, pgUniqueViolation, pgCheckViolation:
			return true
		}
	}
	return false
}
