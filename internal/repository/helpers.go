package repository

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

var (
	// ErrDuplicateCode means the code is already held by another order.
	ErrDuplicateCode = errors.New("access code already issued")
	// ErrDuplicateOrderKind means the order already has a code of that kind.
	ErrDuplicateOrderKind = errors.New("order already has an access code of this kind")
	// ErrNoRowsAffected is returned by single-row updates that matched nothing.
	ErrNoRowsAffected = errors.New("no rows affected")
	// ErrInvalidWindow means an access window would end before it starts.
	ErrInvalidWindow = errors.New("access window ends before it starts")
)

const (
	pqUniqueViolation = "23505"
	pqCheckViolation  = "23514"

	constraintAccessCode      = "access_codes_code_key"
	constraintAccessOrderKind = "access_codes_order_kind_key"
	constraintWindowBounds    = "access_windows_bounds_check"
)

// HandleNotFound processes a database query result, converting sql.ErrNoRows
// to a nil result without error. This is a common pattern for Find* operations
// where a missing row is not an error condition.
//
// Usage:
//
//	var item model.Item
//	err := r.db.GetContext(ctx, &item, query, args...)
//	return HandleNotFound(&item, err)
func HandleNotFound[T any](result *T, err error) (*T, error) {
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// mapConstraintViolation translates access code and window constraint
// violations into the package sentinels. Other errors pass through unchanged.
func mapConstraintViolation(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch {
	case pqErr.Code == pqUniqueViolation && pqErr.Constraint == constraintAccessCode:
		return ErrDuplicateCode
	case pqErr.Code == pqUniqueViolation && pqErr.Constraint == constraintAccessOrderKind:
		return ErrDuplicateOrderKind
	case pqErr.Code == pqCheckViolation && pqErr.Constraint == constraintWindowBounds:
		return ErrInvalidWindow
	}
	return err
}

func requireOneRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNoRowsAffected
	}
	return nil
}
