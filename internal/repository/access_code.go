package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sykkeldel/locker-server/internal/database"
	"github.com/sykkeldel/locker-server/internal/model"
)

type AccessCodeRepository interface {
	Create(ctx context.Context, params model.CreateAccessCodeParams) (*model.AccessCode, error)
	CreateOpening(ctx context.Context, code model.CreateAccessCodeParams, window model.CreateAccessWindowParams) (*model.AccessCode, *model.AccessWindow, error)
	FindByOrderAndKind(ctx context.Context, orderID int64, kind model.CodeKind) (*model.AccessCode, error)
	FindByCode(ctx context.Context, code string) (*model.AccessCode, error)
	ListByOrder(ctx context.Context, orderID int64) ([]model.AccessCode, error)
	ListIssuedSince(ctx context.Context, since time.Time) ([]model.IssuedCode, error)
	FindWindow(ctx context.Context, orderID int64) (*model.AccessWindow, error)
}

type accessCodeRepo struct {
	db *database.DB
}

func NewAccessCodeRepository(db *database.DB) AccessCodeRepository {
	return &accessCodeRepo{db: db}
}

const insertAccessCode = `
	INSERT INTO access_codes (order_id, kind, code, issued_at)
	VALUES ($1, $2, $3, $4)
	RETURNING *
`

func (r *accessCodeRepo) Create(ctx context.Context, params model.CreateAccessCodeParams) (*model.AccessCode, error) {
	var code model.AccessCode
	err := r.db.GetContext(ctx, &code, insertAccessCode,
		params.OrderID, params.Kind, params.Code, params.IssuedAt)
	if err != nil {
		return nil, mapConstraintViolation(err)
	}
	return &code, nil
}

func (r *accessCodeRepo) CreateOpening(
	ctx context.Context,
	codeParams model.CreateAccessCodeParams,
	windowParams model.CreateAccessWindowParams,
) (*model.AccessCode, *model.AccessWindow, error) {
	var (
		code   model.AccessCode
		window model.AccessWindow
	)
	err := r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := tx.GetContext(ctx, &code, insertAccessCode,
			codeParams.OrderID, codeParams.Kind, codeParams.Code, codeParams.IssuedAt,
		); err != nil {
			return mapConstraintViolation(err)
		}
		return mapConstraintViolation(tx.GetContext(ctx, &window, `
			INSERT INTO access_windows (order_id, start_at, end_at)
			VALUES ($1, $2, $3)
			RETURNING *
		`, windowParams.OrderID, windowParams.StartAt, windowParams.EndAt))
	})
	if err != nil {
		return nil, nil, err
	}
	return &code, &window, nil
}

func (r *accessCodeRepo) FindByOrderAndKind(ctx context.Context, orderID int64, kind model.CodeKind) (*model.AccessCode, error) {
	var code model.AccessCode
	err := r.db.GetContext(ctx, &code, `
		SELECT * FROM access_codes WHERE order_id = $1 AND kind = $2
	`, orderID, kind)
	return HandleNotFound(&code, err)
}

func (r *accessCodeRepo) FindByCode(ctx context.Context, code string) (*model.AccessCode, error) {
	var ac model.AccessCode
	err := r.db.GetContext(ctx, &ac, `SELECT * FROM access_codes WHERE code = $1`, code)
	return HandleNotFound(&ac, err)
}

func (r *accessCodeRepo) ListByOrder(ctx context.Context, orderID int64) ([]model.AccessCode, error) {
	var codes []model.AccessCode
	err := r.db.SelectContext(ctx, &codes, `
		SELECT * FROM access_codes WHERE order_id = $1 ORDER BY id ASC
	`, orderID)
	if err != nil {
		return nil, err
	}
	return codes, nil
}

func (r *accessCodeRepo) ListIssuedSince(ctx context.Context, since time.Time) ([]model.IssuedCode, error) {
	var codes []model.IssuedCode
	err := r.db.SelectContext(ctx, &codes, `
		SELECT c.id, c.order_id, c.kind, c.code, c.issued_at,
		       w.start_at AS window_start, w.end_at AS window_end
		FROM access_codes c
		LEFT JOIN access_windows w
		  ON w.order_id = c.order_id AND c.kind = 'opening'
		WHERE c.issued_at >= $1
		ORDER BY c.issued_at ASC, c.id ASC
	`, since)
	if err != nil {
		return nil, err
	}
	return codes, nil
}

func (r *accessCodeRepo) FindWindow(ctx context.Context, orderID int64) (*model.AccessWindow, error) {
	var window model.AccessWindow
	err := r.db.GetContext(ctx, &window, `SELECT * FROM access_windows WHERE order_id = $1`, orderID)
	return HandleNotFound(&window, err)
}
