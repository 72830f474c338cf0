package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sykkeldel/locker-server/internal/model"
)

type OrderActionRepository interface {
	Upsert(ctx context.Context, orderID int64, action model.OrderActionKind, at time.Time) (*model.OrderAction, error)
	ListByOrder(ctx context.Context, orderID int64) ([]model.OrderAction, error)
}

type orderActionRepo struct {
	db *sqlx.DB
}

func NewOrderActionRepository(db *sqlx.DB) OrderActionRepository {
	return &orderActionRepo{db: db}
}

func (r *orderActionRepo) Upsert(ctx context.Context, orderID int64, action model.OrderActionKind, at time.Time) (*model.OrderAction, error) {
	var oa model.OrderAction
	err := r.db.GetContext(ctx, &oa, `
		INSERT INTO order_actions (order_id, action, action_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (order_id, action)
		DO UPDATE SET action_at = EXCLUDED.action_at, updated_at = NOW()
		RETURNING *
	`, orderID, action, at)
	if err != nil {
		return nil, err
	}
	return &oa, nil
}

func (r *orderActionRepo) ListByOrder(ctx context.Context, orderID int64) ([]model.OrderAction, error) {
	var actions []model.OrderAction
	err := r.db.SelectContext(ctx, &actions, `
		SELECT * FROM order_actions WHERE order_id = $1 ORDER BY action ASC
	`, orderID)
	if err != nil {
		return nil, err
	}
	return actions, nil
}
