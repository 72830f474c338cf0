package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sykkeldel/locker-server/internal/model"
)

type DoorCommandRepository interface {
	Create(ctx context.Context, params model.CreateDoorCommandParams) (*model.DoorCommand, error)
	// ListPending returns unexecuted commands with after < created_at <= until,
	// oldest first.
	ListPending(ctx context.Context, after, until time.Time) ([]model.DoorCommand, error)
	// MarkExecuted returns the updated row, or ErrNoRowsAffected for an
	// unknown id.
	MarkExecuted(ctx context.Context, id int64) (*model.DoorCommand, error)
	ListRecent(ctx context.Context, limit int) ([]model.DoorCommand, error)
}

type doorCommandRepo struct {
	db *sqlx.DB
}

func NewDoorCommandRepository(db *sqlx.DB) DoorCommandRepository {
	return &doorCommandRepo{db: db}
}

func (r *doorCommandRepo) Create(ctx context.Context, params model.CreateDoorCommandParams) (*model.DoorCommand, error) {
	var cmd model.DoorCommand
	err := r.db.GetContext(ctx, &cmd, `
		INSERT INTO door_commands (door_number, command, created_at)
		VALUES ($1, $2, $3)
		RETURNING *
	`, params.DoorNumber, params.Command, params.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &cmd, nil
}

func (r *doorCommandRepo) ListPending(ctx context.Context, after, until time.Time) ([]model.DoorCommand, error) {
	var cmds []model.DoorCommand
	err := r.db.SelectContext(ctx, &cmds, `
		SELECT * FROM door_commands
		WHERE executed = FALSE AND created_at > $1 AND created_at <= $2
		ORDER BY created_at ASC, id ASC
	`, after, until)
	if err != nil {
		return nil, err
	}
	return cmds, nil
}

// MarkExecuted sets executed regardless of its current value, so repeated
// acknowledgments still match the row.
func (r *doorCommandRepo) MarkExecuted(ctx context.Context, id int64) (*model.DoorCommand, error) {
	var cmd model.DoorCommand
	err := r.db.GetContext(ctx, &cmd, `
		UPDATE door_commands SET executed = TRUE
		WHERE id = $1
		RETURNING *
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoRowsAffected
	}
	if err != nil {
		return nil, err
	}
	return &cmd, nil
}

func (r *doorCommandRepo) ListRecent(ctx context.Context, limit int) ([]model.DoorCommand, error) {
	var cmds []model.DoorCommand
	err := r.db.SelectContext(ctx, &cmds, `
		SELECT * FROM door_commands ORDER BY id DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	return cmds, nil
}
