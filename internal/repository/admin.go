package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/sykkeldel/locker-server/internal/model"
)

// AdminSessionRepository stores operator sessions by the HMAC of their token,
// along with the doors each session opened.
type AdminSessionRepository interface {
	// FindByTokenHash returns the live session, or nil when it is unknown or
	// expired.
	FindByTokenHash(ctx context.Context, tokenHash string) (*model.AdminSession, error)
	Create(ctx context.Context, params model.CreateAdminSessionParams) (*model.AdminSession, error)
	// RecordDoorOpened bumps the session's door counter and last door. It
	// returns ErrNoRowsAffected when the session is gone or expired.
	RecordDoorOpened(ctx context.Context, params model.DoorOpenedParams) error
	DeleteByTokenHash(ctx context.Context, tokenHash string) error
	DeleteExpired(ctx context.Context) (int64, error)
}

const adminSessionColumns = `
	id, token_hash, login_ip, doors_opened, last_door, last_door_at, expires_at, created_at
`

type adminSessionRepo struct {
	db *sqlx.DB
}

func NewAdminSessionRepository(db *sqlx.DB) AdminSessionRepository {
	return &adminSessionRepo{db: db}
}

func (r *adminSessionRepo) FindByTokenHash(ctx context.Context, tokenHash string) (*model.AdminSession, error) {
	var session model.AdminSession
	err := r.db.GetContext(ctx, &session, `
		SELECT `+adminSessionColumns+` FROM admin_sessions
		WHERE token_hash = $1 AND expires_at > NOW()
	`, tokenHash)
	return HandleNotFound(&session, err)
}

func (r *adminSessionRepo) Create(ctx context.Context, params model.CreateAdminSessionParams) (*model.AdminSession, error) {
	var session model.AdminSession
	err := r.db.GetContext(ctx, &session, `
		INSERT INTO admin_sessions (token_hash, login_ip, expires_at)
		VALUES ($1, $2, $3)
		RETURNING `+adminSessionColumns,
		params.TokenHash, params.LoginIP, params.ExpiresAt)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *adminSessionRepo) RecordDoorOpened(ctx context.Context, params model.DoorOpenedParams) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE admin_sessions
		SET doors_opened = doors_opened + 1, last_door = $2, last_door_at = $3
		WHERE id = $1 AND expires_at > NOW()
	`, params.SessionID, params.Door, params.At)
	if err != nil {
		return err
	}
	return requireOneRow(result)
}

func (r *adminSessionRepo) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM admin_sessions WHERE token_hash = $1`, tokenHash)
	return err
}

// DeleteExpired is run by the cleanup job.
func (r *adminSessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM admin_sessions WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
