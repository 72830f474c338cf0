package repository

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sykkeldel/locker-server/internal/database"
	"github.com/sykkeldel/locker-server/internal/model"
)

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	db, err := database.Connect(ctx, "locker", url, database.LockerPool)
	require.NoError(t, err)

	require.NoError(t, db.Migrate(ctx))
	_, err = db.ExecContext(ctx, `
		TRUNCATE access_codes, access_windows, door_commands, order_actions, admin_sessions, appointments
		RESTART IDENTITY
	`)
	require.NoError(t, err)
	return db
}

func TestMapUniqueViolation(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected error
	}{
		{"code constraint", &pq.Error{Code: "23505", Constraint: "access_codes_code_key"}, ErrDuplicateCode},
		{"order kind constraint", &pq.Error{Code: "23505", Constraint: "access_codes_order_kind_key"}, ErrDuplicateOrderKind},
		{"window bounds check", &pq.Error{Code: "23514", Constraint: "access_windows_bounds_check"}, ErrInvalidWindow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, mapConstraintViolation(tt.err), tt.expected)
		})
	}

	t.Run("other errors pass through", func(t *testing.T) {
		other := errors.New("boom")
		assert.Equal(t, other, mapConstraintViolation(other))

		fk := &pq.Error{Code: "23503"}
		assert.Equal(t, error(fk), mapConstraintViolation(fk))

		otherCheck := &pq.Error{Code: "23514", Constraint: "door_commands_door_number_check"}
		assert.Equal(t, error(otherCheck), mapConstraintViolation(otherCheck))
	})
}

func TestAccessCodeRepository_Create(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewAccessCodeRepository(db)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	code, err := repo.Create(ctx, model.CreateAccessCodeParams{OrderID: 1, Kind: model.CodeKindPickup, Code: "A1B2", IssuedAt: now})
	require.NoError(t, err)
	assert.Equal(t, "A1B2", code.Code)
	assert.Equal(t, model.CodeKindPickup, code.Kind)

	t.Run("duplicate code", func(t *testing.T) {
		_, err := repo.Create(ctx, model.CreateAccessCodeParams{OrderID: 2, Kind: model.CodeKindPickup, Code: "A1B2", IssuedAt: now})
		assert.ErrorIs(t, err, ErrDuplicateCode)
	})

	t.Run("duplicate order kind", func(t *testing.T) {
		_, err := repo.Create(ctx, model.CreateAccessCodeParams{OrderID: 1, Kind: model.CodeKindPickup, Code: "C3D4", IssuedAt: now})
		assert.ErrorIs(t, err, ErrDuplicateOrderKind)
	})

	t.Run("find by order and kind", func(t *testing.T) {
		found, err := repo.FindByOrderAndKind(ctx, 1, model.CodeKindPickup)
		require.NoError(t, err)
		assert.Equal(t, code.ID, found.ID)

		missing, err := repo.FindByOrderAndKind(ctx, 1, model.CodeKindReturn)
		require.NoError(t, err)
		assert.Nil(t, missing)
	})
}

func TestAccessCodeRepository_CreateOpening(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewAccessCodeRepository(db)
	ctx := context.Background()
	start := time.Now().UTC().Truncate(time.Microsecond)
	end := start.Add(2 * time.Hour)

	code, window, err := repo.CreateOpening(ctx,
		model.CreateAccessCodeParams{OrderID: 5, Kind: model.CodeKindOpening, Code: "9AB1", IssuedAt: start},
		model.CreateAccessWindowParams{OrderID: 5, StartAt: start, EndAt: end},
	)
	require.NoError(t, err)
	assert.Equal(t, "9AB1", code.Code)
	assert.True(t, window.EndAt.Equal(end))

	t.Run("rolls back window on duplicate code", func(t *testing.T) {
		_, _, err := repo.CreateOpening(ctx,
			model.CreateAccessCodeParams{OrderID: 6, Kind: model.CodeKindOpening, Code: "9AB1", IssuedAt: start},
			model.CreateAccessWindowParams{OrderID: 6, StartAt: start, EndAt: end},
		)
		assert.ErrorIs(t, err, ErrDuplicateCode)

		w, err := repo.FindWindow(ctx, 6)
		require.NoError(t, err)
		assert.Nil(t, w)
	})

	t.Run("issued since joins windows", func(t *testing.T) {
		issued, err := repo.ListIssuedSince(ctx, start.Add(-time.Minute))
		require.NoError(t, err)
		require.Len(t, issued, 1)
		require.NotNil(t, issued[0].WindowEnd)
		assert.True(t, issued[0].WindowEnd.Equal(end))
	})

	t.Run("inverted window is rejected and rolled back", func(t *testing.T) {
		_, _, err := repo.CreateOpening(ctx,
			model.CreateAccessCodeParams{OrderID: 7, Kind: model.CodeKindOpening, Code: "7CD2", IssuedAt: start},
			model.CreateAccessWindowParams{OrderID: 7, StartAt: end, EndAt: start},
		)
		assert.ErrorIs(t, err, ErrInvalidWindow)

		c, err := repo.FindByCode(ctx, "7CD2")
		require.NoError(t, err)
		assert.Nil(t, c)
	})
}

func TestDoorCommandRepository(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewDoorCommandRepository(db.DB)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	old, err := repo.Create(ctx, model.CreateDoorCommandParams{DoorNumber: 1, Command: model.DoorCommandOpen, CreatedAt: now.Add(-2 * time.Minute)})
	require.NoError(t, err)
	fresh, err := repo.Create(ctx, model.CreateDoorCommandParams{DoorNumber: 2, Command: model.DoorCommandOpen, CreatedAt: now})
	require.NoError(t, err)
	assert.False(t, fresh.Executed)

	pending, err := repo.ListPending(ctx, now.Add(-time.Minute), now)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, fresh.ID, pending[0].ID)

	acked, err := repo.MarkExecuted(ctx, fresh.ID)
	require.NoError(t, err)
	assert.True(t, acked.Executed)
	assert.Equal(t, 2, acked.DoorNumber)
	_, err = repo.MarkExecuted(ctx, fresh.ID)
	require.NoError(t, err)
	_, err = repo.MarkExecuted(ctx, old.ID)
	require.NoError(t, err)
	_, err = repo.MarkExecuted(ctx, 999999)
	assert.ErrorIs(t, err, ErrNoRowsAffected)

	pending, err = repo.ListPending(ctx, now.Add(-time.Minute), now)
	require.NoError(t, err)
	assert.Empty(t, pending)

	_, err = db.ExecContext(ctx, `INSERT INTO door_commands (door_number, created_at) VALUES (21, NOW())`)
	assert.Error(t, err, "door_number check constraint")
}

func TestAppointmentRepository(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewAppointmentRepository(db.DB)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Microsecond)

	_, err := db.ExecContext(ctx, `
		INSERT INTO appointments (service_id, staff_id, start_at, end_at) VALUES
		(1, 2, $1, $2),
		(1, 2, $3, $4)
	`, base, base.Add(time.Hour), base.Add(3*time.Hour), base.Add(4*time.Hour))
	require.NoError(t, err)

	latest, err := repo.FindLatest(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), latest.ID)

	siblings, err := repo.FindSiblings(ctx, 1, 2, latest.ID)
	require.NoError(t, err)
	require.Len(t, siblings, 1)

	require.NoError(t, repo.UpdateStart(ctx, latest.ID, base.Add(2*time.Hour)))
	assert.ErrorIs(t, repo.UpdateStart(ctx, 404, base), ErrNoRowsAffected)

	n, err := repo.CountOverlapping(ctx, 1, 2, base.Add(90*time.Minute), base.Add(100*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestOrderActionRepository_Upsert(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewOrderActionRepository(db.DB)
	ctx := context.Background()
	at := time.Now().UTC().Truncate(time.Microsecond)

	_, err := repo.Upsert(ctx, 42, model.OrderActionPickup, at)
	require.NoError(t, err)
	updated, err := repo.Upsert(ctx, 42, model.OrderActionPickup, at.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, updated.ActionAt.Equal(at.Add(time.Hour)))

	actions, err := repo.ListByOrder(ctx, 42)
	require.NoError(t, err)
	assert.Len(t, actions, 1)
}

func TestAdminSessionRepository(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewAdminSessionRepository(db.DB)
	ctx := context.Background()

	session, err := repo.Create(ctx, model.CreateAdminSessionParams{
		TokenHash: "hash-live", LoginIP: "10.0.0.7", ExpiresAt: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.7", session.LoginIP)
	assert.Zero(t, session.DoorsOpened)
	assert.Nil(t, session.LastDoor)

	expired, err := repo.Create(ctx, model.CreateAdminSessionParams{
		TokenHash: "hash-expired", ExpiresAt: time.Now().Add(-time.Minute),
	})
	require.NoError(t, err)

	t.Run("door trail", func(t *testing.T) {
		at := time.Now().UTC().Truncate(time.Microsecond)
		require.NoError(t, repo.RecordDoorOpened(ctx, model.DoorOpenedParams{SessionID: session.ID, Door: 6, At: at}))

		got, err := repo.FindByTokenHash(ctx, "hash-live")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, 1, got.DoorsOpened)
		require.NotNil(t, got.LastDoor)
		assert.Equal(t, 6, *got.LastDoor)
		assert.True(t, got.LastDoorAt.Equal(at))

		err = repo.RecordDoorOpened(ctx, model.DoorOpenedParams{SessionID: expired.ID, Door: 6, At: at})
		assert.ErrorIs(t, err, ErrNoRowsAffected)
	})

	t.Run("expired sessions are hidden and cleaned", func(t *testing.T) {
		got, err := repo.FindByTokenHash(ctx, "hash-expired")
		require.NoError(t, err)
		assert.Nil(t, got)

		n, err := repo.DeleteExpired(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})
}
