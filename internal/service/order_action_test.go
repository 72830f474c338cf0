package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/sykkeldel/locker-server/internal/errors"
	"github.com/sykkeldel/locker-server/internal/model"
	"github.com/sykkeldel/locker-server/internal/repository/memory"
)

func TestOrderActionService_RecordAction(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)
	svc := NewOrderActionService(memory.NewOrderActionStore())
	svc.now = func() time.Time { return now }

	t.Run("defaults to pickup at now", func(t *testing.T) {
		oa, err := svc.RecordAction(ctx, 1, "", nil)
		require.NoError(t, err)
		assert.Equal(t, model.OrderActionPickup, oa.Action)
		assert.Equal(t, now, oa.ActionAt)
	})

	t.Run("dropoff is stored as return", func(t *testing.T) {
		at := now.Add(-time.Hour)
		oa, err := svc.RecordAction(ctx, 1, "dropoff", &at)
		require.NoError(t, err)
		assert.Equal(t, model.OrderActionReturn, oa.Action)
		assert.Equal(t, at, oa.ActionAt)
	})

	t.Run("later report overwrites", func(t *testing.T) {
		later := now.Add(time.Hour)
		_, err := svc.RecordAction(ctx, 1, "pickup", &later)
		require.NoError(t, err)

		actions, err := svc.ListByOrder(ctx, 1)
		require.NoError(t, err)
		require.Len(t, actions, 2)
		assert.Equal(t, later, actions[0].ActionAt)
	})

	t.Run("rejects unknown action", func(t *testing.T) {
		_, err := svc.RecordAction(ctx, 1, "lost", nil)
		appErr, ok := apperrors.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.ErrCodeInvalidInput, appErr.Code)
		assert.Equal(t, map[string]string{"reason": apperrors.ReasonUnknownAction}, appErr.Details)
	})

	t.Run("rejects bad order id", func(t *testing.T) {
		_, err := svc.RecordAction(ctx, 0, "pickup", nil)
		assert.Equal(t, apperrors.ErrCodeInvalidInput, apperrors.GetCode(err))
	})
}
