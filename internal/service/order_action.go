package service

import (
	"context"
	"time"

	apperrors "github.com/sykkeldel/locker-server/internal/errors"
	"github.com/sykkeldel/locker-server/internal/model"
	"github.com/sykkeldel/locker-server/internal/repository"
)

// OrderActionService records when customers collected or returned goods.
type OrderActionService struct {
	repo repository.OrderActionRepository
	now  func() time.Time
}

func NewOrderActionService(repo repository.OrderActionRepository) *OrderActionService {
	return &OrderActionService{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

// RecordAction stores the time of action for an order, replacing any earlier
// report of the same action. A nil at means now.
func (s *OrderActionService) RecordAction(ctx context.Context, orderID int64, action string, at *time.Time) (*model.OrderAction, error) {
	if orderID < 1 {
		return nil, apperrors.InvalidIdentifier("order_id")
	}
	kind, ok := model.ParseOrderAction(action)
	if !ok {
		return nil, apperrors.UnknownAction()
	}

	when := s.now()
	if at != nil {
		when = *at
	}

	oa, err := s.repo.Upsert(ctx, orderID, kind, when)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return oa, nil
}

func (s *OrderActionService) ListByOrder(ctx context.Context, orderID int64) ([]model.OrderAction, error) {
	actions, err := s.repo.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return actions, nil
}
