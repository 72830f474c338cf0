package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sykkeldel/locker-server/internal/model"
	"github.com/sykkeldel/locker-server/internal/repository"
)

type orderAction struct {
	orderID int64
	action  model.OrderActionKind
}

type OrderActionStore struct {
	mu      sync.RWMutex
	actions map[orderAction]model.OrderAction
}

var _ repository.OrderActionRepository = (*OrderActionStore)(nil)

func NewOrderActionStore() *OrderActionStore {
	return &OrderActionStore{actions: make(map[orderAction]model.OrderAction)}
}

func (s *OrderActionStore) Upsert(_ context.Context, orderID int64, action model.OrderActionKind, at time.Time) (*model.OrderAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	oa := model.OrderAction{
		OrderID:   orderID,
		Action:    action,
		ActionAt:  at,
		UpdatedAt: time.Now().UTC(),
	}
	s.actions[orderAction{orderID, action}] = oa
	return &oa, nil
}

func (s *OrderActionStore) ListByOrder(_ context.Context, orderID int64) ([]model.OrderAction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.OrderAction
	for k, v := range s.actions {
		if k.orderID == orderID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Action < out[j].Action })
	return out, nil
}
