package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sykkeldel/locker-server/internal/model"
	"github.com/sykkeldel/locker-server/internal/repository"
)

// DoorCommandStore keeps commands in id order. Commands are never removed.
type DoorCommandStore struct {
	mu     sync.RWMutex
	cmds   []model.DoorCommand
	nextID int64
}

var _ repository.DoorCommandRepository = (*DoorCommandStore)(nil)

func NewDoorCommandStore() *DoorCommandStore {
	return &DoorCommandStore{}
}

func (s *DoorCommandStore) Create(_ context.Context, params model.CreateDoorCommandParams) (*model.DoorCommand, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	cmd := model.DoorCommand{
		ID:         s.nextID,
		DoorNumber: params.DoorNumber,
		Command:    params.Command,
		CreatedAt:  params.CreatedAt,
	}
	s.cmds = append(s.cmds, cmd)
	return &cmd, nil
}

func (s *DoorCommandStore) ListPending(_ context.Context, after, until time.Time) ([]model.DoorCommand, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.DoorCommand
	for _, c := range s.cmds {
		if c.Executed || !c.CreatedAt.After(after) || c.CreatedAt.After(until) {
			continue
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *DoorCommandStore) MarkExecuted(_ context.Context, id int64) (*model.DoorCommand, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := sort.Search(len(s.cmds), func(i int) bool { return s.cmds[i].ID >= id })
	if i == len(s.cmds) || s.cmds[i].ID != id {
		return nil, repository.ErrNoRowsAffected
	}
	s.cmds[i].Executed = true
	cmd := s.cmds[i]
	return &cmd, nil
}

func (s *DoorCommandStore) ListRecent(_ context.Context, limit int) ([]model.DoorCommand, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.DoorCommand
	for i := len(s.cmds) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.cmds[i])
	}
	return out, nil
}
