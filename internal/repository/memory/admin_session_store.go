package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sykkeldel/locker-server/internal/model"
	"github.com/sykkeldel/locker-server/internal/repository"
)

// AdminSessionStore keys operator sessions by token hash.
type AdminSessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*model.AdminSession
	now      func() time.Time
}

var _ repository.AdminSessionRepository = (*AdminSessionStore)(nil)

func NewAdminSessionStore() *AdminSessionStore {
	return &AdminSessionStore{
		sessions: make(map[string]*model.AdminSession),
		now:      time.Now,
	}
}

func (s *AdminSessionStore) FindByTokenHash(_ context.Context, tokenHash string) (*model.AdminSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[tokenHash]
	if !ok || sess.Expired(s.now()) {
		return nil, nil
	}
	out := *sess
	return &out, nil
}

func (s *AdminSessionStore) Create(_ context.Context, params model.CreateAdminSessionParams) (*model.AdminSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := &model.AdminSession{
		ID:        uuid.NewString(),
		TokenHash: params.TokenHash,
		LoginIP:   params.LoginIP,
		ExpiresAt: params.ExpiresAt,
		CreatedAt: s.now().UTC(),
	}
	s.sessions[params.TokenHash] = sess
	out := *sess
	return &out, nil
}

func (s *AdminSessionStore) RecordDoorOpened(_ context.Context, params model.DoorOpenedParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sess := range s.sessions {
		if sess.ID != params.SessionID {
			continue
		}
		if sess.Expired(s.now()) {
			break
		}
		door, at := params.Door, params.At
		sess.DoorsOpened++
		sess.LastDoor = &door
		sess.LastDoorAt = &at
		return nil
	}
	return repository.ErrNoRowsAffected
}

func (s *AdminSessionStore) DeleteByTokenHash(_ context.Context, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, tokenHash)
	return nil
}

func (s *AdminSessionStore) DeleteExpired(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var n int64
	for k, sess := range s.sessions {
		if sess.Expired(now) {
			delete(s.sessions, k)
			n++
		}
	}
	return n, nil
}
