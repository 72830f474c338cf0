package service

import (
	"context"
	"time"

	"github.com/sykkeldel/locker-server/internal/model"
	"github.com/sykkeldel/locker-server/internal/repository"
	"github.com/sykkeldel/locker-server/internal/util"
)

// AdminService manages operator sessions. Tokens are only ever stored as an
// HMAC keyed by the session secret.
type AdminService struct {
	sessionRepo   repository.AdminSessionRepository
	passwordHash  string
	sessionSecret string
	sessionTTL    time.Duration
	now           func() time.Time
}

func NewAdminService(
	sessionRepo repository.AdminSessionRepository,
	passwordHash, sessionSecret string,
	sessionTTL time.Duration,
) *AdminService {
	return &AdminService{
		sessionRepo:   sessionRepo,
		passwordHash:  passwordHash,
		sessionSecret: sessionSecret,
		sessionTTL:    sessionTTL,
		now:           time.Now,
	}
}

// Enabled reports whether an operator password is configured.
func (s *AdminService) Enabled() bool {
	return s.passwordHash != ""
}

// Login returns a new session token, or "" when the password is wrong.
// loginIP is kept on the session for the door trail.
func (s *AdminService) Login(ctx context.Context, password, loginIP string) (string, error) {
	if !s.Enabled() || !util.PasswordMatches(password, s.passwordHash) {
		return "", nil
	}

	token, err := util.RandomToken()
	if err != nil {
		return "", err
	}

	_, err = s.sessionRepo.Create(ctx, model.CreateAdminSessionParams{
		TokenHash: util.SessionTokenHash(s.sessionSecret, token),
		LoginIP:   loginIP,
		ExpiresAt: s.now().Add(s.sessionTTL),
	})
	if err != nil {
		return "", err
	}

	return token, nil
}

// RecordDoorOpened notes on the operator's session that they opened door.
func (s *AdminService) RecordDoorOpened(ctx context.Context, sessionID string, door int) error {
	return s.sessionRepo.RecordDoorOpened(ctx, model.DoorOpenedParams{
		SessionID: sessionID,
		Door:      door,
		At:        s.now().UTC(),
	})
}

func (s *AdminService) Logout(ctx context.Context, token string) error {
	tokenHash := util.SessionTokenHash(s.sessionSecret, token)
	return s.sessionRepo.DeleteByTokenHash(ctx, tokenHash)
}

// ValidateSession returns the live session for token, or nil.
func (s *AdminService) ValidateSession(ctx context.Context, token string) *model.AdminSession {
	if token == "" {
		return nil
	}
	tokenHash := util.SessionTokenHash(s.sessionSecret, token)
	session, err := s.sessionRepo.FindByTokenHash(ctx, tokenHash)
	if err != nil {
		return nil
	}
	return session
}
