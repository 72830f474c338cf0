package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/sykkeldel/locker-server/internal/errors"
	"github.com/sykkeldel/locker-server/internal/httputil"
	"github.com/sykkeldel/locker-server/internal/model"
	"github.com/sykkeldel/locker-server/internal/repository"
	"github.com/sykkeldel/locker-server/internal/util"
)

const (
	AdminSessionCookie = "admin_session"
	AdminCookiePath    = "/admin"
	SessionMaxAge      = 24 * time.Hour
)

const AdminSessionContextKey contextKey = "adminSession"

func GetAdminSession(ctx context.Context) *model.AdminSession {
	if session, ok := ctx.Value(AdminSessionContextKey).(*model.AdminSession); ok {
		return session
	}
	return nil
}

type AdminSessionMiddleware struct {
	sessionRepo       repository.AdminSessionRepository
	adminPasswordHash string
	sessionSecret     string
}

func NewAdminSessionMiddleware(
	sessionRepo repository.AdminSessionRepository,
	adminPasswordHash, sessionSecret string,
) *AdminSessionMiddleware {
	return &AdminSessionMiddleware{
		sessionRepo:       sessionRepo,
		adminPasswordHash: adminPasswordHash,
		sessionSecret:     sessionSecret,
	}
}

func (m *AdminSessionMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.adminPasswordHash == "" {
			httputil.WriteJSON(w, http.StatusServiceUnavailable, httputil.ErrorResponse{
				Error: "Operator access not configured",
				Code:  apperrors.ErrCodeInternal,
			})
			return
		}

		cookie, err := r.Cookie(AdminSessionCookie)
		if err != nil || cookie.Value == "" {
			httputil.WriteError(w, apperrors.Unauthorized("Unauthorized"))
			return
		}

		session, err := m.sessionRepo.FindByTokenHash(r.Context(), util.SessionTokenHash(m.sessionSecret, cookie.Value))
		if err != nil {
			log.Error().Err(err).Msg("admin session middleware: database error")
			httputil.WriteError(w, apperrors.Database(err))
			return
		}
		if session == nil {
			httputil.WriteError(w, apperrors.Unauthorized("Unauthorized"))
			return
		}

		ctx := context.WithValue(r.Context(), AdminSessionContextKey, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func SetSessionCookie(w http.ResponseWriter, token string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     AdminSessionCookie,
		Value:    token,
		Path:     AdminCookiePath,
		MaxAge:   int(SessionMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:   AdminSessionCookie,
		Value:  "",
		Path:   AdminCookiePath,
		MaxAge: -1,
	})
}
