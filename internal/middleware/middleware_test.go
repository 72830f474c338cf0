package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sykkeldel/locker-server/internal/model"
	"github.com/sykkeldel/locker-server/internal/repository/memory"
	"github.com/sykkeldel/locker-server/internal/service"
	"github.com/sykkeldel/locker-server/internal/util"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
})

func decodeCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	code, _ := body["code"].(string)
	return code
}

func TestAPIKeyMiddleware(t *testing.T) {
	h := NewAPIKeyMiddleware("controller-secret").Handler(okHandler)

	t.Run("missing key is 401", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/controller/door-requests", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "UNAUTHORIZED", decodeCode(t, rec))
	})

	t.Run("wrong key is 403", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/controller/door-requests", nil)
		req.Header.Set(APIKeyHeader, "nope")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("header key passes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/controller/door-requests", nil)
		req.Header.Set(APIKeyHeader, "controller-secret")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("query key passes", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/controller/door-requests?api_key=controller-secret", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("form key passes", func(t *testing.T) {
		form := url.Values{"api_key": {"controller-secret"}, "request_id": {"4"}}
		req := httptest.NewRequest(http.MethodPost, "/controller/door-requests/executed", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("empty configured key rejects everything", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(APIKeyHeader, "anything")
		rec := httptest.NewRecorder()
		NewAPIKeyMiddleware("").Handler(okHandler).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestAdminSessionMiddleware(t *testing.T) {
	ctx := context.Background()
	store := memory.NewAdminSessionStore()
	const secret = "session-secret"

	_, err := store.Create(ctx, model.CreateAdminSessionParams{
		TokenHash: util.SessionTokenHash(secret, "good-token"),
		ExpiresAt: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	var seen *model.AdminSession
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetAdminSession(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	t.Run("not configured", func(t *testing.T) {
		rec := httptest.NewRecorder()
		NewAdminSessionMiddleware(store, "", secret).Handler(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/api/doors/commands", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	h := NewAdminSessionMiddleware(store, "$2a$10$hash", secret).Handler(next)

	t.Run("no cookie", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/api/doors/commands", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("unknown token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin/api/doors/commands", nil)
		req.AddCookie(&http.Cookie{Name: AdminSessionCookie, Value: "bad-token"})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin/api/doors/commands", nil)
		req.AddCookie(&http.Cookie{Name: AdminSessionCookie, Value: "good-token"})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.NotNil(t, seen)
	})
}

func TestSessionCookies(t *testing.T) {
	rec := httptest.NewRecorder()
	SetSessionCookie(rec, "tok", true)
	cookie := rec.Result().Cookies()[0]
	assert.Equal(t, AdminSessionCookie, cookie.Name)
	assert.True(t, cookie.HttpOnly)
	assert.True(t, cookie.Secure)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)

	rec = httptest.NewRecorder()
	ClearSessionCookie(rec)
	assert.Equal(t, -1, rec.Result().Cookies()[0].MaxAge)
}

func TestCSRFMiddleware(t *testing.T) {
	h := NewCSRFMiddleware(false).Handler(okHandler)

	t.Run("safe method sets cookie", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/api/doors/commands", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, CSRFCookieName, cookies[0].Name)
	})

	t.Run("post without header is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/admin/api/doors/open", nil)
		req.AddCookie(&http.Cookie{Name: CSRFCookieName, Value: "abc"})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("post with matching header passes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/admin/api/doors/open", nil)
		req.AddCookie(&http.Cookie{Name: CSRFCookieName, Value: "abc"})
		req.Header.Set(CSRFHeaderName, "abc")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestIPRateLimitMiddleware_FailPolicy(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 50 * time.Millisecond})
	defer client.Close()

	t.Run("fail closed returns 429", func(t *testing.T) {
		h := NewIPRateLimitMiddleware(service.NewRateLimiter(client), 5, time.Minute, "login").Handler(okHandler)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/api/login", nil))
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.NotEmpty(t, rec.Header().Get("Retry-After"))
		assert.Equal(t, "RATE_LIMIT_EXCEEDED", decodeCode(t, rec))
	})

	t.Run("fail open passes", func(t *testing.T) {
		h := NewIPRateLimitMiddleware(service.NewFailOpenRateLimiter(client), 5, time.Minute, "controller").Handler(okHandler)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/controller/door-requests", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "5", rec.Header().Get("X-RateLimit-Limit"))
	})
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	orig := log.Logger
	log.Logger = zerolog.New(&buf)
	defer func() { log.Logger = orig }()

	h := chimiddleware.RequestID(RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/api/doors/open", nil))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "POST", entry["method"])
	assert.Equal(t, "/admin/api/doors/open", entry["path"])
	assert.Equal(t, float64(http.StatusCreated), entry["status"])
	assert.NotEmpty(t, entry["requestId"])
}

func TestBodyLimitMiddleware(t *testing.T) {
	h := NewBodyLimitMiddleware(8).Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, 64)
		_, err := r.Body.Read(buf)
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("declared length over limit", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("0123456789abcdef")))
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})

	t.Run("small body passes", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("door=5")))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestSecurityHeadersMiddleware(t *testing.T) {
	rec := httptest.NewRecorder()
	NewSecurityHeadersMiddleware(true).Handler(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Contains(t, rec.Header().Get("Strict-Transport-Security"), "max-age")

	rec = httptest.NewRecorder()
	NewSecurityHeadersMiddleware(false).Handler(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))
}
