package middleware

import (
	"net/http"

	apperrors "github.com/sykkeldel/locker-server/internal/errors"
	"github.com/sykkeldel/locker-server/internal/httputil"
	"github.com/sykkeldel/locker-server/internal/util"
)

const (
	CSRFCookieName = "csrf_token"
	CSRFHeaderName = "X-CSRF-Token"
)

// CSRFMiddleware applies the double-submit cookie check to state-changing
// operator requests. The cookie is readable by the dashboard script, which
// echoes it in the X-CSRF-Token header.
type CSRFMiddleware struct {
	isProduction bool
}

func NewCSRFMiddleware(isProduction bool) *CSRFMiddleware {
	return &CSRFMiddleware{isProduction: isProduction}
}

func (m *CSRFMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(CSRFCookieName)
		if err != nil || cookie.Value == "" {
			token, err := util.RandomToken()
			if err != nil {
				httputil.WriteError(w, apperrors.Internal("Failed to generate security token").WithCause(err))
				return
			}
			m.setCSRFCookie(w, token)
			cookie = &http.Cookie{Value: token}
		}

		if isSafeMethod(r.Method) {
			next.ServeHTTP(w, r)
			return
		}

		headerToken := r.Header.Get(CSRFHeaderName)
		if headerToken == "" || !util.SecretsEqual(cookie.Value, headerToken) {
			httputil.WriteError(w, apperrors.Forbidden("Missing or invalid CSRF token"))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (m *CSRFMiddleware) setCSRFCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CSRFCookieName,
		Value:    token,
		Path:     AdminCookiePath,
		MaxAge:   int(SessionMaxAge.Seconds()),
		HttpOnly: false,
		Secure:   m.isProduction,
		SameSite: http.SameSiteStrictMode,
	})
}

func isSafeMethod(method string) bool {
	return method == http.MethodGet ||
		method == http.MethodHead ||
		method == http.MethodOptions
}
