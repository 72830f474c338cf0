package middleware

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/sykkeldel/locker-server/internal/audit"
	apperrors "github.com/sykkeldel/locker-server/internal/errors"
	"github.com/sykkeldel/locker-server/internal/httputil"
	"github.com/sykkeldel/locker-server/internal/util"
)

type contextKey string

const (
	APIKeyHeader = "X-API-Key"
	APIKeyParam  = "api_key"
)

// APIKeyMiddleware guards machine endpoints with the shared controller secret.
type APIKeyMiddleware struct {
	apiKey string
}

func NewAPIKeyMiddleware(apiKey string) *APIKeyMiddleware {
	return &APIKeyMiddleware{apiKey: apiKey}
}

func (m *APIKeyMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := extractAPIKey(r)
		if key == "" {
			audit.LogFromRequest(r, audit.Event{
				Type:    audit.EventAuthFailure,
				Details: map[string]interface{}{"reason": "missing_api_key", "path": r.URL.Path},
			})
			httputil.WriteError(w, apperrors.Unauthorized("Missing API key"))
			return
		}

		if m.apiKey == "" || !util.SecretsEqual(key, m.apiKey) {
			log.Warn().Str("path", r.URL.Path).Msg("api key middleware: invalid key attempt")
			audit.LogFromRequest(r, audit.Event{
				Type: audit.EventAuthFailure,
				Details: map[string]interface{}{
					"reason":      "invalid_api_key",
					"path":        r.URL.Path,
					"fingerprint": util.KeyFingerprint(key),
				},
			})
			httputil.WriteError(w, apperrors.Forbidden("Invalid API key"))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// extractAPIKey prefers the header. The locker controller sends the key as
// a query or form parameter.
func extractAPIKey(r *http.Request) string {
	if key := r.Header.Get(APIKeyHeader); key != "" {
		return key
	}
	return r.FormValue(APIKeyParam)
}
