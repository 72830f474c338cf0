package middleware

import (
	"net/http"

	apperrors "github.com/sykkeldel/locker-server/internal/errors"
	"github.com/sykkeldel/locker-server/internal/httputil"
)

// DefaultMaxBodySize covers every request this server accepts; payloads are
// a handful of fields.
const DefaultMaxBodySize = 64 << 10

type BodyLimitMiddleware struct {
	maxSize int64
}

func NewBodyLimitMiddleware(maxSize int64) *BodyLimitMiddleware {
	if maxSize <= 0 {
		maxSize = DefaultMaxBodySize
	}
	return &BodyLimitMiddleware{maxSize: maxSize}
}

func (m *BodyLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > m.maxSize {
			httputil.WriteJSON(w, http.StatusRequestEntityTooLarge, httputil.ErrorResponse{
				Error: "Request body too large",
				Code:  apperrors.ErrCodeValidation,
			})
			return
		}

		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, m.maxSize)
		}
		next.ServeHTTP(w, r)
	})
}
