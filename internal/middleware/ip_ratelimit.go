package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/sykkeldel/locker-server/internal/audit"
	apperrors "github.com/sykkeldel/locker-server/internal/errors"
	"github.com/sykkeldel/locker-server/internal/httputil"
	"github.com/sykkeldel/locker-server/internal/service"
)

// IPRateLimitMiddleware limits requests per client IP and route group. It
// expects chi's RealIP middleware to run first.
type IPRateLimitMiddleware struct {
	limiter *service.RateLimiter
	limit   int
	window  time.Duration
	prefix  string
}

func NewIPRateLimitMiddleware(limiter *service.RateLimiter, limit int, window time.Duration, prefix string) *IPRateLimitMiddleware {
	return &IPRateLimitMiddleware{
		limiter: limiter,
		limit:   limit,
		window:  window,
		prefix:  prefix,
	}
}

func (m *IPRateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := audit.ClientIP(r)
		d := m.limiter.Check(r.Context(), fmt.Sprintf("ip:%s:%s", m.prefix, ip), m.limit, m.window)

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(m.limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))

		if !d.Allowed {
			secondsLeft := int(time.Until(d.ResetAt).Seconds()) + 1
			if secondsLeft < 1 {
				secondsLeft = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(secondsLeft))
			audit.LogFromRequest(r, audit.Event{
				Type:    audit.EventRateLimitExceed,
				Details: map[string]interface{}{"scope": m.prefix},
			})
			httputil.WriteError(w, apperrors.RateLimitExceeded())
			return
		}

		next.ServeHTTP(w, r)
	})
}
