package middleware

import (
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sykkeldel/locker-server/internal/audit"
)

// RequestLogger writes one zerolog line per request. Controller polling is
// logged at debug so it does not drown the log.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		defer func() {
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			var ev *zerolog.Event
			switch {
			case status >= 500:
				ev = log.Error()
			case status >= 400:
				ev = log.Warn()
			case r.Method == http.MethodGet && r.URL.Path == "/controller/door-requests":
				ev = log.Debug()
			default:
				ev = log.Info()
			}

			ev.Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("requestId", chimiddleware.GetReqID(r.Context())).
				Str("ip", audit.ClientIP(r)).
				Msg("http request")
		}()

		next.ServeHTTP(ww, r)
	})
}
