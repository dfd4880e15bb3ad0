package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// responseRecorder captures what a handler wrote so it can be logged.
type responseRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (rw *responseRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseRecorder) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytes += n
	return n, err
}

// requestLog is shared between RequestLogger and the handlers it wraps, so
// inner middleware can annotate the line written after the response.
type requestLog struct {
	partnerID string
}

type requestLogKey struct{}

// notePartner records the authenticated partner on the request's log line.
func notePartner(ctx context.Context, partnerID string) {
	if rl, ok := ctx.Value(requestLogKey{}).(*requestLog); ok {
		rl.partnerID = partnerID
	}
}

// quietPaths are polled by probes and scrapers and only logged at debug.
var quietPaths = map[string]bool{
	"/health":  true,
	"/metrics": true,
}

// RequestLogger logs one line per request. 5xx responses log at error, 4xx at
// warn. Requests that passed RequireAuth carry the partner id.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rl := &requestLog{}
			rw := &responseRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rw, r.WithContext(context.WithValue(r.Context(), requestLogKey{}, rl)))

			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rw.status),
				slog.Int("bytes", rw.bytes),
				slog.Duration("duration", time.Since(start)),
				slog.String("remote", RealIP(r)),
			}
			if rl.partnerID != "" {
				attrs = append(attrs, slog.String("partner", rl.partnerID))
			}

			level := slog.LevelInfo
			switch {
			case rw.status >= 500:
				level = slog.LevelError
			case rw.status >= 400:
				level = slog.LevelWarn
			case quietPaths[r.URL.Path]:
				level = slog.LevelDebug
			}
			logger.LogAttrs(r.Context(), level, "request", attrs...)
		})
	}
}
