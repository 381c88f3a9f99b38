package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/JaimeStill/countersign/pkg/handlers"
)

var errInternal = errors.New("internal server error")

// Recover converts a handler panic into a 500 response. http.ErrAbortHandler
// is re-raised so the server can abort the connection.
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.Error(
					"handler panic",
					"panic", rec,
					"method", r.Method,
					"uri", r.URL.RequestURI(),
					"request_id", RequestIDFrom(r.Context()),
					"stack", string(debug.Stack()),
				)
				handlers.RespondError(w, logger, http.StatusInternalServerError, errInternal)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
