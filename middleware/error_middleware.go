package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"pinpoint-server/utils/errors"
	"pinpoint-server/utils/logger"
)

// ErrorMiddleware recovers panics and answers them with a JSON internal error.
func ErrorMiddleware(l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					l.Error("panic_recovered", "panic", rec, "method", r.Method, "path", r.URL.Path)
					WriteError(w, errors.ErrInternal)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// WriteError writes err as a JSON APIError. Errors that are not APIErrors
// become UNKNOWN_ERROR 500s.
func WriteError(w http.ResponseWriter, err error) {
	var apiErr *errors.APIError
	if !errors.As(err, &apiErr) {
		apiErr = errors.Wrap(err, "UNKNOWN_ERROR", "Unexpected error", errors.ErrInternal.Status)
	}
	// Log server errors
	if apiErr.Status >= 500 {
		logger.L().Error("server_error", "code", apiErr.Code, "details", apiErr.Details)
	}
	WriteJSON(w, apiErr.Status, apiErr)
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
