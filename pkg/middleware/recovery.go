package middleware

import (
	"net/http"
	"runtime/debug"

	"turfbook/pkg/logger"
)

func Recovery(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.Error("Panic recovered",
						"request_id", RequestID(r),
						"error", err,
						"method", r.Method,
						"path", r.URL.Path,
						"stack", string(debug.Stack()),
					)
					writeJSONError(w, http.StatusInternalServerError, `{"error":"Internal server error","code":"INTERNAL_ERROR"}`)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
