package middleware

import (
	"net/http"
	"strings"

	"turfbook/pkg/auth"
	"turfbook/pkg/logger"
)

// Authenticate attaches the actor carried by a bearer token to the request
// context. Requests without a token pass through anonymously; handlers decide
// whether an actor is required.
func Authenticate(authenticator *auth.Authenticator, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			token, found := strings.CutPrefix(header, "Bearer ")
			if !found || token == "" {
				writeJSONError(w, http.StatusUnauthorized, `{"error":"Malformed Authorization header","code":"UNAUTHORIZED"}`)
				return
			}

			actor, err := authenticator.Parse(token)
			if err != nil {
				log.Warn("Rejected bearer token",
					"request_id", RequestID(r),
					"path", r.URL.Path,
					"error", err,
				)
				writeJSONError(w, http.StatusUnauthorized, `{"error":"Invalid or expired token","code":"UNAUTHORIZED"}`)
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithActor(r.Context(), actor)))
		})
	}
}
