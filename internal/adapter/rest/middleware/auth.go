package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/Abdurahmanit/GroupProject/places-service/internal/listing/domain"
	"github.com/Abdurahmanit/GroupProject/places-service/internal/platform/logger"
)

// Auth requires a valid "Authorization: Bearer <token>" header and stores
// the resolved account ID in the request context. Preflight requests pass
// through untouched.
func Auth(resolver domain.IdentityResolver, log *logger.Logger, onFail func(w http.ResponseWriter, r *http.Request, err error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			parts := strings.Fields(r.Header.Get("Authorization"))
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				log.Warn("Auth: missing or malformed authorization header", "path", r.URL.Path)
				onFail(w, r, domain.ErrUnauthenticated)
				return
			}

			userID, err := resolver.Authenticate(r.Context(), parts[1])
			if err != nil {
				log.Warn("Auth: token rejected", "path", r.URL.Path, "error", err)
				onFail(w, r, err)
				return
			}

			log.Debug("Auth: user authenticated", "path", r.URL.Path, "user_id", userID)
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), UserIDCtxKey, userID)))
		})
	}
}
