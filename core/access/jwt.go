package access

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/relabs-tech/restkit/core/logger"
)

// CookieName is the name of the cookie which may carry the token
const CookieName = "Restkit-JWT"

// NewJwtMiddleware returns a middleware handler to validate JWT bearer tokens.
//
// Tokens are accepted as "Authorization: Bearer" header or as "Restkit-JWT"
// cookie. This is a final handler with regards to authentication: it returns
// http.StatusUnauthorized when no valid token is available.
func NewJwtMiddleware(issuer *TokenIssuer) mux.MiddlewareFunc {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if IdentityFromContext(r.Context()) != nil { // already authenticated
				h.ServeHTTP(w, r)
				return
			}

			tokenString := TokenFromRequest(r)
			if tokenString == "" {
				http.Error(w, "bearer token missing", http.StatusUnauthorized)
				return
			}
			claims, err := issuer.Parse(tokenString)
			if err != nil {
				logger.FromContext(r.Context()).Debugln("rejected token:", err)
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			ctx := ContextWithIdentity(r.Context(), &Identity{Subject: claims.Subject, Data: claims.Data})
			ctx, _ = logger.ContextWithLoggerIdentity(ctx, claims.Subject)
			h.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// TokenFromRequest returns the bearer token of the Authorization header or of
// the Restkit-JWT cookie
func TokenFromRequest(r *http.Request) string {
	bearer := r.Header.Get("Authorization")
	if len(bearer) > 0 && bearer != "null" {
		if len(bearer) >= 8 && strings.ToLower(bearer[:7]) == "bearer " {
			return bearer[7:]
		}
		return ""
	}
	if cookie, _ := r.Cookie(CookieName); cookie != nil {
		return cookie.Value
	}
	return ""
}
