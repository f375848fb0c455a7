package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"omni-reports/internal/auth"
)

type principalKey struct{}

// WithPrincipal stores the authenticated username in the context.
func WithPrincipal(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, principalKey{}, name)
}

// PrincipalFromContext extracts the authenticated username from the context.
func PrincipalFromContext(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(principalKey{}).(string)
	return name, ok
}

// SecretLookup returns the shared secret of username, or false when the user
// is unknown.
type SecretLookup func(username string) (string, bool)

// WSSE verifies the X-WSSE UsernameToken of every request against lookup and
// responds 401 when it is missing, malformed or signed with the wrong secret.
func WSSE(lookup SecretLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok, err := auth.ParseToken(r.Header.Get(auth.HeaderName))
			if err != nil {
				writeUnauthorized(w, err.Error())
				return
			}
			secret, ok := lookup(tok.Username)
			if !ok || !tok.Verify(secret) {
				writeUnauthorized(w, "wsse: invalid credentials")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), tok.Username)))
		})
	}
}

// StaticSecrets is a SecretLookup over a fixed username to secret map.
func StaticSecrets(secrets map[string]string) SecretLookup {
	return func(username string) (string, bool) {
		s, ok := secrets[username]
		return s, ok
	}
}

func writeUnauthorized(w http.ResponseWriter, desc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error":             "Unauthorized",
		"error_description": desc,
	})
}
