package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/modera-shop/modera/pkg/auth"
	"github.com/modera-shop/modera/pkg/response"
)

// TokenHeader carries the account token on protected routes.
const TokenHeader = "auth-token"

// TokenVerifier resolves a token to an account id.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

type accountKey struct{}

// AccountID returns the account id stored by TokenAuth.
func AccountID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(accountKey{}).(string)
	return id, ok && id != ""
}

func WithAccountID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, accountKey{}, id)
}

// TokenAuth rejects requests without a valid auth-token header with 401
// before the handler runs.
func TokenAuth(v TokenVerifier) func(http.Handler) http.Handler {
	return tokenAuth(v, false)
}

// StreamTokenAuth also accepts ?token= since browsers cannot set headers on
// a websocket handshake.
func StreamTokenAuth(v TokenVerifier) func(http.Handler) http.Handler {
	return tokenAuth(v, true)
}

func tokenAuth(v TokenVerifier, fromQuery bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get(TokenHeader)
			if token == "" && fromQuery {
				token = r.URL.Query().Get("token")
			}

			id, err := v.Verify(token)
			if err != nil {
				msg := "Invalid token"
				if errors.Is(err, auth.ErrMissingToken) {
					msg = "Token missing"
				}
				response.Fail(w, http.StatusUnauthorized, msg)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithAccountID(r.Context(), id)))
		})
	}
}
