package auth

import (
	"context"
	"net/http"

	domainauth "github.com/NordCoder/Authgate/internal/domain/auth"
	"github.com/NordCoder/Authgate/internal/httpx"
)

type ctxKey int

const payloadKey ctxKey = 1

func PayloadFromCtx(ctx context.Context) (domainauth.Payload, bool) {
	p, ok := ctx.Value(payloadKey).(domainauth.Payload)
	return p, ok
}

// Authenticator resolves an Authorization header to a payload.
type Authenticator interface {
	Authenticate(header string) (domainauth.Payload, error)
}

// RequireAuth rejects requests without a valid access bearer with 401.
func RequireAuth(a Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := a.Authenticate(r.Header.Get("Authorization"))
			if err != nil {
				httpx.WriteJSON(w, http.StatusUnauthorized, httpx.Message{Message: MsgUnauthenticated})
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), payloadKey, p)))
		})
	}
}
