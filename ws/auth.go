package ws

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// SessionTokenCookie is the cookie checked for an authentication token
// when neither the query parameter nor the Authorization header carries
// one.
const SessionTokenCookie = "x-session-token"

// Authenticator decodes an authentication token into an opaque user id.
// Token issuance and verification live outside this module.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (userID string, err error)
}

// TokenAuthenticator is the default authenticator: it accepts any
// non-empty token and uses the token itself as the user id. Deployments
// wanting real verification provide their own Authenticator.
type TokenAuthenticator struct{}

func (TokenAuthenticator) Authenticate(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}

// extractToken pulls the authentication token from the upgrade request,
// checking the "token" query parameter, the session cookie, and the
// Authorization bearer header, in that order.
func extractToken(r *http.Request) (string, error) {
	if token := r.URL.Query().Get("token"); token != "" {
		return token, nil
	}
	if cookie, err := r.Cookie(SessionTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}
	if header := r.Header.Get("Authorization"); header != "" {
		if strings.HasPrefix(header, "Bearer ") {
			if token := strings.TrimPrefix(header, "Bearer "); token != "" {
				return token, nil
			}
		}
		return "", fmt.Errorf("%w: malformed authorization header", ErrMissingToken)
	}
	return "", ErrMissingToken
}
