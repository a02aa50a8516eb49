package middleware

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	goGuard "github.com/MrEthical07/goGuard"
)

type sessionContextKey struct{}

// SessionFromContext returns the session attached by Guard.
func SessionFromContext(ctx context.Context) (*goGuard.Session, bool) {
	sess, ok := ctx.Value(sessionContextKey{}).(*goGuard.Session)
	return sess, ok
}

// Guard resumes the persisted session named by the bearer token and
// attaches the authenticated *goGuard.Session to the request context.
// Requests without a usable token get 401.
func Guard(engine *goGuard.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := WithClientIP(r)
			sess := goGuard.NewSession()
			if err := engine.Resume(ctx, sess, token); err != nil {
				http.Error(w, goGuard.UserMessage(err), StatusFor(err))
				return
			}

			ctx = context.WithValue(ctx, sessionContextKey{}, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithClientIP returns the request context carrying the remote host for
// audit events.
func WithClientIP(r *http.Request) context.Context {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return goGuard.WithClientIP(r.Context(), host)
}

// StatusFor maps an engine error to an HTTP status.
func StatusFor(err error) int {
	var locked *goGuard.LockedError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &locked):
		return http.StatusTooManyRequests
	case errors.Is(err, goGuard.ErrValidation),
		errors.Is(err, goGuard.ErrPasswordMismatch),
		errors.Is(err, goGuard.ErrPasswordTooWeak),
		errors.Is(err, goGuard.ErrPasswordReuse):
		return http.StatusBadRequest
	case errors.Is(err, goGuard.ErrAccountExists):
		return http.StatusConflict
	case errors.Is(err, goGuard.ErrInvalidCredentials),
		errors.Is(err, goGuard.ErrCurrentPasswordInvalid),
		errors.Is(err, goGuard.ErrUnauthenticated),
		errors.Is(err, goGuard.ErrSessionExpired),
		errors.Is(err, goGuard.ErrTokenInvalid):
		return http.StatusUnauthorized
	case errors.Is(err, goGuard.ErrUpstreamUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, goGuard.ErrSessionPersistenceDisabled):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}
