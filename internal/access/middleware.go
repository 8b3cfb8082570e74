package access

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/clinicore/clinicore/internal/shared"
)

// ActorSource resolves a session user ID to the current actor snapshot.
type ActorSource interface {
	FindActor(ctx context.Context, userID string) (*Actor, error)
}

// Middleware gates HTTP routes on the authorization decision and makes
// the resolved actor available to downstream handlers.
type Middleware struct {
	Gate   *Gate
	Actors ActorSource
	Logger *slog.Logger
}

// Require ensures the current actor may exercise the capability on the
// module before the wrapped handler runs.
func (m Middleware) Require(module Module, capability Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := m.resolveActor(r)
			if !ok {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			if !m.Gate.Allows(r.Context(), actor, module, capability) {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithActor(r.Context(), actor)))
		})
	}
}

func (m Middleware) resolveActor(r *http.Request) (*Actor, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return nil, false
	}
	userID := strings.TrimSpace(sess.User())
	if userID == "" {
		return nil, false
	}
	actor, err := m.Actors.FindActor(r.Context(), userID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) && m.Logger != nil {
			m.Logger.Error("resolve actor", slog.String("user_id", userID), slog.Any("error", err))
		}
		return nil, false
	}
	return actor, true
}
