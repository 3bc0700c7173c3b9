package authenticate

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"tgmon/lib/api/cont"
	"tgmon/lib/api/response"
)

// Mutator rejects viewers. Applied to every route that changes tenant data.
func Mutator(log *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			user := cont.GetUser(r.Context())
			if !user.CanMutate() {
				log.With(
					slog.String("user", user.Username),
					slog.String("path", r.URL.Path),
				).Warn("mutation denied for viewer")
				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, response.Error("Admin access required"))
				return
			}
			next.ServeHTTP(w, r)
		}
		return http.HandlerFunc(fn)
	}
}

// Owner restricts a route to the organization owner.
func Owner(log *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			user := cont.GetUser(r.Context())
			if !user.IsOwner() {
				log.With(
					slog.String("user", user.Username),
					slog.String("path", r.URL.Path),
				).Warn("owner-only route denied")
				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, response.Error("Owner access required"))
				return
			}
			next.ServeHTTP(w, r)
		}
		return http.HandlerFunc(fn)
	}
}
