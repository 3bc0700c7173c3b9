package info

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"tgmon/lib/api/response"
	"tgmon/lib/sl"
)

type Core interface {
	Version() string
	TestBot() (map[string]interface{}, error)
}

// Root answers the unauthenticated service banner.
func Root(_ *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]string{
			"message": "Telegram Monitor API",
			"version": handler.Version(),
		})
	}
}

// TestBot probes Bot API connectivity via getMe.
func TestBot(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.info"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		me, err := handler.TestBot()
		if err != nil {
			logger.Error("bot probe", sl.Err(err))
			render.Status(r, response.StatusOf(err))
			render.JSON(w, r, response.Error(fmt.Sprintf("Bot probe: %v", err)))
			return
		}
		logger.Debug("bot probe ok")

		render.JSON(w, r, response.Ok(me))
	}
}
