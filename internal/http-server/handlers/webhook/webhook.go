package webhook

import (
	"encoding/json"
	"log/slog"
	"net/http"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"tgmon/lib/api/response"
	"tgmon/lib/sl"
)

type Core interface {
	HandleTelegramUpdate(update *tgbotapi.Update)
}

// Telegram accepts bot webhook updates. The secret path segment must match
// the configured value; processing runs in the background so Telegram gets
// its acknowledgement immediately and never retries on slow handlers.
func Telegram(log *slog.Logger, secret string, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.webhook"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		if secret == "" || chi.URLParam(r, "secret") != secret {
			logger.Warn("webhook secret mismatch")
			render.Status(r, http.StatusForbidden)
			render.JSON(w, r, response.Error("Forbidden"))
			return
		}

		var update tgbotapi.Update
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			logger.Error("decode update", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("Invalid update payload"))
			return
		}

		go handler.HandleTelegramUpdate(&update)

		render.JSON(w, r, map[string]string{"status": "ok"})
	}
}
