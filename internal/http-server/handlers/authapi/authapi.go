package authapi

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"tgmon/entity"
	"tgmon/lib/api/cont"
	"tgmon/lib/api/decode"
	"tgmon/lib/api/response"
	"tgmon/lib/sl"
)

type Core interface {
	Register(req *entity.RegisterRequest) (*entity.AuthToken, error)
	TelegramLogin(login *entity.TelegramLogin) (*entity.AuthToken, error)
}

// Register creates an organization with its owner user and returns a token.
func Register(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.authapi"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req entity.RegisterRequest
		if err := decode.JSON(r, &req); err != nil {
			logger.Error("bind request", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(fmt.Sprintf("Invalid request: %v", err)))
			return
		}
		logger = logger.With(slog.Int64("telegram_id", req.Id))

		token, err := handler.Register(&req)
		if err != nil {
			logger.Error("register", sl.Err(err))
			render.Status(r, response.StatusOf(err))
			render.JSON(w, r, response.Error(fmt.Sprintf("Register: %v", err)))
			return
		}
		logger.Info("organization registered")

		render.JSON(w, r, response.Ok(token))
	}
}

// Telegram exchanges a verified Telegram login widget payload for a token.
func Telegram(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.authapi"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var login entity.TelegramLogin
		if err := decode.JSON(r, &login); err != nil {
			logger.Error("bind request", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(fmt.Sprintf("Invalid request: %v", err)))
			return
		}
		logger = logger.With(slog.Int64("telegram_id", login.Id))

		token, err := handler.TelegramLogin(&login)
		if err != nil {
			logger.Error("login", sl.Err(err))
			render.Status(r, response.StatusOf(err))
			render.JSON(w, r, response.Error("Login failed"))
			return
		}
		logger.Debug("user logged in")

		render.JSON(w, r, response.Ok(token))
	}
}

// Me returns the authenticated user from the request context.
func Me(_ *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, response.Ok(cont.GetUser(r.Context())))
	}
}

// LoginDeprecated terminally rejects the legacy password login endpoint.
func LoginDeprecated(_ *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.Status(r, http.StatusGone)
		render.JSON(w, r, response.Error("Password login is no longer supported, use Telegram login"))
	}
}
