package users

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"tgmon/entity"
	"tgmon/lib/api/cont"
	"tgmon/lib/api/decode"
	"tgmon/lib/api/response"
	"tgmon/lib/sl"
)

type Core interface {
	Users(tenantId string) ([]*entity.User, error)
	InviteUser(tenantId string, invite *entity.UserInvite) (*entity.User, error)
	SetUserRole(tenantId, id string, upd *entity.RoleUpdate) (*entity.User, error)
	RemoveUser(tenantId, id string) error
}

func List(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.users"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		list, err := handler.Users(cont.TenantId(r.Context()))
		if err != nil {
			logger.Error("list users", sl.Err(err))
			render.Status(r, response.StatusOf(err))
			render.JSON(w, r, response.Error("List users failed"))
			return
		}

		render.JSON(w, r, response.Ok(list))
	}
}

func Invite(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.users"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var invite entity.UserInvite
		if err := decode.JSON(r, &invite); err != nil {
			logger.Error("bind request", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(fmt.Sprintf("Invalid request: %v", err)))
			return
		}
		logger = logger.With(slog.Int64("telegram_id", invite.TelegramId))

		user, err := handler.InviteUser(cont.TenantId(r.Context()), &invite)
		if err != nil {
			logger.Error("invite user", sl.Err(err))
			render.Status(r, response.StatusOf(err))
			render.JSON(w, r, response.Error(fmt.Sprintf("Invite: %v", err)))
			return
		}
		logger.Info("user invited")

		render.JSON(w, r, response.Ok(user))
	}
}

func Role(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.users"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("user_id", chi.URLParam(r, "id")),
		)

		var upd entity.RoleUpdate
		if err := decode.JSON(r, &upd); err != nil {
			logger.Error("bind request", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(fmt.Sprintf("Invalid request: %v", err)))
			return
		}

		user, err := handler.SetUserRole(cont.TenantId(r.Context()), chi.URLParam(r, "id"), &upd)
		if err != nil {
			logger.Error("set role", sl.Err(err))
			render.Status(r, response.StatusOf(err))
			render.JSON(w, r, response.Error(fmt.Sprintf("Set role: %v", err)))
			return
		}
		logger.Info("role changed", slog.String("role", upd.Role))

		render.JSON(w, r, response.Ok(user))
	}
}

func Remove(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.users"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("user_id", chi.URLParam(r, "id")),
		)

		err := handler.RemoveUser(cont.TenantId(r.Context()), chi.URLParam(r, "id"))
		if err != nil {
			logger.Error("remove user", sl.Err(err))
			render.Status(r, response.StatusOf(err))
			render.JSON(w, r, response.Error(fmt.Sprintf("Remove: %v", err)))
			return
		}
		logger.Info("user deactivated")

		render.JSON(w, r, response.Ok(nil))
	}
}
