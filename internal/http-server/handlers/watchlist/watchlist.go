package watchlist

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
	CreateWatchUser(tenantId string, wc *entity.WatchUserCreate) (*entity.WatchUser, error)
	WatchUsers(tenantId string, includeInactive bool) ([]*entity.WatchUser, error)
	WatchUser(tenantId, id string) (*entity.WatchUser, error)
	UpdateWatchUser(tenantId, id string, wc *entity.WatchUserCreate) (*entity.WatchUser, error)
	DeleteWatchUser(tenantId, id string) error
}

func Create(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.watchlist"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var wc entity.WatchUserCreate
		if err := decode.JSON(r, &wc); err != nil {
			logger.Error("bind request", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(fmt.Sprintf("Invalid request: %v", err)))
			return
		}
		logger = logger.With(slog.String("username", wc.Username))

		watch, err := handler.CreateWatchUser(cont.TenantId(r.Context()), &wc)
		if err != nil {
			logger.Error("create watch user", sl.Err(err))
			render.Status(r, response.StatusOf(err))
			render.JSON(w, r, response.Error(fmt.Sprintf("Create: %v", err)))
			return
		}
		logger.Info("watch user created")

		render.JSON(w, r, response.Ok(watch))
	}
}

func List(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.watchlist"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		includeInactive := r.URL.Query().Get("include_inactive") == "true"
		list, err := handler.WatchUsers(cont.TenantId(r.Context()), includeInactive)
		if err != nil {
			logger.Error("list watch users", sl.Err(err))
			render.Status(r, response.StatusOf(err))
			render.JSON(w, r, response.Error("List watchlist failed"))
			return
		}

		render.JSON(w, r, response.Ok(list))
	}
}

func Get(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.watchlist"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("id", chi.URLParam(r, "id")),
		)

		watch, err := handler.WatchUser(cont.TenantId(r.Context()), chi.URLParam(r, "id"))
		if err != nil {
			logger.Error("get watch user", sl.Err(err))
			render.Status(r, response.StatusOf(err))
			render.JSON(w, r, response.Error("Watch user not found"))
			return
		}

		render.JSON(w, r, response.Ok(watch))
	}
}

func Update(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.watchlist"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("id", chi.URLParam(r, "id")),
		)

		var wc entity.WatchUserCreate
		if err := decode.JSON(r, &wc); err != nil {
			logger.Error("bind request", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(fmt.Sprintf("Invalid request: %v", err)))
			return
		}

		watch, err := handler.UpdateWatchUser(cont.TenantId(r.Context()), chi.URLParam(r, "id"), &wc)
		if err != nil {
			logger.Error("update watch user", sl.Err(err))
			render.Status(r, response.StatusOf(err))
			render.JSON(w, r, response.Error(fmt.Sprintf("Update: %v", err)))
			return
		}
		logger.Debug("watch user updated")

		render.JSON(w, r, response.Ok(watch))
	}
}

func Delete(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.watchlist"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("id", chi.URLParam(r, "id")),
		)

		err := handler.DeleteWatchUser(cont.TenantId(r.Context()), chi.URLParam(r, "id"))
		if err != nil {
			logger.Error("delete watch user", sl.Err(err))
			render.Status(r, response.StatusOf(err))
			render.JSON(w, r, response.Error(fmt.Sprintf("Delete: %v", err)))
			return
		}
		logger.Info("watch user deleted")

		render.JSON(w, r, response.Ok(nil))
	}
}
