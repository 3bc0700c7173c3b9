package groups

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
	CreateGroup(tenantId string, gc *entity.GroupCreate) (*entity.Group, error)
	Groups(tenantId string, includeInactive bool) ([]*entity.Group, error)
	Group(tenantId, id string) (*entity.Group, error)
	UpdateGroup(tenantId, id string, gc *entity.GroupCreate) (*entity.Group, error)
	DeleteGroup(tenantId, id string) error
}

func Create(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.groups"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var gc entity.GroupCreate
		if err := decode.JSON(r, &gc); err != nil {
			logger.Error("bind request", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(fmt.Sprintf("Invalid request: %v", err)))
			return
		}
		logger = logger.With(slog.String("group_id", gc.GroupId))

		group, err := handler.CreateGroup(cont.TenantId(r.Context()), &gc)
		if err != nil {
			logger.Error("create group", sl.Err(err))
			render.Status(r, response.StatusOf(err))
			render.JSON(w, r, response.Error(fmt.Sprintf("Create: %v", err)))
			return
		}
		logger.Info("group created")

		render.JSON(w, r, response.Ok(group))
	}
}

func List(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.groups"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		includeInactive := r.URL.Query().Get("include_inactive") == "true"
		list, err := handler.Groups(cont.TenantId(r.Context()), includeInactive)
		if err != nil {
			logger.Error("list groups", sl.Err(err))
			render.Status(r, response.StatusOf(err))
			render.JSON(w, r, response.Error("List groups failed"))
			return
		}

		render.JSON(w, r, response.Ok(list))
	}
}

func Get(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.groups"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("id", chi.URLParam(r, "id")),
		)

		group, err := handler.Group(cont.TenantId(r.Context()), chi.URLParam(r, "id"))
		if err != nil {
			logger.Error("get group", sl.Err(err))
			render.Status(r, response.StatusOf(err))
			render.JSON(w, r, response.Error("Group not found"))
			return
		}

		render.JSON(w, r, response.Ok(group))
	}
}

func Update(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.groups"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("id", chi.URLParam(r, "id")),
		)

		var gc entity.GroupCreate
		if err := decode.JSON(r, &gc); err != nil {
			logger.Error("bind request", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(fmt.Sprintf("Invalid request: %v", err)))
			return
		}

		group, err := handler.UpdateGroup(cont.TenantId(r.Context()), chi.URLParam(r, "id"), &gc)
		if err != nil {
			logger.Error("update group", sl.Err(err))
			render.Status(r, response.StatusOf(err))
			render.JSON(w, r, response.Error(fmt.Sprintf("Update: %v", err)))
			return
		}
		logger.Debug("group updated")

		render.JSON(w, r, response.Ok(group))
	}
}

func Delete(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.groups"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("id", chi.URLParam(r, "id")),
		)

		err := handler.DeleteGroup(cont.TenantId(r.Context()), chi.URLParam(r, "id"))
		if err != nil {
			logger.Error("delete group", sl.Err(err))
			render.Status(r, response.StatusOf(err))
			render.JSON(w, r, response.Error(fmt.Sprintf("Delete: %v", err)))
			return
		}
		logger.Info("group deleted")

		render.JSON(w, r, response.Ok(nil))
	}
}
