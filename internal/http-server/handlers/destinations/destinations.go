package destinations

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
	CreateDestination(tenantId string, dc *entity.DestinationCreate) (*entity.Destination, error)
	Destinations(tenantId string, includeInactive bool) ([]*entity.Destination, error)
	Destination(tenantId, id string) (*entity.Destination, error)
	UpdateDestination(tenantId, id string, dc *entity.DestinationCreate) (*entity.Destination, error)
	DeleteDestination(tenantId, id string) error
	TestDestination(tenantId, id string) error
}

func Create(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.destinations"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var dc entity.DestinationCreate
		if err := decode.JSON(r, &dc); err != nil {
			logger.Error("bind request", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(fmt.Sprintf("Invalid request: %v", err)))
			return
		}
		logger = logger.With(slog.String("destination_id", dc.DestinationId))

		dest, err := handler.CreateDestination(cont.TenantId(r.Context()), &dc)
		if err != nil {
			logger.Error("create destination", sl.Err(err))
			render.Status(r, response.StatusOf(err))
			render.JSON(w, r, response.Error(fmt.Sprintf("Create: %v", err)))
			return
		}
		logger.Info("destination created")

		render.JSON(w, r, response.Ok(dest))
	}
}

func List(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.destinations"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		includeInactive := r.URL.Query().Get("include_inactive") == "true"
		list, err := handler.Destinations(cont.TenantId(r.Context()), includeInactive)
		if err != nil {
			logger.Error("list destinations", sl.Err(err))
			render.Status(r, response.StatusOf(err))
			render.JSON(w, r, response.Error("List destinations failed"))
			return
		}

		render.JSON(w, r, response.Ok(list))
	}
}

func Get(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.destinations"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("id", chi.URLParam(r, "id")),
		)

		dest, err := handler.Destination(cont.TenantId(r.Context()), chi.URLParam(r, "id"))
		if err != nil {
			logger.Error("get destination", sl.Err(err))
			render.Status(r, response.StatusOf(err))
			render.JSON(w, r, response.Error("Destination not found"))
			return
		}

		render.JSON(w, r, response.Ok(dest))
	}
}

func Update(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.destinations"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("id", chi.URLParam(r, "id")),
		)

		var dc entity.DestinationCreate
		if err := decode.JSON(r, &dc); err != nil {
			logger.Error("bind request", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(fmt.Sprintf("Invalid request: %v", err)))
			return
		}

		dest, err := handler.UpdateDestination(cont.TenantId(r.Context()), chi.URLParam(r, "id"), &dc)
		if err != nil {
			logger.Error("update destination", sl.Err(err))
			render.Status(r, response.StatusOf(err))
			render.JSON(w, r, response.Error(fmt.Sprintf("Update: %v", err)))
			return
		}
		logger.Debug("destination updated")

		render.JSON(w, r, response.Ok(dest))
	}
}

func Delete(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.destinations"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("id", chi.URLParam(r, "id")),
		)

		err := handler.DeleteDestination(cont.TenantId(r.Context()), chi.URLParam(r, "id"))
		if err != nil {
			logger.Error("delete destination", sl.Err(err))
			render.Status(r, response.StatusOf(err))
			render.JSON(w, r, response.Error(fmt.Sprintf("Delete: %v", err)))
			return
		}
		logger.Info("destination deleted")

		render.JSON(w, r, response.Ok(nil))
	}
}

// Test sends a connectivity probe to the destination chat through the bot.
func Test(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.destinations"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("id", chi.URLParam(r, "id")),
		)

		err := handler.TestDestination(cont.TenantId(r.Context()), chi.URLParam(r, "id"))
		if err != nil {
			logger.Error("test destination", sl.Err(err))
			render.Status(r, response.StatusOf(err))
			render.JSON(w, r, response.Error(fmt.Sprintf("Test: %v", err)))
			return
		}
		logger.Info("destination probe delivered")

		render.JSON(w, r, response.Ok(map[string]string{"result": "probe delivered"}))
	}
}
