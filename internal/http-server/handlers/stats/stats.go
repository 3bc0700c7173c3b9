package stats

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"tgmon/entity"
	"tgmon/lib/api/cont"
	"tgmon/lib/api/response"
	"tgmon/lib/sl"
)

type Core interface {
	Stats(tenantId string) (*entity.Stats, error)
}

func Get(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.stats"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		result, err := handler.Stats(cont.TenantId(r.Context()))
		if err != nil {
			logger.Error("aggregate stats", sl.Err(err))
			render.Status(r, response.StatusOf(err))
			render.JSON(w, r, response.Error("Stats aggregation failed"))
			return
		}

		render.JSON(w, r, response.Ok(result))
	}
}
