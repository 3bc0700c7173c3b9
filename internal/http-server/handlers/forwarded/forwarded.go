package forwarded

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"tgmon/entity"
	"tgmon/internal/database"
	"tgmon/lib/api/cont"
	"tgmon/lib/api/response"
	"tgmon/lib/sl"
)

type Core interface {
	Forwarded(tenantId string, f database.ForwardedFilter) ([]*entity.ForwardedMessage, error)
}

func List(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.forwarded"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		q := r.URL.Query()
		filter := database.ForwardedFilter{
			Username:      entity.NormalizeUsername(q.Get("username")),
			DestinationId: q.Get("destination_id"),
			Limit:         queryInt(q.Get("limit"), 50),
			Skip:          queryInt(q.Get("skip"), 0),
		}

		list, err := handler.Forwarded(cont.TenantId(r.Context()), filter)
		if err != nil {
			logger.Error("list forwarded messages", sl.Err(err))
			render.Status(r, response.StatusOf(err))
			render.JSON(w, r, response.Error("List forwarded messages failed"))
			return
		}

		render.JSON(w, r, response.Ok(list))
	}
}

func queryInt(s string, def int64) int64 {
	if s == "" {
		return def
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v < 0 {
		return def
	}
	return v
}
