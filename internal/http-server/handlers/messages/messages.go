package messages

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
	Messages(tenantId string, f database.MessageFilter) ([]*entity.MessageLog, error)
	SearchMessages(tenantId, q string, limit, skip int64) ([]*entity.MessageLog, int64, error)
}

const (
	defaultLimit = 50
	maxLimit     = 200
)

func List(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.messages"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		q := r.URL.Query()
		filter := database.MessageFilter{
			GroupId:     q.Get("group_id"),
			Username:    entity.NormalizeUsername(q.Get("username")),
			MessageType: q.Get("message_type"),
			Limit:       queryInt(q.Get("limit"), defaultLimit),
			Skip:        queryInt(q.Get("skip"), 0),
		}
		if filter.Limit > maxLimit {
			filter.Limit = maxLimit
		}

		list, err := handler.Messages(cont.TenantId(r.Context()), filter)
		if err != nil {
			logger.Error("list messages", sl.Err(err))
			render.Status(r, response.StatusOf(err))
			render.JSON(w, r, response.Error("List messages failed"))
			return
		}

		render.JSON(w, r, response.Ok(list))
	}
}

// Search runs a substring search over text, username and group name and
// returns the page together with the total match count.
func Search(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.messages"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		query := r.URL.Query()
		q := query.Get("q")
		if q == "" {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("Query parameter q is required"))
			return
		}
		limit := queryInt(query.Get("limit"), defaultLimit)
		if limit > maxLimit {
			limit = maxLimit
		}
		skip := queryInt(query.Get("skip"), 0)

		list, total, err := handler.SearchMessages(cont.TenantId(r.Context()), q, limit, skip)
		if err != nil {
			logger.Error("search messages", sl.Err(err))
			render.Status(r, response.StatusOf(err))
			render.JSON(w, r, response.Error("Search failed"))
			return
		}

		render.JSON(w, r, response.Ok(map[string]interface{}{
			"messages": list,
			"total":    total,
			"limit":    limit,
			"skip":     skip,
		}))
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
