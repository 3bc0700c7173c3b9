package organization

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
	Organization(tenantId string) (*entity.Organization, error)
	UpdateOrganization(tenantId string, upd *entity.OrganizationUpdate) (*entity.Organization, error)
}

func Current(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.organization"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		org, err := handler.Organization(cont.TenantId(r.Context()))
		if err != nil {
			logger.Error("get organization", sl.Err(err))
			render.Status(r, response.StatusOf(err))
			render.JSON(w, r, response.Error("Organization not found"))
			return
		}

		render.JSON(w, r, response.Ok(org))
	}
}

func Update(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.organization"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var upd entity.OrganizationUpdate
		if err := decode.JSON(r, &upd); err != nil {
			logger.Error("bind request", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(fmt.Sprintf("Invalid request: %v", err)))
			return
		}

		org, err := handler.UpdateOrganization(cont.TenantId(r.Context()), &upd)
		if err != nil {
			logger.Error("update organization", sl.Err(err))
			render.Status(r, response.StatusOf(err))
			render.JSON(w, r, response.Error(fmt.Sprintf("Update: %v", err)))
			return
		}
		logger.Debug("organization updated")

		render.JSON(w, r, response.Ok(org))
	}
}
