package billing

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
	BillingCheckout(tenantId string, plan entity.Plan) (*entity.CheckoutLink, error)
}

// Checkout opens a hosted payment page for a paid plan upgrade.
func Checkout(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.billing"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req entity.CheckoutRequest
		if err := decode.JSON(r, &req); err != nil {
			logger.Error("bind request", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(fmt.Sprintf("Invalid request: %v", err)))
			return
		}
		plan, ok := entity.ParsePlan(req.Plan)
		if !ok || plan == entity.PlanFree {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("Plan must be pro or enterprise"))
			return
		}
		logger = logger.With(slog.String("plan", req.Plan))

		link, err := handler.BillingCheckout(cont.TenantId(r.Context()), plan)
		if err != nil {
			logger.Error("create checkout", sl.Err(err))
			render.Status(r, response.StatusOf(err))
			render.JSON(w, r, response.Error(fmt.Sprintf("Checkout: %v", err)))
			return
		}
		logger.Info("checkout link created")

		render.JSON(w, r, response.Ok(link))
	}
}
