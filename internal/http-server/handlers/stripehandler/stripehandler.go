package stripehandler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/stripe/stripe-go/v76"

	"tgmon/lib/api/response"
	"tgmon/lib/sl"
)

type Core interface {
	StripeVerifySignature(payload []byte, header string, tolerance time.Duration) bool
	StripeEvent(evt *stripe.Event) error
}

const signatureTolerance = 5 * time.Minute

// Event accepts signed Stripe webhook events and applies plan changes.
func Event(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.stripe"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		if handler == nil {
			logger.Error("stripe service not available")
			render.Status(r, http.StatusServiceUnavailable)
			render.JSON(w, r, response.Error("Stripe service not available"))
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			logger.Error("read payload", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("Invalid payload"))
			return
		}

		if !handler.StripeVerifySignature(payload, r.Header.Get("Stripe-Signature"), signatureTolerance) {
			logger.Warn("signature verification failed")
			render.Status(r, http.StatusForbidden)
			render.JSON(w, r, response.Error("Invalid signature"))
			return
		}

		var evt stripe.Event
		if err = json.Unmarshal(payload, &evt); err != nil {
			logger.Error("decode event", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("Invalid event payload"))
			return
		}
		logger = logger.With(slog.String("event_id", evt.ID), slog.Any("event_type", evt.Type))

		if err = handler.StripeEvent(&evt); err != nil {
			logger.Error("handle event", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("Event processing failed"))
			return
		}
		logger.Debug("event processed")

		render.JSON(w, r, response.Ok(nil))
	}
}
