package stripeclient

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	"tgmon/entity"
	"tgmon/internal/config"
	"tgmon/lib/sl"
)

type Database interface {
	GetOrganization(tenantId string) (*entity.Organization, error)
	SetOrganizationPlan(tenantId string, plan entity.Plan) error
}

// StripeClient drives plan upgrades through hosted checkout sessions and
// applies the resulting webhook events to the organization record.
type StripeClient struct {
	sc            *client.API
	webhookSecret string
	successUrl    string
	cancelUrl     string
	prices        map[entity.Plan]string
	db            Database
	log           *slog.Logger
}

func New(conf *config.Config, logger *slog.Logger) *StripeClient {
	sc := &client.API{}
	sc.Init(conf.Stripe.APIKey, nil)
	return &StripeClient{
		sc:            sc,
		webhookSecret: conf.Stripe.WebhookSecret,
		successUrl:    conf.Stripe.SuccessURL,
		cancelUrl:     conf.Stripe.CancelURL,
		prices: map[entity.Plan]string{
			entity.PlanPro:        conf.Stripe.ProPrice,
			entity.PlanEnterprise: conf.Stripe.EnterprisePrice,
		},
		log: logger.With(sl.Module("stripe")),
	}
}

func (s *StripeClient) SetDatabase(db Database) {
	s.db = db
}

// VerifySignature checks the Stripe-Signature header against the payload.
func (s *StripeClient) VerifySignature(payload []byte, header string, tolerance time.Duration) bool {
	parts := strings.Split(header, ",")
	var ts, sig string
	for _, p := range parts {
		if strings.HasPrefix(p, "t=") {
			ts = strings.TrimPrefix(p, "t=")
		}
		if strings.HasPrefix(p, "v1=") {
			sig = strings.TrimPrefix(p, "v1=")
		}
	}
	if ts == "" || sig == "" {
		s.log.Warn("missing timestamp or signature in header")
		return false
	}

	tsInt, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		s.log.With(
			slog.Any("error", err),
		).Warn("failed to parse timestamp")
		return false
	}

	eventTime := time.Unix(tsInt, 0)
	timeSince := time.Since(eventTime)
	if timeSince > tolerance {
		s.log.With(
			slog.Time("timestamp", eventTime),
			slog.Duration("age", timeSince),
			slog.Duration("tolerance", tolerance),
		).Warn("webhook timestamp too old")
		return false
	}

	mac := hmac.New(sha256.New, []byte(s.webhookSecret))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	isValid := hmac.Equal([]byte(expected), []byte(sig))
	if !isValid {
		s.log.With(
			sl.Secret("secret", s.webhookSecret),
		).Warn("signature mismatch")
	}
	return isValid
}

// CreateCheckout opens a subscription checkout session for the tenant.
// The tenant id and target plan travel in the session metadata so the
// completed-checkout webhook can apply the upgrade without extra state.
func (s *StripeClient) CreateCheckout(tenantId string, plan entity.Plan) (*entity.CheckoutLink, error) {
	priceId := s.prices[plan]
	if priceId == "" {
		return nil, fmt.Errorf("no price configured for plan %s", plan)
	}
	if s.successUrl == "" {
		return nil, fmt.Errorf("missing success url")
	}

	org, err := s.db.GetOrganization(tenantId)
	if err != nil {
		return nil, fmt.Errorf("load organization: %w", err)
	}
	if org.Plan == plan {
		return nil, fmt.Errorf("%w: organization already on plan %s", entity.ErrConflict, plan)
	}

	log := s.log.With(
		slog.String("tenant", tenantId),
		slog.String("plan", string(plan)),
	)

	csParams := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceId),
				Quantity: stripe.Int64(1),
			},
		},
		ClientReferenceID: stripe.String(tenantId),
		Metadata: map[string]string{
			"tenant_id": tenantId,
			"plan":      string(plan),
		},
		SuccessURL: stripe.String(s.successUrl),
	}
	if s.cancelUrl != "" {
		csParams.CancelURL = stripe.String(s.cancelUrl)
	}

	cs, err := s.sc.CheckoutSessions.New(csParams)
	if err != nil {
		err = s.parseErr(err)
		return nil, fmt.Errorf("stripe checkout session: %w", err)
	}

	log.With(slog.String("session_id", cs.ID)).Info("checkout link created")
	return &entity.CheckoutLink{
		SessionId: cs.ID,
		Url:       cs.URL,
		Plan:      string(plan),
	}, nil
}

// HandleEvent applies one verified webhook event. Completed checkouts
// promote the tenant to the purchased plan; deleted subscriptions drop
// it back to free. Unrecognized event types are ignored.
func (s *StripeClient) HandleEvent(evt *stripe.Event) error {
	switch evt.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		return s.handleCheckoutCompleted(evt)
	case stripe.EventTypeCustomerSubscriptionDeleted:
		return s.handleSubscriptionDeleted(evt)
	default:
		s.log.With(slog.Any("event_type", evt.Type)).Debug("ignoring event")
		return nil
	}
}

func (s *StripeClient) handleCheckoutCompleted(evt *stripe.Event) error {
	sessId := evt.GetObjectValue("id")
	log := s.log.With(
		slog.Any("event_type", evt.Type),
		slog.String("event_id", evt.ID),
		slog.String("session_id", sessId),
	)

	sess, err := s.sc.CheckoutSessions.Get(sessId, nil)
	if err != nil {
		err = s.parseErr(err)
		log.Error("get session from stripe", sl.Err(err))
		return err
	}

	tenantId := sess.Metadata["tenant_id"]
	if tenantId == "" {
		tenantId = sess.ClientReferenceID
	}
	plan, ok := entity.ParsePlan(sess.Metadata["plan"])
	if !ok || tenantId == "" {
		log.Warn("session without tenant or plan metadata")
		return nil
	}

	if err = s.db.SetOrganizationPlan(tenantId, plan); err != nil {
		log.Error("apply plan upgrade", sl.Err(err))
		return err
	}
	log.With(
		slog.String("tenant", tenantId),
		slog.String("plan", string(plan)),
	).Info("plan upgraded")
	return nil
}

func (s *StripeClient) handleSubscriptionDeleted(evt *stripe.Event) error {
	subId := evt.GetObjectValue("id")
	log := s.log.With(
		slog.Any("event_type", evt.Type),
		slog.String("subscription_id", subId),
	)

	sub, err := s.sc.Subscriptions.Get(subId, nil)
	if err != nil {
		err = s.parseErr(err)
		log.Error("get subscription from stripe", sl.Err(err))
		return err
	}

	tenantId := sub.Metadata["tenant_id"]
	if tenantId == "" {
		log.Warn("subscription without tenant metadata")
		return nil
	}

	if err = s.db.SetOrganizationPlan(tenantId, entity.PlanFree); err != nil {
		log.Error("apply plan downgrade", sl.Err(err))
		return err
	}
	log.With(slog.String("tenant", tenantId)).Info("plan reverted to free")
	return nil
}
