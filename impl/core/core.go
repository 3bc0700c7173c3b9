// Package core mediates between the HTTP and bot surfaces and the
// backing services. Handlers depend on narrow interfaces that Core
// satisfies; Core owns no business rules beyond sequencing calls.
package core

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/stripe/stripe-go/v76"

	"tgmon/bot"
	"tgmon/entity"
	"tgmon/impl/auth"
	"tgmon/internal/artifact"
	"tgmon/internal/database"
	"tgmon/internal/forwarder"
	"tgmon/internal/pipeline"
	"tgmon/internal/stripeclient"
	"tgmon/internal/supervisor"
	"tgmon/lib/sl"
)

type Core struct {
	db      *database.MongoDB
	auth    *auth.Auth
	bot     *bot.TgBot
	fwd     *forwarder.Engine
	pipe    *pipeline.Pipeline
	sup     *supervisor.Supervisor
	mon     *supervisor.Monitor
	store   *artifact.Store
	sc      *stripeclient.StripeClient
	version string
	log     *slog.Logger
}

func New(db *database.MongoDB, log *slog.Logger) *Core {
	if db == nil {
		panic("database is nil")
	}
	return &Core{
		db:  db,
		log: log.With(sl.Module("core")),
	}
}

func (c *Core) SetAuthService(a *auth.Auth)                  { c.auth = a }
func (c *Core) SetBot(b *bot.TgBot)                          { c.bot = b }
func (c *Core) SetForwarder(f *forwarder.Engine)             { c.fwd = f }
func (c *Core) SetPipeline(p *pipeline.Pipeline)             { c.pipe = p }
func (c *Core) SetSupervisor(s *supervisor.Supervisor)       { c.sup = s }
func (c *Core) SetMonitor(m *supervisor.Monitor)             { c.mon = m }
func (c *Core) SetArtifactStore(s *artifact.Store)           { c.store = s }
func (c *Core) SetStripeClient(s *stripeclient.StripeClient) { c.sc = s }
func (c *Core) SetVersion(v string)                          { c.version = v }

// Version is reported on the root endpoint.
func (c *Core) Version() string {
	if c.version == "" {
		return "dev"
	}
	return c.version
}

func (c *Core) AuthenticateByToken(token string) (*entity.User, error) {
	if c.auth == nil {
		return nil, fmt.Errorf("auth service not connected")
	}
	return c.auth.AuthenticateByToken(token)
}

func (c *Core) Register(req *entity.RegisterRequest) (*entity.AuthToken, error) {
	if c.auth == nil {
		return nil, fmt.Errorf("auth service not connected")
	}
	return c.auth.Register(req)
}

func (c *Core) TelegramLogin(login *entity.TelegramLogin) (*entity.AuthToken, error) {
	if c.auth == nil {
		return nil, fmt.Errorf("auth service not connected")
	}
	return c.auth.Login(login)
}

func (c *Core) StripeVerifySignature(payload []byte, header string, tolerance time.Duration) bool {
	if c.sc == nil {
		return false
	}
	return c.sc.VerifySignature(payload, header, tolerance)
}

func (c *Core) StripeEvent(evt *stripe.Event) error {
	if c.sc == nil {
		return fmt.Errorf("stripe client not connected")
	}
	return c.sc.HandleEvent(evt)
}

// BillingCheckout opens a hosted checkout session upgrading the tenant plan.
func (c *Core) BillingCheckout(tenantId string, plan entity.Plan) (*entity.CheckoutLink, error) {
	if c.sc == nil {
		return nil, fmt.Errorf("stripe client not connected")
	}
	return c.sc.CreateCheckout(tenantId, plan)
}

// TestBot verifies bot API connectivity and returns the bot identity.
func (c *Core) TestBot() (map[string]interface{}, error) {
	if c.bot == nil {
		return nil, fmt.Errorf("bot not connected")
	}
	me, err := c.bot.Api().GetMe(nil)
	if err != nil {
		return nil, fmt.Errorf("bot api: %w", err)
	}
	return map[string]interface{}{
		"id":         me.Id,
		"username":   me.Username,
		"first_name": me.FirstName,
	}, nil
}
