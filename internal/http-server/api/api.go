package api

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"tgmon/internal/config"
	"tgmon/internal/http-server/handlers/accounts"
	"tgmon/internal/http-server/handlers/authapi"
	"tgmon/internal/http-server/handlers/billing"
	"tgmon/internal/http-server/handlers/destinations"
	"tgmon/internal/http-server/handlers/errors"
	"tgmon/internal/http-server/handlers/forwarded"
	"tgmon/internal/http-server/handlers/groups"
	"tgmon/internal/http-server/handlers/info"
	"tgmon/internal/http-server/handlers/messages"
	"tgmon/internal/http-server/handlers/organization"
	"tgmon/internal/http-server/handlers/stats"
	"tgmon/internal/http-server/handlers/stripehandler"
	"tgmon/internal/http-server/handlers/users"
	"tgmon/internal/http-server/handlers/watchlist"
	"tgmon/internal/http-server/handlers/webhook"
	"tgmon/internal/http-server/middleware/authenticate"
	"tgmon/internal/http-server/middleware/timeout"
	"tgmon/lib/sl"
)

type Server struct {
	conf       *config.Config
	httpServer *http.Server
	log        *slog.Logger
}

type Handler interface {
	authenticate.Authenticate
	authapi.Core
	organization.Core
	users.Core
	groups.Core
	watchlist.Core
	destinations.Core
	messages.Core
	accounts.Core
	forwarded.Core
	stats.Core
	info.Core
	webhook.Core
	stripehandler.Core
	billing.Core
}

func New(conf *config.Config, log *slog.Logger, handler Handler) error {

	server := Server{
		conf: conf,
		log:  log.With(sl.Module("api.server")),
	}

	router := chi.NewRouter()
	router.Use(timeout.Timeout(10))
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(render.SetContentType(render.ContentTypeJSON))

	router.NotFound(errors.NotFound(log))
	router.MethodNotAllowed(errors.NotAllowed(log))

	router.Get("/", info.Root(log, handler))

	router.Route("/api", func(rootApi chi.Router) {
		rootApi.Get("/", info.Root(log, handler))

		rootApi.Route("/auth", func(ar chi.Router) {
			ar.Post("/register", authapi.Register(log, handler))
			ar.Post("/telegram", authapi.Telegram(log, handler))
			ar.Post("/login", authapi.LoginDeprecated(log))
			ar.With(authenticate.New(log, handler)).Get("/me", authapi.Me(log))
		})

		rootApi.Post("/telegram/webhook/{secret}", webhook.Telegram(log, conf.Telegram.WebhookSecret, handler))

		rootApi.Group(func(protected chi.Router) {
			protected.Use(authenticate.New(log, handler))
			mutator := authenticate.Mutator(log)
			owner := authenticate.Owner(log)

			protected.Route("/organizations", func(or chi.Router) {
				or.Get("/current", organization.Current(log, handler))
				or.With(mutator).Put("/current", organization.Update(log, handler))
			})

			protected.Route("/users", func(ur chi.Router) {
				ur.With(mutator).Get("/", users.List(log, handler))
				ur.With(mutator).Post("/invite", users.Invite(log, handler))
				ur.With(owner).Put("/{id}/role", users.Role(log, handler))
				ur.With(mutator).Delete("/{id}", users.Remove(log, handler))
			})

			protected.Route("/groups", func(gr chi.Router) {
				gr.Get("/", groups.List(log, handler))
				gr.With(mutator).Post("/", groups.Create(log, handler))
				gr.Get("/{id}", groups.Get(log, handler))
				gr.With(mutator).Put("/{id}", groups.Update(log, handler))
				gr.With(mutator).Delete("/{id}", groups.Delete(log, handler))
			})

			protected.Route("/watchlist", func(wr chi.Router) {
				wr.Get("/", watchlist.List(log, handler))
				wr.With(mutator).Post("/", watchlist.Create(log, handler))
				wr.Get("/{id}", watchlist.Get(log, handler))
				wr.With(mutator).Put("/{id}", watchlist.Update(log, handler))
				wr.With(mutator).Delete("/{id}", watchlist.Delete(log, handler))
			})

			protected.Route("/forwarding-destinations", func(dr chi.Router) {
				dr.Get("/", destinations.List(log, handler))
				dr.With(mutator).Post("/", destinations.Create(log, handler))
				dr.Get("/{id}", destinations.Get(log, handler))
				dr.With(mutator).Put("/{id}", destinations.Update(log, handler))
				dr.With(mutator).Delete("/{id}", destinations.Delete(log, handler))
				dr.With(mutator).Post("/{id}/test", destinations.Test(log, handler))
			})

			protected.Route("/messages", func(mr chi.Router) {
				mr.Get("/", messages.List(log, handler))
				mr.Get("/search", messages.Search(log, handler))
			})

			protected.Route("/accounts", func(ar chi.Router) {
				ar.Get("/", accounts.List(log, handler))
				ar.Get("/health", accounts.Health(log, handler))
				ar.With(mutator).Post("/upload", accounts.Upload(log, handler))
				ar.With(mutator).Post("/{id}/activate", accounts.Activate(log, handler))
				ar.With(mutator).Post("/{id}/deactivate", accounts.Deactivate(log, handler))
				ar.With(mutator).Delete("/{id}", accounts.Delete(log, handler))
			})

			protected.Get("/forwarded-messages", forwarded.List(log, handler))
			protected.Get("/stats", stats.Get(log, handler))
			protected.Post("/test/bot", info.TestBot(log, handler))
			protected.With(owner).Post("/billing/checkout", billing.Checkout(log, handler))
		})
	})

	router.Route("/webhook", func(rootWH chi.Router) {
		rootWH.Post("/stripe", stripehandler.Event(log, handler))
	})

	httpLog := slog.NewLogLogger(log.Handler(), slog.LevelError)
	server.httpServer = &http.Server{
		Handler:      router,
		ErrorLog:     httpLog,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverAddress := fmt.Sprintf("%s:%s", conf.Listen.BindIp, conf.Listen.Port)
	listener, err := net.Listen("tcp", serverAddress)
	if err != nil {
		return err
	}

	server.log.Info("starting api server", slog.String("address", serverAddress))

	return server.httpServer.Serve(listener)
}
