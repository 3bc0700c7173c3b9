package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"tgmon/bot"
	"tgmon/entity"
	"tgmon/impl/auth"
	"tgmon/impl/core"
	"tgmon/internal/artifact"
	"tgmon/internal/config"
	"tgmon/internal/database"
	"tgmon/internal/forwarder"
	"tgmon/internal/http-server/api"
	"tgmon/internal/pipeline"
	"tgmon/internal/stripeclient"
	"tgmon/internal/supervisor"
	"tgmon/internal/tgclient"
	"tgmon/lib/logger"
	"tgmon/lib/sl"
)

const (
	version       = "1.0.0"
	logFileName   = "tgmon.log"
	shutdownGrace = 10 * time.Second
)

func main() {
	configPath := flag.String("conf", "config.yml", "path to config file")
	logPath := flag.String("log", "/var/log/", "path to log file directory")
	flag.Parse()

	conf := config.MustLoad(*configPath)
	lg := logger.SetupLogger(conf.Env, filepath.Join(*logPath, logFileName))
	lg.Info("starting telegram monitor", slog.String("config", *configPath), slog.String("env", conf.Env))

	db := database.NewMongoClient(conf)
	if db == nil {
		log.Fatal("mongo connection is required")
	}
	if err := db.EnsureIndexes(); err != nil {
		lg.Error("creating indexes", sl.Err(err))
		log.Fatal(err)
	}

	authService := auth.New(db, conf.Telegram.BotToken, conf.Auth.SigningKey, conf.Auth.TokenTTL)

	tgBot, err := bot.NewTgBot(conf.Telegram.BotToken, db, lg)
	if err != nil {
		lg.Error("bot init", sl.Err(err))
		log.Fatal(err)
	}

	engine := forwarder.New(db, tgBot.Api(), forwarder.Config{
		RateCount:  conf.Forwarder.RateCount,
		RateWindow: conf.Forwarder.RateWindow,
		MaxRetries: conf.Forwarder.MaxRetries,
		QueueSize:  conf.Forwarder.QueueSize,
	}, lg)

	pipe := pipeline.New(db, engine, lg)

	factory := func(account *entity.Account) supervisor.Receiver {
		return tgclient.New(conf.Telegram.ApiId, conf.Telegram.ApiHash,
			account.SessionPath, account.TenantId, account.Id, lg)
	}
	sup := supervisor.New(db, pipe, factory, conf.Monitor.MaxReconnects, lg)
	if err = sup.Start(); err != nil {
		lg.Error("starting session supervisor", sl.Err(err))
	}

	monitor := supervisor.NewMonitor(sup, conf.Monitor.ProbeInterval, lg)
	monitorCtx, stopMonitor := context.WithCancel(context.Background())
	go monitor.Run(monitorCtx)

	store := artifact.NewStore(conf.Storage.Root, lg)

	sc := stripeclient.New(conf, lg)
	sc.SetDatabase(db)

	handler := core.New(db, lg)
	handler.SetAuthService(authService)
	handler.SetBot(tgBot)
	handler.SetForwarder(engine)
	handler.SetPipeline(pipe)
	handler.SetSupervisor(sup)
	handler.SetMonitor(monitor)
	handler.SetArtifactStore(store)
	handler.SetStripeClient(sc)
	handler.SetVersion(version)

	go func() {
		if err := api.New(conf, lg, handler); err != nil {
			lg.Error("api server stopped", sl.Err(err))
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stop
	lg.Info("shutting down", slog.String("signal", sig.String()))

	stopMonitor()
	sup.Stop(shutdownGrace)
	engine.Stop(shutdownGrace)
	lg.Info("stopped")
}
