package main

import (
	"context"
	"flag"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/engineerapp/backoffice/internal/auth"
	"github.com/engineerapp/backoffice/internal/config"
	"github.com/engineerapp/backoffice/internal/db"
	"github.com/engineerapp/backoffice/internal/notify"
	"github.com/engineerapp/backoffice/internal/server"
)

var migrateOnlyFlag = flag.Bool("migrate-only", false, "Run DB migrations and exit")

func main() {
	flag.Parse()
	_ = godotenv.Load()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("load configuration")
	}
	if cfg.Env == "development" {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	dbConn, err := db.ConnectAndMigrate(cfg.DatabaseDSN, cfg.Migrations, cfg.DBDebug, log)
	if err != nil {
		log.WithError(err).Fatal("database connection")
	}
	if *migrateOnlyFlag {
		log.Info("migrations completed; exiting as requested")
		return
	}

	verifier := auth.NewHMACVerifier(cfg.TokenSecret)

	var mailer notify.Mailer
	if cfg.ResendAPIKey != "" {
		mailer = notify.NewResendMailer(cfg.ResendAPIKey, cfg.FromEmail)
	} else {
		mailer = &notify.LogMailer{Log: log}
	}

	handler := server.New(server.Deps{
		DB:       dbConn,
		Verifier: verifier,
		Issuer:   verifier,
		TokenTTL: cfg.TokenTTL,
		Mailer:   mailer,
		Log:      log,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	notifier := notify.NewNotifier(dbConn, &notify.LogSender{Log: log}, log)
	go notifier.RunReminderLoop(ctx, cfg.ReminderInterval)

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: handler}
	go func() {
		log.WithFields(logrus.Fields{"env": cfg.Env, "addr": srv.Addr}).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server error")
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("shutdown")
	}
	log.Info("server stopped")
}
