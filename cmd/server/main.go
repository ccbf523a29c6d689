package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/Khakverdiev/exam/internal/blacklist"
	"github.com/Khakverdiev/exam/internal/config"
	"github.com/Khakverdiev/exam/internal/handlers"
	"github.com/Khakverdiev/exam/internal/logging"
	"github.com/Khakverdiev/exam/internal/mail"
	"github.com/Khakverdiev/exam/internal/middleware"
	"github.com/Khakverdiev/exam/internal/mykafka"
	"github.com/Khakverdiev/exam/internal/repo"
	"github.com/Khakverdiev/exam/internal/service"
	"github.com/Khakverdiev/exam/internal/tokens"
	httpserver "github.com/Khakverdiev/exam/internal/transport/http"
)

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(configuration.LOG_LEVEL)

	db, err := config.InitDB(configuration)
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}

	prod, err := mykafka.NewProducer([]string{configuration.KAFKA_ADDRESS})
	if err != nil {
		logger.Warn("kafka disabled", "error", err)
		prod = &mykafka.Producer{}
	}

	issuer := tokens.NewIssuer(
		[]byte(configuration.JWT_SECRET),
		[]byte(configuration.EMAIL_JWT_SECRET),
		configuration.JWT_ISSUER,
		configuration.JWT_AUDIENCE,
		configuration.AccessTokenTTL,
		configuration.EmailTokenTTL,
	)

	registry := blacklist.NewRegistry(issuer, configuration.SweepInterval, logger)

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go registry.Run(sweepCtx)

	userRepo := &repo.GormRepo{DB: db}
	mailer := &mail.LogSender{Logger: logger}

	authSvc := &service.AuthService{
		Repo:       userRepo,
		Issuer:     issuer,
		Blacklist:  registry,
		Producer:   prod,
		RefreshTTL: configuration.RefreshTokenTTL,
	}
	accountSvc := &service.AccountService{
		Repo:           userRepo,
		Issuer:         issuer,
		Mailer:         mailer,
		ConfirmBaseURL: "https://localhost" + configuration.ADDR + "/api/account/validateconfirmation",
	}
	adminSvc := &service.AdminService{Repo: userRepo, Producer: prod}

	e := echo.New()
	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(echomw.Recover(), echomw.RequestID())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     strings.Split(configuration.CORS_ORIGINS, ","),
		AllowCredentials: true,
	}))
	e.Use(middleware.RequestLogger(logger))

	deps := httpserver.Deps{
		AuthHandler:     &handlers.AuthHandler{Auth: authSvc},
		AccountHandler:  &handlers.AccountHandler{Account: accountSvc},
		AdminHandler:    &handlers.AdminHandler{Admin: adminSvc},
		RevocationCheck: &middleware.RevocationCheck{Blacklist: registry},
		SessionRefresh:  middleware.NewSessionRefresh(userRepo, issuer, configuration.RefreshTokenTTL),
	}
	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         configuration.ADDR,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	stopSweep()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logger.Error("db close error", "error", err)
		}
	}

	if err := prod.Close(); err != nil {
		logger.Error("kafka close error", "error", err)
	}

	logger.Info("shutdown complete")
}
