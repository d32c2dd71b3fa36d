package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"talknote-go/internal/app"
	"talknote-go/internal/config"
	"talknote-go/internal/httpapi"
	"talknote-go/internal/logger"
)

func main() {
	_ = godotenv.Load() // loads .env

	log := logger.New()
	log.WithField("service", "talknote-go").Info("starting service")

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to wire application")
	}
	defer a.Close()

	api, err := httpapi.NewServer(httpapi.Deps{
		Pipeline: a.Pipeline,
		Notes:    a.Notes,
		Styles:   a.Styles,
		Objects:  a.Objects,
	}, httpapi.WithLogger(log), httpapi.WithMetrics(a.Metrics, a.Registry))
	if err != nil {
		log.WithError(err).Fatal("failed to build http api")
	}

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	srv := &http.Server{
		Addr:        addr,
		Handler:     api.Handler(),
		ReadTimeout: 60 * time.Second,
		// Long-running transcription can hold a request up to the ceiling.
		WriteTimeout: cfg.Transcription.Ceiling + 5*time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", addr).Info("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("server terminated")
		}
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("graceful shutdown failed")
		}
	}
}
