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

	"github.com/bryanwahyu/interaction-log/internal/bootstrap"
	"github.com/bryanwahyu/interaction-log/internal/config"
	"github.com/bryanwahyu/interaction-log/internal/infra/httpserver"
	"github.com/bryanwahyu/interaction-log/internal/logging"
)

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}
	log := logging.Init(cfg.Log.Format, logging.ParseLevel(cfg.Log.Level))

	ctx := context.Background()
	app, err := bootstrap.New(ctx, cfg, log)
	if err != nil {
		log.Error("startup failed", "err", err)
		os.Exit(1)
	}
	defer app.Close()

	handler := httpserver.NewRouter(app.Service, httpserver.Options{
		Checkers:     app.Checkers,
		APIKeys:      cfg.Auth.APIKeys,
		RateCapacity: cfg.RateLimit.Capacity,
		RateRefill:   cfg.RateLimit.RefillPerSecond,
		Log:          log,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	// WriteTimeout covers a full classification wait plus rendering
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.OpenAI.Timeout*2 + 30*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("server listening", "addr", addr, "classifier", app.Classifier, "storage", cfg.Storage.Driver, "export", cfg.Export.Target)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Info("shutting down server")

	ctx2, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Error("shutdown error", "err", err)
	}
	if app.Service.Busy() {
		log.Warn("classification still outstanding at shutdown, its result is lost")
	}
}
