package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/annostudio/annostudio/internal/assignments"
	"github.com/annostudio/annostudio/internal/config"
	"github.com/annostudio/annostudio/internal/documents"
	"github.com/annostudio/annostudio/internal/infrastructure"
	"github.com/annostudio/annostudio/internal/middleware"
	"github.com/annostudio/annostudio/internal/notify"
	"github.com/annostudio/annostudio/internal/regions"
	approutes "github.com/annostudio/annostudio/internal/routes"
	pkgroutes "github.com/annostudio/annostudio/pkg/routes"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := cfg.Finalize(); err != nil {
		os.Stderr.WriteString("invalid configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	infra, err := infrastructure.New(cfg)
	if err != nil {
		os.Stderr.WriteString("infrastructure init failed: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer infra.Close()

	logger := infra.Logger

	hub := notify.NewHub(logger)
	regionSys := regions.New(infra.DB, logger)
	documentSys := documents.New(infra.DB, infra.Storage, logger, cfg.Pagination)

	gateway := assignments.NewPostgresGateway(infra.DB, logger)
	manager := assignments.NewManager(&cfg.Assignments, gateway, regionSys, hub, logger)

	documentHandler := documents.NewHandler(documentSys, logger, cfg.Pagination, cfg.Storage.MaxUploadSizeBytes())
	regionHandler := regions.NewHandler(regionSys, logger)
	assignmentHandler := assignments.NewHandler(manager, regionSys, logger)

	router := approutes.New(logger)
	router.RegisterRoute(pkgroutes.Route{
		Method:  "GET",
		Pattern: "/healthz",
		Handler: func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("OK"))
		},
	})
	router.RegisterRoute(pkgroutes.Route{
		Method:  "GET",
		Pattern: "/notifications",
		Handler: hub.Subscribe,
	})
	router.RegisterGroup(documentHandler.Routes())
	router.RegisterGroup(regionHandler.Routes())
	router.RegisterGroup(assignmentHandler.Routes())
	router.RegisterGroup(assignmentHandler.ActorRoutes())

	handler := router.Build()
	handler = middleware.Logger(logger)(handler)
	handler = middleware.TrimSlash()(handler)
	handler = middleware.CORS(&cfg.CORS)(handler)

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
	}

	shutdownError := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		logger.Info("shutting down server")

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeoutDuration())
		defer cancel()

		shutdownError <- srv.Shutdown(ctx)
	}()

	logger.Info("starting server", "addr", srv.Addr)

	err = srv.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	if err := <-shutdownError; err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
