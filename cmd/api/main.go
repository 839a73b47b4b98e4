// The api command serves the read-only reporting API over the project
// store, plus health and metrics endpoints.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/poised-pms/poised/internal/bootstrap"
	"github.com/poised-pms/poised/pkg/middleware"
	"github.com/poised-pms/poised/pkg/routes/health"
	"github.com/poised-pms/poised/pkg/routes/projects"
)

const version = "1.0.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx)
	if err != nil {
		log.Fatalf("failed to start: %v", err)
	}
	defer app.Close(context.Background())

	cfg := app.Config

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = middleware.Error(app.Logger)
	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(middleware.Context())
	e.Use(middleware.Logger(app.Logger))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: cfg.AllowMethods,
	}))

	checker := health.NewChecker(app.DB, version)
	checker.RegisterRoutes(e)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	projectsHandler := projects.NewHandler(app.Service)
	projectsHandler.Register(e.Group("/api/v1/projects"))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		ReadTimeout:  time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second,
		IdleTimeout:  time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second,
	}

	go func() {
		checker.SetReady(true)
		app.Logger.WithField("port", cfg.Port).Info("starting server")
		if err := e.StartServer(server); err != nil && err != http.ErrServerClosed {
			app.Logger.WithError(err).Error("server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	checker.SetReady(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		app.Logger.WithError(err).Error("failed to shut down server")
	}
}
