package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go.uber.org/zap"

	"qcportal/docs"
	"qcportal/internal/app"
	"qcportal/internal/config"
	handlers "qcportal/internal/http/handler"
	"qcportal/internal/http/middleware"
	"qcportal/internal/logger"
	"qcportal/internal/otel"
)

// @title QC Portal API
// @version 1.0
// @BasePath /
func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()

	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx, log)
	if err != nil {
		log.Fatal("failed to initialize tracing", zap.Error(err))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a, err := app.New(ctx, cfg, log, reg)
	if err != nil {
		log.Fatal("failed to initialize application", zap.Error(err))
	}

	promMiddleware, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		log.Fatal("failed to register http metrics", zap.Error(err))
	}

	srv := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
		BodyLimit:    64 << 20,
	})

	// Register global middleware
	srv.Use(fiberrecover.New())
	srv.Use(otelfiber.Middleware())
	srv.Use(middleware.RequestID())
	srv.Use(middleware.Logger(log))
	srv.Use(promMiddleware.Handler())

	srv.Get("/metrics", func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))(c.Context())
		return nil
	})

	// Swagger UI with dynamic host and scheme
	srv.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})

	deps := handlers.Deps{
		Models:     a.Models,
		Records:    a.Records,
		Search:     a.Search,
		Imports:    a.Imports,
		Images:     a.Blobs,
		Vocabulary: a.Vocabulary,
	}
	if a.DB != nil {
		deps.DB = a.DB
	}
	handlers.RegisterRoutes(srv, deps)

	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		if err := srv.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error("server shutdown", zap.Error(err))
		}
	}()

	addr := ":" + cfg.Port
	log.Info("listening", zap.String("addr", addr))
	if err := srv.Listen(addr); err != nil {
		log.Error("failed to start server", zap.Error(err))
	}

	if err := a.Close(); err != nil {
		log.Error("close application", zap.Error(err))
	}
	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdownTracing(flushCtx); err != nil {
		log.Error("tracing shutdown", zap.Error(err))
	}
}
