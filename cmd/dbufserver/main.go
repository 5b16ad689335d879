// Command dbufserver is the optional HTTP host of SPEC_FULL §4.15: a
// thin gofiber adapter exposing POST /query over the Query Dispatcher
// and GET /metrics over the Prometheus registry, grounded on the
// teacher's views/demo/server.go fiber bootstrap (app.New, logger and
// recover middleware, app.Listen).
package main

import (
	"context"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/arkemis/dbufdb/internal/dispatch"
	"github.com/arkemis/dbufdb/internal/loader"
	"github.com/arkemis/dbufdb/internal/schema"
	"github.com/arkemis/dbufdb/internal/table"
	"github.com/arkemis/dbufdb/internal/wire"
	"github.com/arkemis/dbufdb/pkg/config"
	"github.com/arkemis/dbufdb/pkg/logger"
	"github.com/arkemis/dbufdb/pkg/metrics"
	"github.com/arkemis/dbufdb/pkg/tracing"
)

func main() {
	cfg := config.Load()

	log, err := (&logger.LoggerFactory{}).NewLogger(logger.Config{
		Type:        logger.LoggerType(cfg.Logger.Type),
		Level:       logger.ParseLogLevel(cfg.Logger.Level),
		Output:      os.Stdout,
		Format:      cfg.Logger.Format,
		ServiceName: cfg.App.Name,
		Version:     cfg.App.Version,
	})
	if err != nil {
		panic(err)
	}
	defer log.Close()

	metricsSvc, err := metrics.NewMetricsService(metrics.MetricsConfig{
		Provider:  "prometheus",
		Namespace: cfg.Metrics.Namespace,
		Enabled:   cfg.Metrics.Enabled,
	})
	if err != nil {
		log.Fatal("metrics init failed", logger.Fields{"err": err.Error()})
	}
	defer metricsSvc.Close()

	tracer, err := tracing.NewService(tracing.Config{
		ServiceName:   cfg.Tracing.ServiceName,
		ExporterType:  tracing.ExporterType(cfg.Tracing.ExporterType),
		Endpoint:      cfg.Tracing.OTLPEndpoint,
		SamplingRatio: cfg.Tracing.SamplingRatio,
		Enabled:       cfg.Tracing.Enabled,
	})
	if err != nil {
		log.Fatal("tracing init failed", logger.Fields{"err": err.Error()})
	}
	defer tracer.Shutdown(context.Background())

	registry := schema.New()
	ld := loader.New(registry)
	catalog := table.New(registry)
	d := dispatch.New(registry, ld, catalog, metricsSvc, tracer, log)

	app := fiber.New(fiber.Config{AppName: "dbufdb query host"})
	app.Use(fiberlogger.New())
	app.Use(recover.New())

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	app.Get("/metrics", adaptor.HTTPHandler(metricsSvc.Handler()))

	app.Post("/query", func(c *fiber.Ctx) error {
		q, err := wire.DecodeQuery(c.Body())
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		res, err := d.Dispatch(c.Context(), q)
		if err != nil {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(wire.FromResult(res))
	})

	port := cfg.Server.Port
	if port == "" {
		port = "8080"
	}
	log.Info("dbufdb query host starting", logger.Fields{"port": port})
	if err := app.Listen(":" + port); err != nil {
		log.Fatal("server exited", logger.Fields{"err": err.Error()})
	}
}
