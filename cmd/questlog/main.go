package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/totegamma/questlog/internal/config"
	"github.com/totegamma/questlog/internal/infrastructure/providers"
	"github.com/totegamma/questlog/internal/infrastructure/repository"
	"github.com/totegamma/questlog/internal/present/rest"
	"github.com/totegamma/questlog/internal/service"
	"github.com/totegamma/questlog/internal/usecase"
)

func main() {
	configPath := flag.String("config", os.Getenv("QUESTLOG_CONFIG"), "path to config yaml")
	flag.Parse()

	conf, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx := context.Background()
	shutdown, err := providers.SetupTracing(ctx, conf.Server, "questlog")
	if err != nil {
		slog.Error("failed to set up tracing", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer shutdown(ctx)

	db, err := providers.NewDatabase(conf.Server)
	if err != nil {
		panic("failed to connect database: " + err.Error())
	}

	ttl, _ := conf.Server.CacheTTL()
	signal := service.NewSignalService(providers.NewRedis(conf.Server))

	entityRepo := repository.NewEntityRepository(db)
	relationRepo := repository.NewRelationRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)

	registry := usecase.NewEntityRegistry(entityRepo, ttl)
	relationUsecase := usecase.NewRelationUsecase(relationRepo, registry, signal)
	assignmentUsecase := usecase.NewAssignmentUsecase(assignmentRepo, registry, signal)
	graphUsecase := usecase.NewGraphUsecase(registry, relationRepo, assignmentRepo)

	handler := rest.NewHandler(registry, relationUsecase, assignmentUsecase, graphUsecase, signal)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	if conf.Server.EnableTrace {
		e.Use(otelecho.Middleware("questlog"))
	}

	handler.RegisterRoutes(e)

	e.Logger.Fatal(e.Start(conf.Server.Listen))
}
