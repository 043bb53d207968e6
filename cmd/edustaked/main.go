package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/edustake/edustake-core/client"
	"github.com/edustake/edustake-core/internal/config"
	"github.com/edustake/edustake-core/internal/infrastructure/database"
	"github.com/edustake/edustake-core/internal/infrastructure/localstore"
	"github.com/edustake/edustake-core/internal/infrastructure/repository"
	"github.com/edustake/edustake-core/internal/present/rest"
	"github.com/edustake/edustake-core/internal/present/rest/middleware"
	"github.com/edustake/edustake-core/internal/service"
	"github.com/edustake/edustake-core/internal/usecase"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	conf := config.Default()
	if len(os.Args) > 1 {
		loaded, err := config.Load(os.Args[1])
		if err != nil {
			panic("failed to load config: " + err.Error())
		}
		conf = loaded
	}

	db, err := database.NewSQLite(conf.Server.SQLitePath)
	if err != nil {
		panic("failed to open database")
	}
	err = database.MigrateSQLite(db)
	if err != nil {
		panic("failed to migrate database")
	}

	store := localstore.NewGormStore(db)

	var mc *memcache.Client
	if conf.Server.MemcachedAddr != "" {
		mc = database.NewMemcached(conf.Server.MemcachedAddr)
	}

	resourceRepo := repository.NewResourceRepository(store)
	chatRepo := repository.NewSavedChatRepository(store)
	messageRepo := repository.NewMessageRepository(store)
	historyRepo := repository.NewSearchHistoryRepository(store)
	profileRepo := repository.NewProfileRepository(store, mc)

	remote := client.New(conf.Remote.BaseURL)
	remote.SetTimeout(conf.Remote.Timeout())

	var signalService *service.SignalService
	var publisher usecase.Publisher = usecase.NopPublisher{}
	if conf.Server.RedisAddr != "" {
		rdb := database.NewRedis(conf.Server.RedisAddr, conf.Server.RedisPassword, conf.Server.RedisDB)
		signalService = service.NewSignalService(rdb)
		publisher = signalService
	}

	resourceUC := usecase.NewResourceUsecase(resourceRepo, remote, publisher)
	chatUC := usecase.NewSavedChatUsecase(chatRepo, publisher)
	messageUC := usecase.NewMessageUsecase(messageRepo, remote, publisher)
	historyUC := usecase.NewSearchHistoryUsecase(historyRepo, conf.Sync.HistoryLimit)
	profileUC := usecase.NewProfileUsecase(profileRepo)

	authService := service.NewAuthService(remote, store, profileRepo)
	syncService := service.NewSyncService(
		remote, store,
		resourceRepo, chatRepo, messageRepo, historyRepo, profileRepo,
		conf.Sync.HistoryLimit,
	)
	mirrorService := service.NewMirrorService(store, conf.Sync.MirrorInterval())
	sessionService := service.NewSessionService(authService, syncService, mirrorService, conf.Sync.PushInterval())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Older deployments left their data under the legacy keys. Importing
	// on every start is safe because the merge never duplicates.
	mirrorService.ImportAllLegacy(ctx)

	go mirrorService.Run(ctx)
	go sessionService.Run(ctx)

	e := echo.New()
	e.HidePort = true
	e.HideBanner = true
	e.Use(echomiddleware.Logger())
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())

	if conf.Server.EnableTrace {
		cleanup, err := setupTraceProvider(ctx, conf.Server.TraceEndpoint)
		if err != nil {
			panic("failed to setup tracer: " + err.Error())
		}
		defer cleanup()
		e.Use(otelecho.Middleware("edustake"))
	}

	authMiddleware := middleware.NewAuthMiddleware(authService)
	e.Use(authMiddleware.IdentifyRequester)

	handler := rest.NewHandler(
		sessionService,
		syncService,
		signalService,
		resourceUC,
		chatUC,
		messageUC,
		historyUC,
		profileUC,
	)
	handler.RegisterRoutes(e)

	go func() {
		err := e.Start(conf.Server.Addr)
		if err != nil {
			slog.Info(
				"server stopped",
				slog.String("error", err.Error()),
				slog.String("module", "main"),
			)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error(
			"failed to shutdown server",
			slog.String("error", err.Error()),
			slog.String("module", "main"),
		)
	}
}

func setupTraceProvider(ctx context.Context, endpoint string) (func(), error) {
	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", "edustake"),
		)),
	)
	otel.SetTracerProvider(provider)

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			slog.Error(
				"failed to shutdown tracer",
				slog.String("error", err.Error()),
				slog.String("module", "main"),
			)
		}
	}, nil
}
