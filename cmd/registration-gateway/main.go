// main.go — точка входа Registration Gateway.
// Сборка сервиса: конфигурация, логгер, PostgreSQL (миграции + пул),
// кэш прав, клиент каталога, конвейер регистрации, удаление,
// аутентификация, OpenAPI-контракт, мониторинг зависимостей, HTTP-сервер.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/stdlib"

	"github.com/arturkryukov/stacreg/internal/api/handlers"
	"github.com/arturkryukov/stacreg/internal/api/middleware"
	"github.com/arturkryukov/stacreg/internal/api/openapi"
	"github.com/arturkryukov/stacreg/internal/catalogue"
	"github.com/arturkryukov/stacreg/internal/config"
	"github.com/arturkryukov/stacreg/internal/database"
	"github.com/arturkryukov/stacreg/internal/repository"
	"github.com/arturkryukov/stacreg/internal/server"
	"github.com/arturkryukov/stacreg/internal/service"
)

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	// 2. Настройка логгера
	logger := config.SetupLogger(cfg)
	logger.Info("Registration Gateway запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("profile", cfg.Profile),
	)

	// 3. Миграции БД
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Подключение к PostgreSQL (pgxpool)
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// 4.1 Адаптер pgxpool → *sql.DB для topologymetrics (connection pool mode)
	pgDB := stdlib.OpenDBFromPool(pool)
	defer pgDB.Close()

	// 5. Репозитории и кэш прав
	authRepo := repository.NewAuthRepository(pool)
	grantRepo := repository.NewGrantRepository(pool)
	grants := service.NewGrantService(grantRepo, cfg.GrantCacheSize, cfg.GrantCacheTTL)

	// 6. Клиент каталога
	catClient, err := catalogue.New(cfg.CatalogueTimeout, cfg.CatalogueCACert, logger)
	if err != nil {
		logger.Error("Ошибка создания клиента каталога", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 7. Конвейер регистрации и удаление
	validator := service.NewValidator(cfg.Extended(), cfg.RequiredExtension)
	resolver := service.NewResolver(cfg.Extended())
	ingestor := service.NewIngestor(validator, resolver, catClient, logger)
	deleter := service.NewDeleter(catClient, logger)

	// 8. Аутентификация: Basic всегда, Bearer — при заданном RG_JWKS_URL
	auth := middleware.NewAuth(authRepo, logger)
	if cfg.JWKSUrl != "" {
		if err := auth.EnableBearer(cfg.JWKSUrl, cfg.JWKSCACert, cfg.JWTIssuer,
			cfg.JWKSRefreshInterval, cfg.JWTLeeway); err != nil {
			logger.Error("Ошибка инициализации JWKS", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("Bearer-аутентификация включена",
			slog.String("jwks_url", cfg.JWKSUrl),
			slog.String("issuer", cfg.JWTIssuer),
		)
	}

	// 9. OpenAPI-контракт: валидация при старте, отдача на /openapi.json
	doc, err := openapi.Load()
	if err != nil {
		logger.Error("Ошибка OpenAPI-контракта", slog.String("error", err.Error()))
		os.Exit(1)
	}
	openapiHandler, err := openapi.Handler(doc)
	if err != nil {
		logger.Error("Ошибка OpenAPI-контракта", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 10. Обработчики API
	healthHandler := handlers.NewHealthHandler(database.NewReadinessChecker(pool))
	apiHandler := handlers.NewHandler(ingestor, deleter, grants, healthHandler, logger)

	// 11. topologymetrics — мониторинг зависимостей (PostgreSQL + каталог)
	dephealthSvc, dephealthErr := service.NewDephealthService(
		"registration-gateway",
		cfg.DephealthGroup,
		pgDB,
		cfg.DatabaseDSN(),
		cfg.CatalogueHealthURL,
		cfg.DephealthCheckInterval,
		logger,
	)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
	} else {
		if startErr := dephealthSvc.Start(ctx); startErr != nil {
			logger.Warn("Ошибка запуска topologymetrics",
				slog.String("error", startErr.Error()),
			)
		} else {
			defer dephealthSvc.Stop()
			logger.Info("topologymetrics запущен",
				slog.String("group", cfg.DephealthGroup),
				slog.String("check_interval", cfg.DephealthCheckInterval.String()),
			)
		}
	}

	// 12. HTTP-сервер
	srv := server.New(cfg, logger, apiHandler, openapiHandler,
		auth.Middleware(),
		middleware.RequestID(),
		middleware.RequestLogger(logger),
		middleware.MetricsMiddleware(),
	)

	// 13. Запуск сервера (блокирующий вызов с graceful shutdown)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Registration Gateway остановлен")
}
