package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/bigkaa/workrecords/internal/api/handlers"
	apimw "github.com/bigkaa/workrecords/internal/api/middleware"
	"github.com/bigkaa/workrecords/internal/api/openapi"
	"github.com/bigkaa/workrecords/internal/config"
	"github.com/bigkaa/workrecords/internal/database"
	"github.com/bigkaa/workrecords/internal/media"
	"github.com/bigkaa/workrecords/internal/repository"
	"github.com/bigkaa/workrecords/internal/server"
	"github.com/bigkaa/workrecords/internal/service"
)

// connectTimeout — таймаут подключения к хранилищу записей при старте.
const connectTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Запустить HTTP-сервер",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

// recordStore — открытое хранилище записей и связанные с ним ресурсы.
type recordStore struct {
	repo     repository.RecordRepository
	checkers []handlers.ReadinessChecker
	closers  []func()
}

func (s *recordStore) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	logger.Info("Work Records запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("store_driver", cfg.StoreDriver),
	)

	ctx := context.Background()

	// 1. Хранилище записей
	store, err := openRecordStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.close()

	// 2. Медиа-хранилище
	mediaStore, localStore, err := openMediaStore(cfg, logger)
	if err != nil {
		return err
	}
	constraints := media.Constraints{
		MaxFileSize: cfg.MediaMaxFileSize,
		MaxFiles:    cfg.MediaMaxFiles,
	}

	// 3. Сервисы
	recordSvc := service.NewRecordService(store.repo, mediaStore, constraints, cfg.MediaTimeout, logger)
	statsSvc := service.NewStatsService(store.repo, logger)

	// 4. OpenAPI документ
	openapiJSON, err := openapi.JSON()
	if err != nil {
		return err
	}

	// 5. Handlers
	var opener handlers.MediaOpener
	if localStore != nil {
		opener = localStore
	}
	h := server.Handlers{
		Records: handlers.NewRecordsHandler(recordSvc, statsSvc, constraints, logger),
		Health:  handlers.NewHealthHandler(store.checkers...),
		System:  handlers.NewSystemHandler(openapiJSON, opener, logger),
	}

	// 6. JWT для изменяющих запросов (опционально)
	var auth func(http.Handler) http.Handler
	if cfg.AuthEnabled() {
		jwtAuth, err := apimw.NewJWTAuth(cfg.AuthJWKSURL, cfg.AuthIssuer, cfg.AuthJWKSRefreshInterval, logger)
		if err != nil {
			return fmt.Errorf("инициализация JWT: %w", err)
		}
		auth = jwtAuth.Middleware(http.MethodPost, http.MethodPut, http.MethodDelete)
		logger.Info("JWT аутентификация настроена", slog.String("jwks_url", cfg.AuthJWKSURL))
	} else {
		logger.Warn("WR_AUTH_JWKS_URL не задан, изменяющие запросы выполняются без аутентификации")
	}

	// 7. HTTP-сервер
	srv := server.New(cfg, logger, h, auth,
		chimw.RequestID,
		chimw.Recoverer,
		apimw.MetricsMiddleware(),
		apimw.RequestLogger(logger),
		apimw.CORS(cfg.CORSAllowedOrigins),
	)

	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Work Records остановлен")
	return nil
}

// openRecordStore подключает хранилище записей выбранного драйвера.
func openRecordStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*recordStore, error) {
	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		if err := database.Migrate(cfg, logger); err != nil {
			return nil, err
		}
		pool, err := database.Connect(connectCtx, cfg, logger)
		if err != nil {
			return nil, err
		}
		store := &recordStore{
			repo:     repository.NewPostgresRecordRepository(pool),
			checkers: []handlers.ReadinessChecker{database.NewReadinessChecker(pool)},
			closers:  []func(){pool.Close},
		}
		startDephealth(ctx, cfg, logger, pool, store)
		return store, nil

	case config.StoreDriverMongo:
		client, coll, err := database.ConnectMongo(connectCtx, cfg, logger)
		if err != nil {
			return nil, err
		}
		if err := repository.EnsureMongoIndexes(connectCtx, coll); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, err
		}
		return &recordStore{
			repo:     repository.NewMongoRecordRepository(coll),
			checkers: []handlers.ReadinessChecker{database.NewMongoReadinessChecker(client)},
			closers: []func(){func() {
				_ = client.Disconnect(context.Background())
			}},
		}, nil

	default:
		logger.Warn("Используется in-memory хранилище записей, данные не сохраняются между перезапусками")
		return &recordStore{repo: repository.NewMemoryRecordRepository()}, nil
	}
}

// startDephealth запускает мониторинг PostgreSQL через topologymetrics.
// Ошибки не фатальны: сервис работает без мониторинга зависимостей.
func startDephealth(ctx context.Context, cfg *config.Config, logger *slog.Logger, pool *pgxpool.Pool, store *recordStore) {
	sqlDB := stdlib.OpenDBFromPool(pool)
	store.closers = append(store.closers, func() { _ = sqlDB.Close() })

	svc, err := service.NewDephealthService(
		"workrecords",
		cfg.DephealthGroup,
		sqlDB,
		cfg.DatabaseURL("postgres"),
		cfg.DephealthCheckInterval,
		logger,
	)
	if err != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", err.Error()),
		)
		return
	}
	if err := svc.Start(ctx); err != nil {
		logger.Warn("Ошибка запуска topologymetrics", slog.String("error", err.Error()))
		return
	}
	store.closers = append(store.closers, svc.Stop)
	logger.Info("topologymetrics запущен",
		slog.String("check_interval", cfg.DephealthCheckInterval.String()),
	)
}

// openMediaStore выбирает медиа-хранилище: Cloudinary при заданных
// учётных данных, иначе локальная директория.
func openMediaStore(cfg *config.Config, logger *slog.Logger) (media.Store, *media.LocalStore, error) {
	if cfg.CloudinaryConfigured() {
		store, err := media.NewCloudinaryStore(
			cfg.CloudinaryCloudName,
			cfg.CloudinaryAPIKey,
			cfg.CloudinaryAPISecret,
			cfg.MediaFolder,
			cfg.MediaMaxDimension,
		)
		if err != nil {
			return nil, nil, fmt.Errorf("инициализация Cloudinary: %w", err)
		}
		logger.Info("Медиа-хранилище: Cloudinary",
			slog.String("cloud_name", cfg.CloudinaryCloudName),
			slog.String("folder", cfg.MediaFolder),
		)
		return store, nil, nil
	}

	logger.Warn("Учётные данные Cloudinary не заданы, изображения сохраняются локально",
		slog.String("dir", cfg.MediaDir),
	)
	local, err := media.NewLocalStore(cfg.MediaDir, cfg.PublicURL, cfg.MediaMaxDimension)
	if err != nil {
		return nil, nil, fmt.Errorf("инициализация локального медиа-хранилища: %w", err)
	}
	return local, local, nil
}
