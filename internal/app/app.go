package app

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"vehiclesense/internal/clients"
	"vehiclesense/internal/config"
	httpserver "vehiclesense/internal/http"
	"vehiclesense/internal/http/handlers"
	"vehiclesense/internal/imagestore"
	redisstore "vehiclesense/internal/redis"
	"vehiclesense/internal/repository"
	"vehiclesense/internal/service"
	"vehiclesense/internal/ws"
	libdb "vehiclesense/libs/db"
	libredis "vehiclesense/libs/redis"
)

// App wires the vehiclesense service dependencies.
type App struct {
	server      *httpserver.Server
	wsManager   *ws.Manager
	db          *sql.DB
	redisClient *redis.Client
	logger      *zap.Logger
}

// New constructs the application graph.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	sqlDB, err := libdb.NewPostgresDB(cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	if err := repository.Migrate(ctx, sqlDB); err != nil {
		sqlDB.Close()
		return nil, err
	}

	// redis is optional; without it session lookups go straight to postgres
	var redisClient *redis.Client
	var activeCache service.ActiveSessionCache
	if cfg.Redis.Addr != "" {
		redisClient, err = libredis.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			sqlDB.Close()
			return nil, err
		}
		activeCache = redisstore.NewStore(redisClient, cfg.SessionTimeout())
	}

	crops, err := imagestore.NewStore(cfg.Images.Dir)
	if err != nil {
		closeAll(sqlDB, redisClient)
		return nil, err
	}

	var lookup service.PlateLookupClient
	if cfg.Lookup.BaseURL != "" {
		lookup = clients.NewExciseClient(cfg.Lookup.BaseURL, clients.NewDefaultHTTPClient(cfg.LookupTimeout()))
	}

	sessionRepo := repository.NewSessionRepository(sqlDB)
	detectionRepo := repository.NewDetectionRepository(sqlDB)
	ownerRepo := repository.NewOwnerCacheRepository(sqlDB)
	residentRepo := repository.NewResidentRepository(sqlDB)

	ownerDirectory := service.NewOwnerDirectory(ownerRepo, lookup, cfg.LookupCacheTTL(), logger)
	lifecycle := service.NewLifecycleManager(
		sessionRepo,
		detectionRepo,
		ownerDirectory,
		crops,
		activeCache,
		cfg.SessionTimeout(),
		logger,
	)

	wsManager := ws.NewManager(30 * time.Second)
	wsServer := ws.NewServer(wsManager, lifecycle, 10*time.Second, logger)

	detectionsHandler := handlers.NewDetectionsHandler(lifecycle, logger)
	residentsHandler := handlers.NewResidentsHandler(residentRepo, logger)

	routes := httpserver.Routes{
		DetectionSubmit: detectionsHandler.HandleSubmit,
		DetectionUpload: detectionsHandler.HandleUpload,
		DetectionsList:  handlers.NewDetectionsListHandler(lifecycle),
		Sessions:        handlers.NewSessionsHandler(lifecycle),
		CurrentSession:  handlers.NewCurrentSessionHandler(lifecycle),
		Status:          handlers.NewStatusHandler(lifecycle, logger),
		ManualLookup:    handlers.NewManualLookupHandler(ownerDirectory, logger),
		ResidentCreate:  residentsHandler.HandleCreate,
		ResidentsList:   residentsHandler.HandleList,
		DetectorStream:  wsServer.HandleStream,
		Health:          handlers.NewHealthHandler(),
		StaticImages:    http.FileServer(http.Dir(cfg.Images.Dir)),
	}

	router := httpserver.RequestLogger(logger, httpserver.NewRouter(routes))
	server := httpserver.NewServer(cfg.HTTPAddress(), router, logger)

	return &App{
		server:      server,
		wsManager:   wsManager,
		db:          sqlDB,
		redisClient: redisClient,
		logger:      logger,
	}, nil
}

// Run starts the HTTP server and the camera keepalive loop.
func (a *App) Run(ctx context.Context) error {
	go a.wsManager.Start(ctx)
	return a.server.Run(ctx)
}

// Close releases resources.
func (a *App) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("failed to close db", zap.Error(err))
		}
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
}

func closeAll(db *sql.DB, redisClient *redis.Client) {
	if db != nil {
		db.Close()
	}
	if redisClient != nil {
		redisClient.Close()
	}
}
