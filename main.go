package main

import (
	"context"
	"log"
	"net/http"

	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/tracelens-io/tracelens-engine/pkg/auth"
	"github.com/tracelens-io/tracelens-engine/pkg/config"
	"github.com/tracelens-io/tracelens-engine/pkg/database"
	"github.com/tracelens-io/tracelens-engine/pkg/handlers"
	"github.com/tracelens-io/tracelens-engine/pkg/logging"
	"github.com/tracelens-io/tracelens-engine/pkg/repositories"
	"github.com/tracelens-io/tracelens-engine/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.NewLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("base_url", cfg.BaseURL),
		zap.Bool("auth_verification", cfg.Auth.EnableVerification),
		zap.String("database_host", cfg.Database.Host),
		zap.String("database_name", cfg.Database.Database))

	ctx := context.Background()

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.URL(),
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Migrations run over a database/sql handle borrowed from the pool.
	migrationDB := stdlib.OpenDBFromPool(db.Pool)
	if err := database.RunMigrations(migrationDB, cfg.MigrationsPath, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}
	if err := migrationDB.Close(); err != nil {
		logger.Warn("Failed to close migration connection", zap.Error(err))
	}

	jwksClient, err := auth.NewJWKSClient(&auth.JWKSConfig{
		EnableVerification: cfg.Auth.EnableVerification,
		JWKSEndpoints:      cfg.Auth.JWKSEndpoints,
	})
	if err != nil {
		logger.Fatal("Failed to create JWKS client", zap.Error(err))
	}
	defer jwksClient.Close()

	authService := auth.NewAuthService(jwksClient, logger)
	authMiddleware := auth.NewMiddleware(authService, logger)

	projectRepo := repositories.NewProjectRepository(db)
	tableRepo := repositories.NewTableRepository(db)
	columnRepo := repositories.NewColumnRepository(db)
	roleRepo := repositories.NewRoleRepository(db)
	flowRepo := repositories.NewFlowRepository(db)
	nodeRepo := repositories.NewFlowNodeRepository(db)
	edgeRepo := repositories.NewFlowEdgeRepository(db)
	mappingRepo := repositories.NewCrudMappingRepository(db)

	catalogService := services.NewCatalogService(projectRepo, tableRepo, columnRepo, logger)
	roleService := services.NewRoleService(roleRepo, nodeRepo, logger)
	flowService := services.NewFlowService(flowRepo, nodeRepo, edgeRepo, roleRepo, logger)
	mappingService := services.NewCrudMappingService(mappingRepo, columnRepo, tableRepo, roleRepo, flowRepo, nodeRepo, logger)

	mux := http.NewServeMux()

	handlers.NewHealthHandler(cfg, db, logger).RegisterRoutes(mux)
	handlers.NewProjectsHandler(catalogService, logger).RegisterRoutes(mux, authMiddleware)
	handlers.NewTablesHandler(catalogService, logger).RegisterRoutes(mux, authMiddleware)
	handlers.NewRolesHandler(roleService, logger).RegisterRoutes(mux, authMiddleware)
	handlers.NewFlowsHandler(flowService, logger).RegisterRoutes(mux, authMiddleware)
	handlers.NewMappingsHandler(mappingService, logger).RegisterRoutes(mux, authMiddleware)

	addr := cfg.BindAddr + ":" + cfg.Port
	logger.Info("Starting tracelens-engine",
		zap.String("addr", addr),
		zap.String("version", cfg.Version),
		zap.Bool("tls", cfg.TLSCertPath != ""))

	if cfg.TLSCertPath != "" {
		err = http.ListenAndServeTLS(addr, cfg.TLSCertPath, cfg.TLSKeyPath, mux)
	} else {
		err = http.ListenAndServe(addr, mux)
	}
	logger.Fatal("Server failed", zap.Error(err))
}
