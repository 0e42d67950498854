package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	appControllers "github.com/yigit/notespace/internal/app/controllers"
	appMigrations "github.com/yigit/notespace/internal/app/migrations"
	"github.com/yigit/notespace/internal/app/models/dto"
	"github.com/yigit/notespace/internal/app/pipeline"
	appRepos "github.com/yigit/notespace/internal/app/repositories"
	appRoutes "github.com/yigit/notespace/internal/app/routes"
	appServices "github.com/yigit/notespace/internal/app/services"
	"github.com/yigit/notespace/internal/config"
	"github.com/yigit/notespace/internal/db"
	appMiddleware "github.com/yigit/notespace/internal/middleware"
	pkgAuth "github.com/yigit/notespace/internal/pkg/auth"
	"github.com/yigit/notespace/internal/pkg/filestorage"
	"github.com/yigit/notespace/internal/pkg/logger"
	"github.com/yigit/notespace/internal/pkg/summarizer"
	"github.com/yigit/notespace/internal/pkg/websocket"
	"github.com/yigit/notespace/internal/seed"
)

// DefaultConfigPath is used when no --config flag is given
var DefaultConfigPath = filepath.Join("configs", "config.yaml")

// Dependencies holds all the application dependencies
type Dependencies struct {
	Repos       *appRepos.Repositories
	Storage     filestorage.FileStorage
	Summarizer  summarizer.Summarizer
	Hub         *websocket.Hub
	Processor   *pipeline.Processor
	Queue       *pipeline.Queue
	JWTService  *pkgAuth.JWTService
	Services    *appServices.Services
	Controllers *appRoutes.Controllers

	AuthMiddleware *appMiddleware.AuthMiddleware
	Logger         zerolog.Logger
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger(configPath string) (*config.Config, zerolog.Logger, error) {
	if configPath == "" {
		configPath = DefaultConfigPath
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Str("path", configPath).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	lgr := logger.Configure(logger.Config{
		Level:  logger.LogLevel(strings.ToLower(cfg.Logging.Level)),
		Format: logger.Format(strings.ToLower(cfg.Logging.Format)),
	})
	lgr.Info().Str("logLevel", cfg.Logging.Level).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// ConnectDatabase opens the connection pool and checks that it answers.
func ConnectDatabase(cfg *config.Config, lgr zerolog.Logger) (*db.PostgresDB, error) {
	lgr.Info().Msg("Establishing database connection...")
	database, err := db.NewPostgresDB(cfg)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to connect to database")
		return nil, err
	}

	// Verify the pool actually answers
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := database.Pool.Ping(ctx); err != nil {
		lgr.Error().Err(err).Msg("Failed to ping database")
		database.Close()
		return nil, err
	}
	lgr.Info().Msg("Database connection successfully established.")
	return database, nil
}

// RunMigrations applies every pending embedded migration.
func RunMigrations(ctx context.Context, conn db.DBTX, lgr zerolog.Logger) error {
	lgr.Info().Msg("Running database migrations...")
	if err := appMigrations.NewMigrator(conn, lgr).Migrate(ctx); err != nil {
		lgr.Error().Err(err).Msg("Database migration error")
		return fmt.Errorf("database migrations failed: %w", err)
	}
	lgr.Info().Msg("Database migrations successfully applied.")
	return nil
}

// SetupDatabase connects, migrates and seeds the database.
func SetupDatabase(cfg *config.Config, lgr zerolog.Logger) (*db.PostgresDB, error) {
	database, err := ConnectDatabase(cfg, lgr)
	if err != nil {
		return nil, err
	}

	// Apply schema migrations
	ctx := context.Background()
	if err := RunMigrations(ctx, database.Pool, lgr); err != nil {
		database.Close()
		return nil, err
	}

	// Seed default topic, non-fatal
	if err := seed.CreateDefaultData(ctx, appRepos.NewTopicRepository(database.Pool), cfg.Seed.DefaultTopic, lgr); err != nil {
		lgr.Error().Err(err).Msg("Failed to create default data, proceeding anyway...")
	}

	return database, nil
}

// NewFileStorage builds the configured file store
func NewFileStorage(ctx context.Context, cfg *config.Config) (filestorage.FileStorage, error) {
	switch strings.ToLower(cfg.Storage.Driver) {
	case "s3":
		return filestorage.NewS3Storage(ctx, filestorage.S3Config{
			Bucket:    cfg.Storage.S3.Bucket,
			Region:    cfg.Storage.S3.Region,
			Endpoint:  cfg.Storage.S3.Endpoint,
			AccessKey: cfg.Storage.S3.AccessKey,
			SecretKey: cfg.Storage.S3.SecretKey,
			Prefix:    cfg.Storage.S3.Prefix,
		})
	default:
		return filestorage.NewLocalStorage(cfg.Storage.LocalPath)
	}
}

// BuildDependencies initializes application repositories, services, and controllers.
func BuildDependencies(ctx context.Context, cfg *config.Config, conn db.DBTX, lgr zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Logger: lgr}

	// Initialize repositories
	deps.Repos = appRepos.NewRepositories(conn)

	// Initialize file storage
	var err error
	deps.Storage, err = NewFileStorage(ctx, cfg)
	if err != nil {
		lgr.Error().Err(err).Str("driver", cfg.Storage.Driver).Msg("Failed to initialize file storage")
		return nil, fmt.Errorf("failed to initialize file storage: %w", err)
	}

	// Initialize summarizer; a missing API key falls back to the noop provider
	deps.Summarizer, err = summarizer.New(ctx, summarizer.Config{
		Provider:    cfg.Summarizer.Provider,
		APIKey:      cfg.Summarizer.APIKey,
		Model:       cfg.Summarizer.Model,
		BaseURL:     cfg.Summarizer.BaseURL,
		Temperature: cfg.Summarizer.Temperature,
		MaxTokens:   cfg.Summarizer.MaxTokens,
	}, logger.Component("summarizer"))
	if err != nil {
		lgr.Error().Err(err).Str("provider", cfg.Summarizer.Provider).Msg("Failed to initialize summarizer")
		return nil, fmt.Errorf("failed to initialize summarizer: %w", err)
	}
	lgr.Info().Str("provider", deps.Summarizer.Name()).Msg("Summarizer configured")

	// Status events flow processor -> hub -> websocket clients
	deps.Hub = websocket.NewHub(logger.Component("websocket"))

	deps.Processor = pipeline.NewProcessor(
		deps.Repos.NoteRepository,
		deps.Repos.MetaDocumentRepository,
		deps.Storage,
		deps.Summarizer,
		deps.Hub,
		pipeline.Config{
			ExtractConcurrency: cfg.Pipeline.ExtractConcurrency,
			ChunkSizeTokens:    cfg.Pipeline.ChunkSizeTokens,
			ChunkOverlapTokens: cfg.Pipeline.ChunkOverlapTokens,
			SummarizerTimeout:  cfg.SummarizerTimeout(),
		},
		logger.Component("pipeline"),
	)
	deps.Queue = pipeline.NewQueue(deps.Processor, cfg.Pipeline.Workers, cfg.Pipeline.QueueSize, logger.Component("queue"))

	// Initialize JWT service
	deps.JWTService = pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		SecretKey:      cfg.JWT.Secret,
		AccessTokenExp: cfg.AccessTokenTTL(),
		TokenIssuer:    cfg.JWT.Issuer,
	})

	// Initialize services
	deps.Services = &appServices.Services{
		AuthService: appServices.NewAuthService(
			deps.Repos.UserRepository,
			deps.Repos.TokenRepository,
			deps.JWTService,
			pkgAuth.NewPasswordHasher(cfg.Auth.BcryptCost),
			cfg.Auth.MinPasswordLength,
			lgr,
		),
		TopicService: appServices.NewTopicService(deps.Repos.TopicRepository, lgr),
		NoteService: appServices.NewNoteService(
			deps.Repos.NoteRepository,
			deps.Repos.TopicRepository,
			deps.Storage,
			appServices.UploadConfig{
				MaxFileSize:       cfg.Upload.MaxFileSize,
				AllowedExtensions: cfg.Upload.AllowedExtensions,
			},
			lgr,
		),
		MetaDocumentService: appServices.NewMetaDocumentService(
			deps.Repos.MetaDocumentRepository,
			deps.Repos.TopicRepository,
			deps.Repos.NoteRepository,
			deps.Queue,
			deps.Hub,
			lgr,
		),
	}

	// Initialize middleware
	deps.AuthMiddleware = appMiddleware.NewAuthMiddleware(deps.JWTService, deps.Services.AuthService)

	// Initialize controllers
	deps.Controllers = &appRoutes.Controllers{
		Auth:   appControllers.NewAuthController(deps.Services.AuthService, lgr),
		Topic:  appControllers.NewTopicController(deps.Services.TopicService, lgr),
		Upload: appControllers.NewUploadController(deps.Services.NoteService, cfg.Upload.MaxFileSize, cfg.Upload.AllowAnonymous, lgr),
		MetaDocument: appControllers.NewMetaDocumentController(
			deps.Services.MetaDocumentService,
			deps.Services.TopicService,
			websocket.NewHandler(deps.Hub, cfg.Server.AllowedOrigins, logger.Component("websocket")),
			lgr,
		),
	}

	return deps, nil
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) *gin.Engine {
	if strings.ToLower(cfg.Server.Mode) == "production" {
		gin.SetMode(gin.ReleaseMode)
		lgr.Info().Msg("Setting Gin mode to release")
	} else {
		gin.SetMode(gin.DebugMode)
		lgr.Info().Msg("Setting Gin mode to debug")
	}

	// Global middleware
	router := gin.New()
	router.Use(appMiddleware.RequestLogger(logger.Component("http")), appMiddleware.Recovery(lgr))
	router.Use(cors.New(corsConfig(cfg.Server.AllowedOrigins)))

	// Setup routes
	appRoutes.SetupSwagger(router, "localhost:"+cfg.Server.Port)
	appRoutes.SetupRouter(router, deps.Controllers, deps.AuthMiddleware, cfg.Upload.AllowAnonymous)

	setupStaticFileServing(router, cfg.Server.StaticDir, lgr)

	return router
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Disposition"},
		MaxAge:        12 * time.Hour,
	}
	// A wildcard entry opens CORS to every origin
	for _, o := range origins {
		if o == "*" {
			c.AllowAllOrigins = true
			return c
		}
	}
	if len(origins) == 0 {
		c.AllowAllOrigins = true
		return c
	}
	// Explicit origins may send credentials
	c.AllowOrigins = origins
	c.AllowCredentials = true
	return c
}

// setupStaticFileServing serves the single page app from dir. Unknown paths
// outside /api fall back to index.html so client side routes resolve.
func setupStaticFileServing(router *gin.Engine, dir string, lgr zerolog.Logger) {
	if dir == "" {
		return
	}
	index := filepath.Join(dir, "index.html")
	if _, err := os.Stat(index); err != nil {
		lgr.Warn().Err(err).Str("path", dir).Msg("Static directory has no index.html, not serving frontend")
		return
	}

	files := http.Dir(dir)
	fileServer := http.FileServer(files)
	router.NoRoute(func(c *gin.Context) {
		// API misses stay JSON errors
		p := c.Request.URL.Path
		if strings.HasPrefix(p, "/api/") || c.Request.Method != http.MethodGet {
			c.JSON(http.StatusNotFound, dto.NewErrorResponse(dto.ErrorCodeResourceNotFound, "Resource not found"))
			return
		}
		// Serve real assets as they are
		if f, err := files.Open(p); err == nil {
			stat, statErr := f.Stat()
			f.Close()
			if statErr == nil && !stat.IsDir() {
				fileServer.ServeHTTP(c.Writer, c.Request)
				return
			}
		}
		// Everything else is a client side route
		c.File(index)
	})
	lgr.Info().Str("path", dir).Msg("Static file serving configured for frontend")
}
