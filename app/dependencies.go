package app

import (
	"context"
	"fmt"
	"os"

	"github.com/marcusvvm/chatbot-vertex-v2/auth"
	"github.com/marcusvvm/chatbot-vertex-v2/config"
	"github.com/marcusvvm/chatbot-vertex-v2/handlers"
	"github.com/marcusvvm/chatbot-vertex-v2/internal/vertex"
	"github.com/marcusvvm/chatbot-vertex-v2/middleware"
	"github.com/marcusvvm/chatbot-vertex-v2/repositories"
	"github.com/marcusvvm/chatbot-vertex-v2/repositories/filestore"
	"github.com/marcusvvm/chatbot-vertex-v2/repositories/postgres"
	"github.com/marcusvvm/chatbot-vertex-v2/services/corpusconfig"
	"github.com/marcusvvm/chatbot-vertex-v2/services/documents"
	"github.com/marcusvvm/chatbot-vertex-v2/services/lifecycle"
	"github.com/marcusvvm/chatbot-vertex-v2/services/presets"
	"github.com/marcusvvm/chatbot-vertex-v2/services/resolver"
	"go.uber.org/zap"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB // nil when the file backend is selected
	Logger *zap.Logger

	// Storage
	Store repositories.ConfigStore

	// Services
	Resolver     *resolver.Service
	Presets      *presets.Service
	CorpusConfig *corpusconfig.Service
	Lifecycle    *lifecycle.Coordinator
	Documents    *documents.Service

	// Vertex collaborators
	Vertex *vertex.Client

	// Auth
	AuthMiddleware *middleware.AuthMiddleware

	// Handlers
	CorpusConfigHandler *handlers.CorpusConfigHandler
	PresetHandler       *handlers.PresetHandler
	ChatHandler         *handlers.ChatHandler
	CorpusHandler       *handlers.CorpusHandler
	DocumentHandler     *handlers.DocumentHandler
	AdminHandler        *handlers.AdminHandler
	HealthHandler       *handlers.HealthHandler
}

// NewDependencies creates and wires up all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initStore(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	deps.initServices(cfg)

	if err := deps.Presets.Bootstrap(ctx); err != nil {
		return nil, fmt.Errorf("failed to bootstrap presets: %w", err)
	}

	// Prime the resolver so a broken fixed/global document fails startup
	// instead of the first request.
	if err := deps.Resolver.Reload(ctx); err != nil {
		return nil, fmt.Errorf("failed to load configuration layers: %w", err)
	}

	deps.initVertex(cfg)
	deps.initAuth(cfg)
	deps.initHandlers()

	logger.Info("all dependencies initialized successfully",
		zap.String("storage_backend", cfg.Storage.Backend))
	return deps, nil
}

// initStore selects and initializes the configuration store backend
func (d *Dependencies) initStore(ctx context.Context, cfg *config.Config) error {
	switch cfg.Storage.Backend {
	case "postgres":
		db, err := postgres.NewDB(cfg.Storage.Database, d.Logger)
		if err != nil {
			return err
		}
		if err := db.InitSchema(ctx); err != nil {
			return err
		}
		d.DB = db
		d.Store = postgres.NewStore(db, d.Logger)

	case "file":
		store, err := filestore.New(cfg.Storage.Dir, d.Logger)
		if err != nil {
			return err
		}
		d.Store = store

	default:
		return fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}

	d.Logger.Info("configuration store initialized",
		zap.String("backend", cfg.Storage.Backend))
	return nil
}

// initServices initializes the domain services
func (d *Dependencies) initServices(cfg *config.Config) {
	d.Resolver = resolver.NewService(d.Store, cfg.Resolver.CacheTTL, d.Logger)
	d.Presets = presets.NewService(d.Store, d.Logger)
	d.CorpusConfig = corpusconfig.NewService(d.Store, d.Resolver, d.Logger)
	d.Lifecycle = lifecycle.NewCoordinator(d.Store, d.Logger)
}

// initVertex initializes the Vertex AI client
func (d *Dependencies) initVertex(cfg *config.Config) {
	// VERTEX_ACCESS_TOKEN is a deployment-injected token (refreshed by the
	// sidecar). Absent token means corpus/chat endpoints fail upstream, which
	// is acceptable for config-only deployments.
	tokens := vertex.StaticTokenSource(os.Getenv("VERTEX_ACCESS_TOKEN"))
	d.Vertex = vertex.NewClient(cfg.Vertex, tokens, d.Logger)
	d.Documents = documents.NewService(d.Vertex, d.Logger)
}

// initAuth initializes JWT validation
func (d *Dependencies) initAuth(cfg *config.Config) {
	if cfg.Auth.JWTSecret == "" {
		d.Logger.Warn("JWT secret not configured, auth middleware will reject all requests")
		d.AuthMiddleware = middleware.NewAuthMiddleware(&rejectAllValidator{}, d.Logger)
		return
	}
	validator := auth.NewJWTValidator(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	d.AuthMiddleware = middleware.NewAuthMiddleware(validator, d.Logger)
}

// initHandlers initializes the HTTP handlers
func (d *Dependencies) initHandlers() {
	d.CorpusConfigHandler = handlers.NewCorpusConfigHandler(d.CorpusConfig, d.Logger)
	d.PresetHandler = handlers.NewPresetHandler(d.Presets, d.Logger)
	d.ChatHandler = handlers.NewChatHandler(d.Resolver, d.Store, d.Vertex, d.Logger)
	d.CorpusHandler = handlers.NewCorpusHandler(d.Vertex, d.Lifecycle, d.Logger)
	d.DocumentHandler = handlers.NewDocumentHandler(d.Documents, d.Logger)
	d.AdminHandler = handlers.NewAdminHandler(d.Resolver, d.Logger)

	var checker handlers.StorageChecker
	if d.DB != nil {
		checker = d.DB
	}
	d.HealthHandler = handlers.NewHealthHandler(checker, d.Logger)
}

// rejectAllValidator rejects all tokens (used when JWT is not configured)
type rejectAllValidator struct{}

func (*rejectAllValidator) ValidateToken(context.Context, string) (*middleware.Claims, error) {
	return nil, fmt.Errorf("authentication not configured")
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}

	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}

	return nil
}
