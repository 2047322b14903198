// Package server contains the HTTP handlers of the CMS admin API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"cmsadmin/internal/bootstrap"
	"cmsadmin/internal/config"
	"cmsadmin/internal/featureflags"
	"cmsadmin/internal/middleware"
	"cmsadmin/internal/models"
	"cmsadmin/internal/repository"
	"cmsadmin/internal/service"
	"cmsadmin/internal/storage"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
)

const (
	corsAllowMethods = "GET, POST, PUT, DELETE, PATCH, OPTIONS"
	corsAllowHeaders = "Origin, X-Requested-With, Content-Type, Accept, Authorization"
	corsExpose       = "X-Total-Count, ETag"
)

// MsgRouteNotFound is returned for paths no route serves.
const MsgRouteNotFound = "Rota não encontrada"

// Server holds the dependencies of the HTTP API.
type Server struct {
	config            *config.Config
	repo              repository.DocumentRepository
	redis             *redis.Client
	media             storage.MediaStorage
	promMiddleware    *fiberprometheus.FiberPrometheus
	featureFlags      *featureflags.Manager
	authService       *service.AuthService
	collectionService *service.CollectionService
	mediaService      *service.MediaService
	app               *fiber.App
}

// NewServer opens the configured backends and builds a server around them.
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	rt, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{})
	if err != nil {
		return nil, err
	}
	return NewServerWithDeps(cfg, rt.Repo, rt.Redis, rt.Media), nil
}

// NewServerWithDeps builds a server over existing backends. redis may be nil.
func NewServerWithDeps(cfg *config.Config, repo repository.DocumentRepository, rdb *redis.Client, media storage.MediaStorage) *Server {
	flags := featureflags.NewManager(cfg.FeatureFlags)
	return &Server{
		config:         cfg,
		repo:           repo,
		redis:          rdb,
		media:          media,
		promMiddleware: middleware.InitMetrics("cmsadmin"),
		featureFlags:   flags,
		authService:    service.NewAuthService(repo, service.NewTokenIssuer(cfg)),
		collectionService: service.NewCollectionService(repo, service.CollectionOptions{
			Flags:         flags,
			HashPasswords: cfg.PasswordHashing,
		}),
		mediaService: service.NewMediaService(repo, media, cfg),
	}
}

// App builds the fiber application with middleware and routes installed.
func (s *Server) App() *fiber.App {
	if s.app != nil {
		return s.app
	}
	app := fiber.New(fiber.Config{
		AppName:      "CMS Admin API",
		BodyLimit:    int(2 * s.config.UploadMaxSizeBytes()),
		ErrorHandler: errorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

// SetupMiddleware configures global middleware on the provided Fiber app.
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}
	app.Use(helmet.New(helmet.Config{
		// Uploaded files are embedded by the admin SPA from another origin.
		CrossOriginResourcePolicy: "cross-origin",
	}))
	app.Use(middleware.StructuredLogger())

	// Every OPTIONS request is answered here with 200, preflight or not.
	app.Use(func(c *fiber.Ctx) error {
		if c.Method() != fiber.MethodOptions {
			return c.Next()
		}
		c.Set(fiber.HeaderAccessControlAllowOrigin, "*")
		c.Set(fiber.HeaderAccessControlAllowMethods, corsAllowMethods)
		c.Set(fiber.HeaderAccessControlAllowHeaders, corsAllowHeaders)
		return c.SendStatus(fiber.StatusOK)
	})
	app.Use(cors.New(cors.Config{
		AllowOrigins:  "*",
		AllowMethods:  corsAllowMethods,
		AllowHeaders:  corsAllowHeaders,
		ExposeHeaders: corsExpose,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        300,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return s.config.Env == "test"
		},
		LimitReached: func(c *fiber.Ctx) error {
			return models.RespondWithError(c, fiber.StatusTooManyRequests,
				models.NewRateLimitedError("Muitas requisições, tente novamente mais tarde"))
		},
	}))
}

// SetupRoutes configures all API routes.
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	app.Get("/swagger/*", swagger.HandlerDefault)

	app.Post("/login", middleware.RateLimit(s.redis, middleware.RateLimitOptions{
		Name:   "login",
		Limit:  s.config.LoginRateLimit,
		Window: time.Duration(s.config.LoginRateWindowSeconds) * time.Second,
		Bypass: s.config.Env == "test" || s.config.Env == "development",
	}), s.Login)

	session := middleware.Session(s.authService)
	app.Post("/upload", session, middleware.AuthRequired(), s.Upload)
	app.Get("/uploads/*", s.ServeUpload)
	app.Get("/feature-flags", session, s.GetFeatureFlags)

	writeGuard := middleware.AuthRequiredIf(s.config.RequireAuth)
	for _, name := range []string{
		models.CollectionPosts,
		models.CollectionCategories,
		models.CollectionUsers,
		models.CollectionMedia,
	} {
		group := app.Group("/"+name, session)
		group.Get("/", s.ListRecords(name))
		group.Get("/:id", s.GetRecord(name))
		group.Post("/", writeGuard, s.CreateRecord(name))
		group.Patch("/:id", writeGuard, s.PatchRecord(name))
		group.Put("/:id", writeGuard, s.ReplaceRecord(name))
		group.Delete("/:id", writeGuard, s.DeleteRecord(name))
	}

	// Settings is a singleton: no create or delete.
	settings := app.Group("/"+models.CollectionSettings, session)
	settings.Get("/", s.ListRecords(models.CollectionSettings))
	settings.Get("/:id", s.GetRecord(models.CollectionSettings))
	settings.Patch("/:id", writeGuard, s.PatchRecord(models.CollectionSettings))
	settings.Put("/:id", writeGuard, s.ReplaceRecord(models.CollectionSettings))

	app.Use(func(c *fiber.Ctx) error {
		return models.RespondWithError(c, fiber.StatusNotFound, models.NewNotFoundMessage(MsgRouteNotFound))
	})
}

// errorHandler renders errors returned by handlers. Anything that is not an
// AppError or a fiber.Error becomes a generic 500.
func errorHandler(c *fiber.Ctx, err error) error {
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		if appErr.Code == models.CodeInternal {
			middleware.Logger.ErrorContext(c.UserContext(), "internal error", "error", err.Error())
		}
		return models.RespondWithError(c, appErr.Status(), appErr)
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		switch fiberErr.Code {
		case fiber.StatusNotFound:
			return models.RespondWithError(c, fiber.StatusNotFound, models.NewNotFoundMessage(MsgRouteNotFound))
		case fiber.StatusRequestEntityTooLarge:
			// bodies past BodyLimit never reach the upload handler
			return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError(service.MsgFileTooLarge))
		}
		return models.RespondWithError(c, fiberErr.Code, fiberErr)
	}

	middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", "error", err.Error())
	return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests. Redis is optional, so a
// missing client is reported but does not fail the probe.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	storeStatus := "healthy"
	if err := s.repo.Ping(ctx); err != nil {
		storeStatus = "unhealthy"
	}

	redisStatus := "disabled"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	mediaStatus := "healthy"
	if s.media == nil {
		mediaStatus = "unhealthy"
	} else if err := s.mediaService.Ping(ctx); err != nil {
		mediaStatus = "unhealthy"
	}

	status := "healthy"
	code := fiber.StatusOK
	if storeStatus != "healthy" || redisStatus == "unhealthy" || mediaStatus != "healthy" {
		status = "unhealthy"
		code = fiber.StatusServiceUnavailable
	}

	return c.Status(code).JSON(fiber.Map{
		"status": status,
		"checks": fiber.Map{
			"store": storeStatus,
			"redis": redisStatus,
			"media": mediaStatus,
		},
		"time": time.Now(),
	})
}

// Listen serves the API on the configured port until Shutdown is called.
func (s *Server) Listen() error {
	app := s.App()
	log.Printf("Server starting on port %s...", s.config.Port)
	if err := app.Listen(":" + s.config.Port); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server and closes the backends.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown http server: %w", err))
		}
	}
	if s.repo != nil {
		if err := s.repo.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	return errors.Join(errs...)
}
