// Package server contains the HTTP handlers and page rendering for the yatube site.
package server

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"time"

	"yatube/internal/cache"
	"yatube/internal/config"
	"yatube/internal/database"
	"yatube/internal/featureflags"
	"yatube/internal/media"
	"yatube/internal/middleware"
	"yatube/internal/models"
	"yatube/internal/repository"
	"yatube/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const loginPath = "/auth/login/"

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	sessions       *middleware.Sessions
	rateLimiter    *middleware.RateLimiter
	pages          cache.PageStore
	media          *media.Storage
	featureFlags   *featureflags.Manager
	userRepo       repository.UserRepository
	postRepo       repository.PostRepository
	groupRepo      repository.GroupRepository
	commentRepo    repository.CommentRepository
	followRepo     repository.FollowRepository
	postService    *service.PostService
	commentService *service.CommentService
	followService  *service.FollowService
	userService    *service.UserService
}

// NewServer connects to the configured database and Redis and builds the server.
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	return NewServerWithDeps(cfg, db, cache.InitRedis(cfg.RedisURL))
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil: sessions cannot be revoked, rate limits fail open and
// the index page cache lives in process memory.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	pages, err := cache.NewPageStore(redisClient)
	if err != nil {
		return nil, fmt.Errorf("page cache: %w", err)
	}

	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("yatube"),
		sessions:       middleware.NewSessions(cfg.SecretKey, time.Duration(cfg.SessionTTLHours)*time.Hour, redisClient),
		rateLimiter:    middleware.NewRateLimiter(redisClient, cfg.Env),
		pages:          pages,
		media:          media.NewStorage(cfg.MediaRoot, cfg.ImageMaxUploadBytes()),
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
		userRepo:       repository.NewUserRepository(db),
		postRepo:       repository.NewPostRepository(db),
		groupRepo:      repository.NewGroupRepository(db),
		commentRepo:    repository.NewCommentRepository(db),
		followRepo:     repository.NewFollowRepository(db),
	}
	server.wireServices()

	middleware.Logger.Info("feature flags loaded", slog.Any("flags", server.featureFlags.Snapshot(0)))
	return server, nil
}

func (s *Server) wireServices() {
	s.postService = service.NewPostService(s.postRepo, s.groupRepo, s.media)
	s.commentService = service.NewCommentService(s.commentRepo, s.postRepo)
	s.followService = service.NewFollowService(s.followRepo, s.userRepo)
	s.userService = service.NewUserService(s.userRepo)
}

// NewApp returns a Fiber app configured with the page templates and error pages,
// with middleware and routes installed.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "yatube",
		Views:        newViews(),
		ViewsLayout:  baseLayout,
		ErrorHandler: s.errorHandler,
		BodyLimit:    int(s.config.ImageMaxUploadBytes()) + 1024*1024,
	})
	s.app = app

	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}
	if s.config.TracingEnabled {
		app.Use(middleware.TracingMiddleware())
	}

	// Runs after tracing so the trace id reaches the request context.
	app.Use(middleware.ContextMiddleware())

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	app.Use(s.sessions.Loader(s.userExists))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	app.Static("/media", s.media.Root(), fiber.Static{MaxAge: 3600})

	loginRequired := middleware.LoginRequired(loginPath)

	app.Get("/", s.indexCache(), s.Index)
	app.Get("/group/:slug/", s.GroupPosts)
	app.Get("/profile/:username/", s.Profile)
	app.Get("/posts/:postId/", s.PostDetail)

	app.Get("/create/", loginRequired, s.CreatePostForm)
	app.Post("/create/", loginRequired, s.CreatePost)
	app.Get("/posts/:postId/edit/", loginRequired, s.EditPostForm)
	app.Post("/posts/:postId/edit/", loginRequired, s.EditPost)
	app.Post("/posts/:postId/comment/", loginRequired, s.AddComment)

	app.Get("/follow/", loginRequired, s.FollowIndex)
	for _, method := range []string{fiber.MethodGet, fiber.MethodPost} {
		app.Add(method, "/profile/:username/follow/", loginRequired, s.ProfileFollow)
		app.Add(method, "/profile/:username/unfollow/", loginRequired, s.ProfileUnfollow)
	}

	auth := app.Group("/auth")
	signupLimit := s.rateLimiter.Limit("signup", 3, 10*time.Minute)
	auth.Get("/signup/", s.signupEnabled, s.SignupForm)
	auth.Post("/signup/", s.signupEnabled, signupLimit, s.Signup)
	auth.Get("/login/", s.LoginForm)
	auth.Post("/login/", s.rateLimiter.Limit("login", 10, 5*time.Minute), s.Login)
	auth.All("/logout/", s.Logout)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests. Redis is optional: without it
// the site runs with an in-memory page cache, so it never fails readiness.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// Start builds the app and listens on the configured port.
func (s *Server) Start() error {
	app := s.NewApp()
	log.Printf("Server starting on port %s...", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Printf("error closing sql DB: %v", cerr)
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			log.Printf("error closing redis: %v", rerr)
		}
	}

	log.Println("Server shutdown complete")
	return nil
}

// userExists backs the session loader: sessions of deleted accounts are dropped.
func (s *Server) userExists(ctx context.Context, userID uint) (bool, error) {
	_, err := s.userRepo.GetByID(ctx, userID)
	if models.IsNotFound(err) {
		return false, nil
	}
	return err == nil, err
}
