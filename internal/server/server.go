// Package server contains the HTTP handlers and routing for the application's API.
package server

import (
	"context"
	"fmt"
	"time"

	"scrawl/internal/cache"
	"scrawl/internal/config"
	"scrawl/internal/database"
	"scrawl/internal/middleware"
	"scrawl/internal/models"
	"scrawl/internal/repository"
	"scrawl/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config           *config.Config
	db               *gorm.DB
	redis            *redis.Client
	promMiddleware   *fiberprometheus.FiberPrometheus
	userRepo         repository.UserRepository
	postRepo         repository.PostRepository
	commentRepo      repository.CommentRepository
	voteRepo         repository.VoteRepository
	targetStore      repository.TargetStore
	voteService      *service.VoteService
	postService      *service.PostService
	commentService   *service.CommentService
	userService      *service.UserService
	analyticsService *service.AnalyticsService
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)

	return NewServerWithDeps(cfg, db, cache.GetClient())
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	voteRepo := repository.NewVoteRepository(db)
	targetStore := repository.NewTargetStore(db)

	prom := middleware.InitMetrics("scrawl-api")

	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: prom,
		userRepo:       userRepo,
		postRepo:       postRepo,
		commentRepo:    commentRepo,
		voteRepo:       voteRepo,
		targetStore:    targetStore,
	}

	server.voteService = service.NewVoteService(voteRepo, targetStore)
	server.postService = service.NewPostService(postRepo, server.isAdminByUserID)
	server.commentService = service.NewCommentService(commentRepo, postRepo, server.isAdminByUserID)
	server.userService = service.NewUserService(userRepo)
	server.analyticsService = service.NewAnalyticsService(postRepo, userRepo, voteRepo)

	return server, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Propagate request ID and user ID into request-scoped log context
	app.Use(middleware.ContextMiddleware())

	// Distributed tracing (one server span per request)
	app.Use(middleware.TracingMiddleware())

	// Prometheus metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers
	app.Use(helmet.New())

	// Structured logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// CORS runs before middlewares that can short-circuit (e.g. limiter) so
	// browser clients still receive CORS headers on error responses.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		// Never rate-limit preflight requests.
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"success": false,
				"message": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/register", middleware.RateLimit(
		s.redis, 3, 10*time.Minute, "register"), s.Register)
	auth.Post("/login", middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "login"), s.Login)
	auth.Get("/me", middleware.AuthRequired, s.Me)
	auth.Put("/profile", middleware.AuthRequired, s.UpdateProfile)

	// Vote routes. Counts are public; casting and own-vote lookup are not.
	votes := api.Group("/votes")
	votes.Get("/:targetType/:targetId/counts", middleware.OptionalAuth, s.GetVoteCounts)
	votes.Get("/:targetType/:targetId/user-vote", middleware.AuthRequired, s.GetUserVote)
	votes.Post("/:targetType/:targetId/:voteType", middleware.AuthRequired, middleware.RateLimit(
		s.redis, 30, time.Minute, "cast_vote"), s.CastVote)

	// Post routes
	posts := api.Group("/posts")
	posts.Get("/", middleware.OptionalAuth, s.GetPosts)
	posts.Get("/:id", middleware.OptionalAuth, s.GetPost)
	posts.Post("/", middleware.AuthRequired, middleware.RateLimit(
		s.redis, 5, 5*time.Minute, "create_post"), s.CreatePost)
	posts.Put("/:id", middleware.AuthRequired, s.UpdatePost)
	posts.Delete("/:id", middleware.AuthRequired, s.DeletePost)

	// Comment routes. Reads are keyed by post, mutations by comment under
	// the /comment prefix.
	comments := api.Group("/comments")
	comments.Get("/:postId", middleware.OptionalAuth, s.GetComments)
	comments.Post("/:postId", middleware.AuthRequired, middleware.RateLimit(
		s.redis, 10, time.Minute, "create_comment"), s.CreateComment)
	comments.Put("/comment/:commentId", middleware.AuthRequired, s.UpdateComment)
	comments.Delete("/comment/:commentId", middleware.AuthRequired, s.DeleteComment)

	// Admin routes
	admin := api.Group("/admin", middleware.AuthRequired, s.AdminRequired())
	admin.Get("/analytics", s.GetAnalytics)
}

// AdminRequired guards admin routes; it must run after AuthRequired.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, ok := c.Locals("userID").(uint)
		if !ok {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authentication required"))
		}
		admin, err := s.isAdminByUserID(c.Context(), userID)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		}
		if !admin {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Admin access only"))
		}
		return c.Next()
	}
}

func (s *Server) isAdminByUserID(ctx context.Context, userID uint) (bool, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Select("is_admin").First(&user, userID).Error; err != nil {
		return false, err
	}
	return user.IsAdmin, nil
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck reports whether the server's backing stores are reachable.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "disabled"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	if dbStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
	}

	return c.Status(status).JSON(fiber.Map{
		"status": dbStatus,
		"redis":  redisStatus,
		"time":   time.Now(),
	})
}

// Shutdown releases the server's database and Redis connections.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			return err
		}
	}
	if sqlDB, err := s.db.DB(); err == nil {
		return sqlDB.Close()
	}
	return nil
}
