// Package server exposes the application state operations over HTTP and
// WebSocket endpoints.
package server

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"moodboard/internal/auth"
	"moodboard/internal/cache"
	"moodboard/internal/config"
	"moodboard/internal/feed"
	"moodboard/internal/middleware"
	"moodboard/internal/models"
	"moodboard/internal/observability"
	"moodboard/internal/storage"
	"moodboard/internal/store"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
)

// session is one signed-in user's state container on the server side. Each
// authenticated user gets a dedicated store hydrated from the document
// store, mirroring what the client app holds locally.
type session struct {
	store    *store.Store
	provider *auth.Local
	lastSeen time.Time
}

// Server holds all dependencies and provides handlers.
type Server struct {
	config         *config.Config
	docs           storage.DocumentStore
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	logger         *observability.Logger
	notifier       *feed.Notifier
	hub            *feed.Hub
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	sessMu   sync.Mutex
	sessions map[string]*session
}

// NewServer creates a server instance, connecting storage and Redis from
// configuration.
func NewServer(cfg *config.Config) (*Server, error) {
	docs, err := OpenDocumentStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("document store init failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	return NewServerWithDeps(cfg, docs, cache.GetClient()), nil
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes storage and Redis.
func NewServerWithDeps(cfg *config.Config, docs storage.DocumentStore, redisClient *redis.Client) *Server {
	prom := middleware.InitMetrics("moodboard-api")

	s := &Server{
		config:         cfg,
		docs:           docs,
		redis:          redisClient,
		promMiddleware: prom,
		logger:         observability.NewLogger(cfg.Env),
		hub:            feed.NewHub(),
		sessions:       make(map[string]*session),
	}
	s.notifier = feed.NewNotifier(redisClient)
	return s
}

// SetupMiddleware configures middleware for the Fiber app.
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger(s.logger))

	// CORS runs before middlewares that can short-circuit so browser
	// clients still receive CORS headers on error responses.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application.
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	// Auth routes
	authGroup := api.Group("/auth")
	authGroup.Post("/signup", middleware.RateLimit(
		s.redis, 3, 10*time.Minute, "signup"), s.Signup)
	authGroup.Post("/login", middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "login"), s.Login)

	protected := api.Group("", s.AuthRequired())

	protected.Post("/auth/logout", s.Logout)
	protected.Delete("/auth/account", s.DeleteAccount)

	// Full state snapshot for the signed-in user
	protected.Get("/state", s.GetState)

	// Vibe routes
	vibes := protected.Group("/vibes")
	vibes.Get("/", s.GetVibes)
	vibes.Post("/", middleware.RateLimit(
		s.redis, 10, time.Minute, "post_mood"), s.PostMood)
	vibes.Post("/:id/like", s.ToggleLike)
	vibes.Put("/:id", s.UpdateVibe)
	vibes.Delete("/:id", s.DeleteVibe)

	// User routes
	users := protected.Group("/users")
	users.Get("/me", s.GetMyProfile)
	users.Put("/me/username", s.UpdateUsername)
	users.Post("/me/username/regenerate", s.RegenerateUsername)
	users.Put("/me/avatar", s.UpdateAvatar)
	users.Get("/search", middleware.RateLimit(
		s.redis, 20, time.Minute, "user_search"), s.SearchUsers)
	users.Get("/", s.GetAllUsers)
	users.Get("/:id/vibes", s.GetUserVibes)
	users.Get("/:id", s.GetUserProfile)

	// Friend routes
	friends := protected.Group("/friends")
	friends.Post("/requests/:userId", middleware.RateLimit(
		s.redis, 5, 5*time.Minute, "friend_request"), s.SendFriendRequest)
	friends.Post("/requests/:userId/accept", s.AcceptFriendRequest)
	friends.Post("/requests/:userId/reject", s.RejectFriendRequest)
	friends.Delete("/requests/:userId", s.CancelFriendRequest)
	friends.Delete("/:userId", s.RemoveFriend)

	// Notification routes
	notifications := protected.Group("/notifications")
	notifications.Get("/", s.GetNotifications)
	notifications.Post("/:id/read", s.MarkNotificationRead)

	// Community routes
	communities := protected.Group("/communities")
	communities.Get("/", s.GetCommunities)
	communities.Post("/", s.CreateCommunity)
	communities.Get("/:id/posts", s.GetCommunityPosts)
	communities.Post("/:id/posts", middleware.RateLimit(
		s.redis, 15, time.Minute, "community_post"), s.PostToCommunity)
	communities.Post("/:id/join", s.JoinCommunity)
	communities.Post("/:id/leave", s.LeaveCommunity)
	communities.Post("/:id/requests", s.RequestToJoin)
	communities.Post("/:id/requests/:userId/accept", s.AcceptJoinRequest)
	communities.Post("/:id/requests/:userId/reject", s.RejectJoinRequest)
	communities.Post("/:id/admins/:userId", s.PromoteAdmin)
	communities.Delete("/:id/admins/:userId", s.DemoteAdmin)
	communities.Delete("/:id/members/:userId", s.RemoveMember)
	communities.Post("/:id/invites/:userId", s.InviteUser)
	communities.Put("/:id", s.EditCommunity)
	communities.Delete("/:id", s.DeleteCommunity)

	// Invite replies reference the notification carrying the invite
	invites := protected.Group("/invites")
	invites.Post("/:notificationId/accept", s.AcceptInvite)
	invites.Post("/:notificationId/reject", s.RejectInvite)

	// Badge routes
	badges := protected.Group("/badges")
	badges.Post("/refresh", s.RefreshBadges)
	badges.Post("/:id/unlock", s.UnlockAdBadge)

	// Websocket feed endpoint
	ws := api.Group("/ws", s.AuthRequired())
	ws.Get("/", s.FeedWebsocketHandler())
}

// LivenessCheck handles liveness probe requests.
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	docsStatus := "healthy"
	if _, err := s.docs.Count(ctx, storage.CollectionUsers); err != nil {
		docsStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if docsStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status":  overallStatus,
		"version": "1.0.0",
		"checks": fiber.Map{
			"documents": docsStatus,
			"redis":     redisStatus,
		},
		"time": time.Now(),
	})
}

// AuthRequired returns the authentication middleware bound to this server's
// secret and Redis client.
func (s *Server) AuthRequired() fiber.Handler {
	return middleware.AuthRequired(s.config.JWTSecret, s.redis)
}

// Start starts the server.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	app := fiber.New(fiber.Config{
		AppName: "Moodboard API",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError, err)
		},
	})
	s.app = app

	s.SetupMiddleware(app)
	s.SetupRoutes(app)

	if s.redis != nil {
		go func() {
			if err := s.hub.StartWiring(s.shutdownCtx, s.notifier); err != nil {
				log.Printf("failed to start %s wiring: %v", s.hub.Name(), err)
			}
		}()
	}

	log.Printf("Server starting on port %s...", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
		}
	}

	if err := s.hub.Shutdown(ctx); err != nil {
		log.Printf("error shutting down %s: %v", s.hub.Name(), err)
	}

	s.sessMu.Lock()
	for _, sess := range s.sessions {
		sess.store.Close()
	}
	s.sessions = make(map[string]*session)
	s.sessMu.Unlock()

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			log.Printf("error closing redis: %v", rerr)
		}
	}

	log.Println("Server shutdown complete")
	return nil
}
