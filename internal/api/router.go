// Package api exposes the control surface: draft review, topic management,
// runtime settings, and pipeline stats.
package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/gopost/gopost/internal/database"
	"github.com/gopost/gopost/internal/logger"
)

const (
	healthCheckTimeout   = 2 * time.Second
	healthStatusHealthy  = "healthy"
	healthStatusDegraded = "degraded"
	serviceVersion       = "1.0.0"
)

// CycleRunner triggers a monitoring cycle on demand.
type CycleRunner interface {
	RunCycle(ctx context.Context) error
}

// Dispatcher triggers a dispatch run on demand.
type Dispatcher interface {
	CheckAndSend(ctx context.Context) error
}

// Router holds the API dependencies.
type Router struct {
	posts      *database.PostRepository
	topics     *database.TopicRepository
	settings   *database.SettingRepository
	db         *sqlx.DB
	redis      *redis.Client
	monitor    CycleRunner
	dispatcher Dispatcher
	debug      bool
	logger     logger.Logger
}

// NewRouter creates the API router.
func NewRouter(
	posts *database.PostRepository,
	topics *database.TopicRepository,
	settings *database.SettingRepository,
	db *sqlx.DB,
	redisClient *redis.Client,
	monitor CycleRunner,
	dispatcher Dispatcher,
	debug bool,
	log logger.Logger,
) *Router {
	return &Router{
		posts:      posts,
		topics:     topics,
		settings:   settings,
		db:         db,
		redis:      redisClient,
		monitor:    monitor,
		dispatcher: dispatcher,
		debug:      debug,
		logger:     log,
	}
}

// SetupRoutes builds the gin engine with all routes and middleware.
func (r *Router) SetupRoutes() *gin.Engine {
	if !r.debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	router.GET("/health", r.healthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")

	posts := v1.Group("/posts")
	posts.GET("", r.listPosts)
	posts.POST("", r.createPost)
	posts.GET("/:id", r.getPost)
	posts.PUT("/:id", r.updatePost)
	posts.DELETE("/:id", r.deletePost)
	posts.POST("/:id/approve", r.approvePost)
	posts.POST("/:id/reject", r.rejectPost)
	posts.POST("/:id/send-now", r.sendPostNow)

	topics := v1.Group("/topics")
	topics.GET("", r.listTopics)
	topics.POST("", r.createTopic)
	topics.DELETE("/:id", r.deactivateTopic)

	settings := v1.Group("/settings")
	settings.GET("/pause", r.getPauseMode)
	settings.PUT("/pause", r.setPauseMode)

	v1.GET("/stats", r.getStats)

	run := v1.Group("/run")
	run.POST("/monitoring", r.runMonitoring)
	run.POST("/dispatch", r.runDispatch)

	return router
}

func (r *Router) healthCheck(c *gin.Context) {
	health := gin.H{
		"status":  healthStatusHealthy,
		"service": "gopost",
		"version": serviceVersion,
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	dbConnected := r.db.PingContext(ctx) == nil
	if !dbConnected {
		health["status"] = healthStatusDegraded
	}
	health["database"] = gin.H{"connected": dbConnected}

	if r.redis != nil {
		redisConnected := r.redis.Ping(ctx).Err() == nil
		if !redisConnected && health["status"] == healthStatusHealthy {
			health["status"] = healthStatusDegraded
		}
		health["redis"] = gin.H{"connected": redisConnected}
	}

	c.JSON(200, health)
}
