// Package server assembles the gin engine: middleware, API routes, health and
// metrics endpoints.
package server

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/zfogg/inkwell/internal/auth"
	"github.com/zfogg/inkwell/internal/handlers"
	"github.com/zfogg/inkwell/internal/middleware"
	"github.com/zfogg/inkwell/internal/vote"
)

// Options configures the router
type Options struct {
	Handlers           *handlers.Handlers
	Tokens             auth.TokenVerifier
	RateLimitPerMinute int
	Tracing            bool
	ServiceName        string
	AllowOrigins       []string
}

// NewRouter builds the HTTP handler for the API
func NewRouter(opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	if opts.Tracing {
		r.Use(middleware.TracingMiddleware(opts.ServiceName))
	}
	r.Use(middleware.GinLoggerMiddleware())
	r.Use(middleware.MetricsMiddleware())
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = opts.AllowOrigins
	if len(corsConfig.AllowOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"}
	corsConfig.MaxAge = 12 * time.Hour
	r.Use(cors.New(corsConfig))

	h := opts.Handlers
	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	requireAuth := middleware.AuthMiddleware(opts.Tokens)
	optionalAuth := middleware.OptionalAuthMiddleware(opts.Tokens)
	voteLimit := middleware.RateLimitVotes(opts.RateLimitPerMinute)
	uploadLimit := middleware.RateLimitUpload()

	api := r.Group("/api/v1")
	api.Use(middleware.RateLimit())
	{
		novels := api.Group("/novels")
		{
			novels.GET("", h.ListNovels)
			novels.POST("", requireAuth, h.CreateNovel)
			novels.GET("/:id", h.GetNovel)
			novels.POST("/:id/cover", requireAuth, uploadLimit, h.UploadNovelCover)
			novels.POST("/:id/episodes", requireAuth, h.CreateEpisode)
		}

		api.GET("/episodes/:id", h.GetEpisode)

		posts := api.Group("/posts")
		{
			posts.GET("", h.ListPosts)
			posts.POST("", requireAuth, h.CreatePost)
			posts.GET("/:id", h.GetPost)
			posts.POST("/:id/image", requireAuth, uploadLimit, h.UploadPostImage)
			posts.GET("/:id/comments", h.GetComments)
			posts.POST("/:id/comments", requireAuth, h.CreateComment)
		}

		api.GET("/comments/:id", h.GetComment)

		// Every votable kind gets the same delete and vote routes
		for _, kind := range vote.Kinds() {
			group := api.Group("/" + kind.Route())
			group.DELETE("/:id", requireAuth, h.DeleteEntity(kind))
			group.POST("/:id/like", requireAuth, voteLimit, h.Like(kind))
			group.POST("/:id/dislike", requireAuth, voteLimit, h.Dislike(kind))
			group.DELETE("/:id/vote", requireAuth, voteLimit, h.RetractVote(kind))
			group.GET("/:id/votes", optionalAuth, h.GetVotes(kind))
		}
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"code": "NOT_FOUND", "message": "route not found"})
	})

	return r
}
