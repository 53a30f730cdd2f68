package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"civictrack-be/controllers"
	"civictrack-be/middlewares"
)

// Handlers bundles everything the routes need.
type Handlers struct {
	Auth     *controllers.AuthController
	Issues   *controllers.IssueController
	Comments *controllers.CommentController
	Lookups  *controllers.LookupController

	Authenticator middlewares.Authenticator
	// IssueLimit caps issue creation; nil disables the limit.
	IssueLimit middlewares.Counter
	LimitKey   string
	DailyLimit int64

	Log logrus.FieldLogger
}

func (h *Handlers) requireAuth() gin.HandlerFunc {
	return middlewares.AuthMiddleware(h.Authenticator, h.Log)
}

func (h *Handlers) issueLimiter() gin.HandlerFunc {
	return middlewares.IssueRateLimiter(h.IssueLimit, h.LimitKey, h.DailyLimit, h.Log)
}

type Options struct {
	CORSOrigin string
	// FilesDir is served under /files when the local file store is used.
	FilesDir string
}

// NewRouter builds the engine with the ambient middleware and every route.
func NewRouter(h *Handlers, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middlewares.Metrics(), middlewares.RequestLogger(h.Log))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{opts.CORSOrigin},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	AuthRoutes(r, h)
	IssueRoutes(r, h)
	UserRoutes(r, h)

	if opts.FilesDir != "" {
		r.Static("/files", opts.FilesDir)
	}

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	return r
}
