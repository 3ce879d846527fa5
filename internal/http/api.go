package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"storyverse/internal/metrics"
	"storyverse/internal/service"
)

// Services groups the domain services the API exposes.
type Services struct {
	Users        service.UserService
	Entitlements service.EntitlementService
	Catalog      service.CatalogService
	Progress     service.ProgressService
	Contact      service.ContactService
}

type Options struct {
	JWTSecret   []byte
	TokenTTL    time.Duration
	CORSOrigins []string
	Logger      logrus.FieldLogger
}

// Handler wires HTTP routes to domain services.
type Handler struct {
	users        service.UserService
	entitlements service.EntitlementService
	catalog      service.CatalogService
	progress     service.ProgressService
	contact      service.ContactService

	jwtSecret []byte
	tokenTTL  time.Duration
	origins   []string
	log       logrus.FieldLogger
}

func NewHandler(svcs Services, opts Options) *Handler {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 24 * time.Hour
	}
	return &Handler{
		users:        svcs.Users,
		entitlements: svcs.Entitlements,
		catalog:      svcs.Catalog,
		progress:     svcs.Progress,
		contact:      svcs.Contact,
		jwtSecret:    opts.JWTSecret,
		tokenTTL:     opts.TokenTTL,
		origins:      opts.CORSOrigins,
		log:          opts.Logger,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(corsMiddleware(h.origins), requestMiddleware(h.log))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.POST("/register", h.register)
	router.POST("/login", h.login)
	router.POST("/contact", h.submitContact)
	router.GET("/library", h.listLibrary)
	router.GET("/get-book/:id", h.optionalAuth(), h.getBook)

	authed := router.Group("/", h.requireAuth())
	{
		authed.GET("/get-user/:id", h.getUser)
		authed.PUT("/update-user/:id", h.updateUser)
		authed.GET("/my-collection/:userId", h.myCollection)
		authed.GET("/read/:id", h.readBook)
		authed.PUT("/update-book/:id", h.rateBook)
		authed.PUT("/progress/:bookId", h.recordProgress)
		authed.GET("/progress", h.listProgress)

		authed.POST("/create-order", h.createOrder)
		authed.POST("/record-purchase", h.recordPurchase)
		authed.POST("/verify-membership", h.verifyMembership)
		authed.POST("/claim-premium", h.claimPremium)
	}
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	allowAll := len(origins) == 0
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = struct{}{}
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		switch {
		case allowAll:
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		case origin != "":
			if _, ok := allowed[origin]; ok {
				c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			}
			c.Writer.Header().Add("Vary", "Origin")
		}
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// requestMiddleware logs every request and records the HTTP metrics.
func requestMiddleware(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		latency := time.Since(start)

		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, route).Observe(latency.Seconds())

		entry := log.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  status,
			"latency": latency,
		})
		if status >= http.StatusInternalServerError {
			entry.Warn("request failed")
		} else {
			entry.Debug("request")
		}
	}
}
