package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"linkedin-optimizer/internal/optimizations"
	"linkedin-optimizer/internal/shared/config"
	"linkedin-optimizer/internal/shared/metrics"
	"linkedin-optimizer/internal/shared/server/middleware"
)

// Rate limit groups.
const (
	groupDefault  = "DEFAULT"
	groupOptimize = "OPTIMIZE"
	groupPolling  = "POLLING"
)

// RouterDeps are the handlers mounted by NewRouter.
type RouterDeps struct {
	Config        config.Config
	Optimizations *optimizations.Handler
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.RateLimit(middleware.RateLimitConfig{
			DefaultGroup: groupDefault,
			GroupFor:     rateLimitGroup,
			Rules: map[string]middleware.RateLimitRule{
				groupDefault:  {Rate: 5, Burst: 20},
				groupOptimize: {Rate: 0.2, Burst: 5},
				groupPolling:  {Rate: 10, Burst: 30},
			},
		}),
	)

	r.GET("/metrics", func(c *gin.Context) {
		c.Data(http.StatusOK, metrics.ContentType, []byte(metrics.Render()))
	})

	api := r.Group("/api/v1")
	if deps.Optimizations != nil {
		deps.Optimizations.RegisterRoutes(api)
	}

	return r
}

func rateLimitGroup(c *gin.Context) string {
	switch c.FullPath() {
	case "/api/v1/optimize-profile", "/api/v1/posts":
		return groupOptimize
	case "/api/v1/progress/:id":
		return groupPolling
	}
	return groupDefault
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
