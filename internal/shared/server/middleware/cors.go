package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	corsMaxAgeSeconds = 600
	corsMethods       = "GET, POST, DELETE, OPTIONS"
	corsDefaultHeader = "Content-Type, Authorization, X-Request-Id"
)

// corsPolicy is the parsed form of the configured origin list.
type corsPolicy struct {
	origins   map[string]bool
	anyOrigin bool
}

func newCORSPolicy(allowed []string) corsPolicy {
	p := corsPolicy{origins: make(map[string]bool, len(allowed))}
	for _, o := range allowed {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		switch o {
		case "":
		case "*":
			p.anyOrigin = true
		default:
			p.origins[strings.ToLower(o)] = true
		}
	}
	return p
}

func (p corsPolicy) allows(origin string) bool {
	return origin != "" && (p.anyOrigin || p.origins[strings.ToLower(origin)])
}

// CORS admits the configured browser origins with credentials. The request
// origin is echoed back; preflights get the headers the browser asked for.
func CORS(allowedOrigins []string) gin.HandlerFunc {
	policy := newCORSPolicy(allowedOrigins)
	maxAge := strconv.Itoa(corsMaxAgeSeconds)

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		h := c.Writer.Header()
		h.Add("Vary", "Origin")

		if policy.allows(origin) {
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Expose-Headers", HeaderRequestID+", Retry-After")
		}

		if c.Request.Method != http.MethodOptions {
			c.Next()
			return
		}
		if policy.allows(origin) {
			headers := c.GetHeader("Access-Control-Request-Headers")
			if headers == "" {
				headers = corsDefaultHeader
			}
			h.Set("Access-Control-Allow-Methods", corsMethods)
			h.Set("Access-Control-Allow-Headers", headers)
			h.Set("Access-Control-Max-Age", maxAge)
		}
		c.AbortWithStatus(http.StatusNoContent)
	}
}
