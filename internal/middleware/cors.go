package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

var (
	corsMethods = strings.Join([]string{http.MethodGet, http.MethodPost, http.MethodOptions}, ", ")
	corsHeaders = strings.Join([]string{"Content-Type", HeaderRequestID}, ", ")
	// Retry-After accompanies 429 session_busy; Content-Disposition names export downloads.
	corsExposed = strings.Join([]string{"Retry-After", "Content-Disposition", HeaderRequestID}, ", ")
)

type originPolicy struct {
	any     bool
	allowed map[string]struct{}
}

func newOriginPolicy(list string) originPolicy {
	p := originPolicy{allowed: make(map[string]struct{})}
	for _, o := range strings.Split(list, ",") {
		switch o = strings.TrimSpace(o); o {
		case "":
		case "*":
			p.any = true
		default:
			p.allowed[o] = struct{}{}
		}
	}
	if len(p.allowed) == 0 {
		p.any = true
	}
	return p
}

// allow returns the Access-Control-Allow-Origin value for origin, or "" to send none.
func (p originPolicy) allow(origin string) string {
	if p.any {
		return "*"
	}
	if _, ok := p.allowed[origin]; ok {
		return origin
	}
	return ""
}

// CORS lets browser apps on the listed origins call the API. allowedOrigins is "*" or a
// comma-separated list; an empty list allows any origin.
func CORS(allowedOrigins string) gin.HandlerFunc {
	policy := newOriginPolicy(allowedOrigins)
	return func(c *gin.Context) {
		if allow := policy.allow(c.GetHeader("Origin")); allow != "" {
			h := c.Writer.Header()
			if allow != "*" {
				h.Add("Vary", "Origin")
			}
			h.Set("Access-Control-Allow-Origin", allow)
			h.Set("Access-Control-Allow-Methods", corsMethods)
			h.Set("Access-Control-Allow-Headers", corsHeaders)
			h.Set("Access-Control-Expose-Headers", corsExposed)
			h.Set("Access-Control-Max-Age", "86400")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
