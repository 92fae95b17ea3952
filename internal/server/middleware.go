package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/kinesio/internal/observability/logger"
	"github.com/smallbiznis/kinesio/internal/requestctx"
	"go.uber.org/zap"
)

const contextActorKey = "actor"

// AuthRequired verifies the bearer token and stores the actor on the request
// context, where audit and the services read it.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, err := s.verifier.FromHeader(c.GetHeader("Authorization"))
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		c.Set(contextActorKey, actor)
		c.Request = c.Request.WithContext(requestctx.WithActor(c.Request.Context(), actor))
		c.Next()
	}
}

func (s *Server) authorize(object, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.authorizeContext(c, object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

func (s *Server) authorizeContext(c *gin.Context, object, action string) error {
	actor, ok := requestctx.ActorFromContext(c.Request.Context())
	if !ok {
		return ErrUnauthorized
	}
	return s.authzSvc.Authorize(c.Request.Context(), actor.Role, object, action)
}

// RateLimit applies the per user token bucket. Limiter failures let the request
// through.
func (s *Server) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.Enabled() {
			c.Next()
			return
		}

		key := c.ClientIP()
		if actor, ok := requestctx.ActorFromContext(c.Request.Context()); ok {
			key = "user:" + actor.UserID
		}
		res, err := s.limiter.Allow(c.Request.Context(), key)
		if err != nil {
			logger.WithContext(c.Request.Context(), s.log).Warn("rate limiter unavailable", zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		if !res.Allowed {
			seconds := int(res.RetryAfter.Seconds())
			if seconds < 1 {
				seconds = 1
			}
			c.Header("Retry-After", strconv.Itoa(seconds))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, errorResponse{Error: errorPayload{
				Type:    "rate_limited",
				Message: "too many requests",
			}})
			return
		}
		c.Next()
	}
}

func attachmentHeader(filename string) string {
	return `attachment; filename="` + strings.ReplaceAll(filename, `"`, "") + `"`
}
