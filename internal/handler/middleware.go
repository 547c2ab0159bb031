package handler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"realestate/internal/logger"
	"realestate/internal/metrics"
	"realestate/internal/service"
	"realestate/pkg/idgen"
	"realestate/pkg/response"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	ctxUserID    = "userID"
	headerReqID  = "X-Request-ID"
	bearerPrefix = "Bearer"
)

// LoggerMiddleware writes one access log line per request and observes its
// latency.
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		reqID := c.GetHeader(headerReqID)
		if reqID == "" {
			reqID = idgen.GenerateRequestID()
		}
		c.Header(headerReqID, reqID)

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequestDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).
			Observe(latency.Seconds())

		logger.Info("[HTTP]",
			zap.String("request_id", reqID),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", status),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()))
	}
}

// RecoveryMiddleware turns a panic into a 500 envelope.
func RecoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error(fmt.Errorf("panic recovered: %v", err),
					zap.String("path", c.Request.URL.Path))
				response.ServerError(c)
			}
		}()
		c.Next()
	}
}

func CORSMiddleware() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Authorization", headerReqID},
		ExposeHeaders:   []string{"Content-Length", headerReqID},
		MaxAge:          time.Hour,
	})
}

// TokenParser is satisfied by *service.AuthService.
type TokenParser interface {
	ParseToken(token string) (*service.Claims, error)
}

// AuthMiddleware requires a bearer access token and stores the caller's id
// on the context.
func AuthMiddleware(parser TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Unauthorized(c, "Authorization header required")
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != bearerPrefix || strings.TrimSpace(parts[1]) == "" {
			response.Unauthorized(c, "Invalid authorization header format")
			return
		}

		claims, err := parser.ParseToken(strings.TrimSpace(parts[1]))
		if err != nil {
			if errors.Is(err, service.ErrTokenExpired) {
				response.Unauthorized(c, "Token expired")
				return
			}
			response.Unauthorized(c, "Invalid or malformed token")
			return
		}

		c.Set(ctxUserID, claims.UserID)
		c.Next()
	}
}

func userIDFrom(c *gin.Context) int64 {
	return c.GetInt64(ctxUserID)
}
