package main

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const requestIDHeader = "X-Request-ID"

// requestID adds a unique request ID to each request
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", c.GetString("request_id")),
			zap.String("username", c.GetString("username")),
		)
	}
}

func recovery(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Error("panic recovered", zap.Any("error", err), zap.String("request_id", c.GetString("request_id")))
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			}
		}()
		c.Next()
	}
}

// parseBearer validates an "Authorization: Bearer" header and returns its claims.
func parseBearer(header string) (jwt.MapClaims, bool) {
	if len(header) < 8 || header[:7] != "Bearer " {
		return nil, false
	}
	token, err := jwt.Parse(header[7:], func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrInvalidKeyType
		}
		return jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, false
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	return claims, ok
}

func setClaims(c *gin.Context, claims jwt.MapClaims) {
	username, _ := claims["username"].(string)
	role, _ := claims["role"].(string)
	c.Set("username", username)
	if role != "" {
		c.Set("role", role)
	}
}

func jwtAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := parseBearer(c.GetHeader("Authorization"))
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid token"})
			c.Abort()
			return
		}
		setClaims(c, claims)
		c.Next()
	}
}

// optionalAuth attributes a request to an operator when a valid token is
// sent, and lets anonymous requests through.
func optionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, ok := parseBearer(c.GetHeader("Authorization")); ok {
			setClaims(c, claims)
		}
		c.Next()
	}
}

// requireDB rejects requests to routes that need the history store.
func requireDB() gin.HandlerFunc {
	return func(c *gin.Context) {
		if db == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "history store disabled (DB_DSN not set)"})
			c.Abort()
			return
		}
		c.Next()
	}
}
