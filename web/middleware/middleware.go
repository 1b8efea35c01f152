package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Navigation 页面路由的守卫中间件，不放行时重定向
func Navigation(guard *Guard, meta Meta) gin.HandlerFunc {
	return func(c *gin.Context) {
		decision := guard.BeforeEach(c.Request.Context(), meta, c.Request.URL.RequestURI())
		if !decision.Allowed() {
			guard.logger.Debug("Navigation redirected",
				zap.String("path", c.Request.URL.Path),
				zap.String("location", decision.Location),
			)
			c.Redirect(http.StatusFound, decision.Location)
			c.Abort()
			return
		}
		c.Next()
	}
}

// AuthMiddleware 操作接口的登录校验，未登录返回401
func AuthMiddleware(guard *Guard) gin.HandlerFunc {
	return func(c *gin.Context) {
		decision := guard.BeforeEach(c.Request.Context(), Meta{RequiresAuth: true}, c.Request.URL.RequestURI())
		if decision.Outcome == RedirectLogin {
			guard.logger.Warn("Action requires login",
				zap.String("path", c.Request.URL.Path),
				zap.String("method", c.Request.Method),
			)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    -1,
				"error":   "not authenticated",
				"message": "Authentication required",
			})
			return
		}
		c.Next()
	}
}

// AdminMiddleware 管理员操作校验，需挂在AuthMiddleware之后
func AdminMiddleware(guard *Guard) gin.HandlerFunc {
	return func(c *gin.Context) {
		decision := guard.BeforeEach(c.Request.Context(), Meta{RequiresAuth: true, RequiresAdmin: true}, c.Request.URL.RequestURI())
		if !decision.Allowed() {
			guard.logger.Warn("Admin permission required",
				zap.String("path", c.Request.URL.Path),
				zap.String("method", c.Request.Method),
				zap.String("client_ip", c.ClientIP()),
			)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"code":    -1,
				"error":   "admin permission required",
				"message": "Only administrators can perform this operation",
			})
			return
		}
		c.Next()
	}
}

// RequestLogger 请求日志
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("Console request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
