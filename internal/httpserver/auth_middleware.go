package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/marwanhelal/track-management-system/internal/handler"
	"github.com/marwanhelal/track-management-system/internal/model"
	"github.com/marwanhelal/track-management-system/pkg/util"
)

// AuthMiddleware validates the bearer token and stores the actor so
// handlers and services know who is acting and with which role.
func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := util.ExtractToken(c.Request)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			c.Abort()
			return
		}

		claims, err := util.ParseJWT(token, jwtSecret)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}

		c.Set(handler.ActorKey, model.Actor{
			ID:   claims.UserID,
			Name: claims.Name,
			Role: claims.Role,
		})

		c.Next()
	}
}
