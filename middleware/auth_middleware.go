package middleware

import (
	"net/http"

	"taskmanager/backend/models"
	"taskmanager/backend/services"
	"taskmanager/backend/utils/token"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func AuthMiddleware(authService services.AuthServiceInterface) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := token.ExtractToken(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}

		claims, err := authService.ValidateToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": token.ErrInvalidToken.Error()})
			return
		}

		// Store user info in the context for later use
		c.Set("userID", claims.UserID)
		c.Set("role", models.UserRole(claims.Role))

		c.Next()
	}
}

// ActorFromContext returns the identity stored by AuthMiddleware
func ActorFromContext(c *gin.Context) (services.Actor, bool) {
	userID, ok := c.Get("userID")
	if !ok {
		return services.Actor{}, false
	}
	id, ok := userID.(uuid.UUID)
	if !ok || id == uuid.Nil {
		return services.Actor{}, false
	}

	role, _ := c.Get("role")
	userRole, _ := role.(models.UserRole)

	return services.Actor{UserID: id, Role: userRole}, true
}
