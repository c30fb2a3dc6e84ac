package routes

import (
	"errors"
	"net/http"

	"taskmanager/backend/middleware"
	"taskmanager/backend/services"

	"github.com/gin-gonic/gin"
)

// respondError writes the status and message for a service error. Errors
// that match no sentinel are 500s; their text is only shown outside release mode.
func respondError(c *gin.Context, err error) {
	var maxBytesErr *http.MaxBytesError

	switch {
	case errors.Is(err, services.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidCredentials):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid credentials."})
	case errors.As(err, &maxBytesErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Request body too large"})
	case errors.Is(err, services.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
	case errors.Is(err, services.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
	case errors.Is(err, services.ErrTaskNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
	case errors.Is(err, services.ErrDocumentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
	case errors.Is(err, services.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
	case errors.Is(err, services.ErrResourceExists):
		c.JSON(http.StatusConflict, gin.H{"error": "User already exists."})
	default:
		_ = c.Error(err)
		message := "Internal server error"
		if gin.Mode() != gin.ReleaseMode {
			message = err.Error()
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": message})
	}
}

// requireActor returns the authenticated actor or writes a 401
func requireActor(c *gin.Context) (services.Actor, bool) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		respondError(c, services.ErrUnauthenticated)
		return services.Actor{}, false
	}
	return actor, true
}
