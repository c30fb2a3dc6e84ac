package routes

import (
	"net/http"
	"time"

	"taskmanager/backend/database"
	"taskmanager/backend/models"

	"github.com/gin-gonic/gin"
)

// RegisterHealthRoutes sets up the unauthenticated liveness endpoint
func RegisterHealthRoutes(router gin.IRoutes, db *database.Database) {
	router.GET("/health", func(c *gin.Context) { Health(c, db) })
}

func Health(c *gin.Context, db *database.Database) {
	if err := db.Ping(); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unavailable",
			"time":   time.Now().UTC(),
		})
		return
	}

	var pending int64
	if err := db.DB.Model(&models.Event{}).Where("dispatched = ?", false).Count(&pending).Error; err != nil {
		_ = c.Error(err)
	}

	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"pending_events": pending,
		"time":           time.Now().UTC(),
	})
}
