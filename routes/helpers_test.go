package routes

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"taskmanager/backend/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

// setupTestRouter returns a router whose routes run as actor. A nil actor
// leaves the request unauthenticated.
func setupTestRouter(actor *services.Actor) (*gin.Engine, *gin.RouterGroup) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	group := router.Group("/api", func(c *gin.Context) {
		if actor != nil {
			c.Set("userID", actor.UserID)
			c.Set("role", actor.Role)
		}
		c.Next()
	})
	return router, group
}

func perform(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}
