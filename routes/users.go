package routes

import (
	"net/http"

	"taskmanager/backend/services"

	"github.com/gin-gonic/gin"
)

// RegisterUserRoutes mounts the user administration endpoints. The group must
// already require an administrator.
func RegisterUserRoutes(group *gin.RouterGroup, userService services.UserServiceInterface) {
	users := group.Group("/users")
	{
		users.GET("", func(c *gin.Context) { GetUsers(c, userService) })
		users.GET("/:id", func(c *gin.Context) { GetUserById(c, userService) })
		users.PATCH("/:id", func(c *gin.Context) { UpdateUser(c, userService) })
		users.DELETE("/:id", func(c *gin.Context) { DeleteUser(c, userService) })
	}
}

func GetUserById(c *gin.Context, userService services.UserServiceInterface) {
	user, err := userService.GetUserById(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func UpdateUser(c *gin.Context, userService services.UserServiceInterface) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var input services.UserUpdateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updatedUser, err := userService.UpdateUser(actor, c.Param("id"), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updatedUser)
}

func DeleteUser(c *gin.Context, userService services.UserServiceInterface) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	if err := userService.DeleteUser(actor, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deleted"})
}

func GetUsers(c *gin.Context, userService services.UserServiceInterface) {
	params := make(map[string]interface{})
	if email := c.Query("email"); email != "" {
		params["email"] = email
	}
	if role := c.Query("role"); role != "" {
		params["role"] = role
	}

	users, err := userService.GetUsers(params)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}
