package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apphttp "github.com/zeyuan/appeal-service/internal/http"
	permissions "github.com/zeyuan/appeal-service/internal/http/api/admin/permissions"
)

// ListPermissions returns the admin routes the caller's role may use.
func ListPermissions(c *gin.Context) {
	user := apphttp.CurrentUser(c)
	c.JSON(http.StatusOK, gin.H{
		"role":        user.Role,
		"permissions": permissions.ForRole(user.Role),
	})
}
