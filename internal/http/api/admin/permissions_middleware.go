package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zeyuan/appeal-service/internal/apperr"
	apphttp "github.com/zeyuan/appeal-service/internal/http"
	permissions "github.com/zeyuan/appeal-service/internal/http/api/admin/permissions"
)

// adminPermissionMiddleware enforces the role listed for each admin route.
// Routes missing from the definition table are denied.
func adminPermissionMiddleware() gin.HandlerFunc {
	permissionMap := permissions.DefinitionMap()

	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		path := c.FullPath()
		if path == "" {
			apphttp.RespondError(c, apperr.Forbidden("permission denied"))
			c.Abort()
			return
		}

		definition, ok := permissionMap[permissions.Key(c.Request.Method, path)]
		if !ok {
			apphttp.RespondError(c, apperr.Forbidden("permission denied"))
			c.Abort()
			return
		}

		user := apphttp.CurrentUser(c)
		if user == nil {
			apphttp.RespondError(c, apperr.Unauthorized("admin not found"))
			c.Abort()
			return
		}
		if !permissions.Allows(user.Role, definition) {
			apphttp.RespondError(c, apperr.Forbidden("permission denied"))
			c.Abort()
			return
		}

		c.Next()
	}
}
