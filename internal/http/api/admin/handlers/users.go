package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apphttp "github.com/zeyuan/appeal-service/internal/http"
	"github.com/zeyuan/appeal-service/internal/users"
)

// UserHandler serves the super-admin account directory.
type UserHandler struct {
	users *users.Service
}

// NewUserHandler constructs a UserHandler.
func NewUserHandler(u *users.Service) *UserHandler {
	return &UserHandler{users: u}
}

// List returns every account.
func (h *UserHandler) List(c *gin.Context) {
	rows, errList := h.users.List(c.Request.Context(), apphttp.CurrentUser(c))
	if errList != nil {
		apphttp.RespondError(c, errList)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": rows})
}

// Update changes balance, phone or role of an account.
func (h *UserHandler) Update(c *gin.Context) {
	var body users.Update
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		apphttp.BadRequest(c, "invalid json")
		return
	}
	updated, errUpdate := h.users.UpdateAnyUser(c.Request.Context(), apphttp.CurrentUser(c), c.Param("id"), body)
	if errUpdate != nil {
		apphttp.RespondError(c, errUpdate)
		return
	}
	c.JSON(http.StatusOK, updated)
}
