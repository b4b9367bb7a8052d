package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/zeyuan/appeal-service/internal/auth"
	apphttp "github.com/zeyuan/appeal-service/internal/http"
)

// ProfileHandler serves the signed-in account.
type ProfileHandler struct {
	auth *auth.Service
}

// NewProfileHandler constructs a ProfileHandler.
func NewProfileHandler(authService *auth.Service) *ProfileHandler {
	return &ProfileHandler{auth: authService}
}

// Get returns the current account with its balance.
func (h *ProfileHandler) Get(c *gin.Context) {
	c.JSON(http.StatusOK, apphttp.CurrentUser(c))
}

// changePasswordRequest defines the request body for password changes.
type changePasswordRequest struct {
	NewPassword string `json:"new_password"`
}

// ChangePassword replaces the account password.
func (h *ProfileHandler) ChangePassword(c *gin.Context) {
	var body changePasswordRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		apphttp.BadRequest(c, "invalid json")
		return
	}
	newPassword := strings.TrimSpace(body.NewPassword)
	if newPassword == "" {
		apphttp.BadRequest(c, "missing password")
		return
	}
	if errChange := h.auth.ChangePassword(c.Request.Context(), apphttp.CurrentUser(c).ID, newPassword); errChange != nil {
		apphttp.RespondError(c, errChange)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
