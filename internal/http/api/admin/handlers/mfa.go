package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zeyuan/appeal-service/internal/auth"
	apphttp "github.com/zeyuan/appeal-service/internal/http"
)

// MFAHandler manages TOTP enrollment for staff accounts.
type MFAHandler struct {
	auth *auth.Service
}

// NewMFAHandler constructs an MFAHandler.
func NewMFAHandler(authService *auth.Service) *MFAHandler {
	return &MFAHandler{auth: authService}
}

// SetupTOTP generates a pending secret and its QR code.
func (h *MFAHandler) SetupTOTP(c *gin.Context) {
	enrollment, errBegin := h.auth.BeginTOTP(c.Request.Context(), apphttp.CurrentUser(c))
	if errBegin != nil {
		apphttp.RespondError(c, errBegin)
		return
	}
	c.JSON(http.StatusOK, enrollment)
}

type confirmTOTPRequest struct {
	Code string `json:"code"`
}

// ConfirmTOTP activates the pending secret.
func (h *MFAHandler) ConfirmTOTP(c *gin.Context) {
	var body confirmTOTPRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		apphttp.BadRequest(c, "invalid json")
		return
	}
	if errConfirm := h.auth.ConfirmTOTP(c.Request.Context(), apphttp.CurrentUser(c), body.Code); errConfirm != nil {
		apphttp.RespondError(c, errConfirm)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
