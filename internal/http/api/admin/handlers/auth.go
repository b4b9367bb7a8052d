package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zeyuan/appeal-service/internal/auth"
	apphttp "github.com/zeyuan/appeal-service/internal/http"
)

// AuthHandler handles admin authentication endpoints.
type AuthHandler struct {
	auth *auth.Service
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(authService *auth.Service) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// signInRequest defines the request body for admin sign-in.
type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	TOTPCode string `json:"totp_code"`
}

// SignIn authenticates a staff account. Accounts with TOTP enrolled must send totp_code.
func (h *AuthHandler) SignIn(c *gin.Context) {
	var body signInRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		apphttp.BadRequest(c, "invalid json")
		return
	}
	session, errSignIn := h.auth.SignInStaff(c.Request.Context(), body.Email, body.Password, body.TOTPCode)
	if errSignIn != nil {
		apphttp.RespondError(c, errSignIn)
		return
	}
	c.JSON(http.StatusOK, session)
}

// SignOut revokes the current token.
func (h *AuthHandler) SignOut(c *gin.Context) {
	if errSignOut := h.auth.SignOut(c.Request.Context(), apphttp.CurrentToken(c)); errSignOut != nil {
		apphttp.RespondError(c, errSignOut)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Me returns the signed-in staff account.
func (h *AuthHandler) Me(c *gin.Context) {
	user := apphttp.CurrentUser(c)
	c.JSON(http.StatusOK, gin.H{
		"user":         user,
		"totp_enabled": user.TOTPSecret != "",
	})
}
