package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zeyuan/appeal-service/internal/auth"
	apphttp "github.com/zeyuan/appeal-service/internal/http"
)

// AuthHandler handles client authentication endpoints.
type AuthHandler struct {
	auth *auth.Service
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(authService *auth.Service) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// SignUp creates a client account and returns its first session.
func (h *AuthHandler) SignUp(c *gin.Context) {
	var body auth.SignUpInput
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		apphttp.BadRequest(c, "invalid json")
		return
	}
	session, errSignUp := h.auth.SignUp(c.Request.Context(), body)
	if errSignUp != nil {
		apphttp.RespondError(c, errSignUp)
		return
	}
	c.JSON(http.StatusCreated, session)
}

// signInRequest defines the request body for sign-in.
type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignIn checks credentials and issues a session.
func (h *AuthHandler) SignIn(c *gin.Context) {
	var body signInRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		apphttp.BadRequest(c, "invalid json")
		return
	}
	session, errSignIn := h.auth.SignIn(c.Request.Context(), body.Email, body.Password, "")
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
