// Package front registers the client portal API.
package front

import (
	"github.com/gin-gonic/gin"
	apphttp "github.com/zeyuan/appeal-service/internal/http"
	"github.com/zeyuan/appeal-service/internal/http/api/front/handlers"
)

// RegisterFrontRoutes registers public and authenticated front-end routes.
func RegisterFrontRoutes(r *gin.Engine, svc apphttp.Services) {
	if r == nil || svc.Auth == nil {
		return
	}

	front := r.Group("/v0/front")

	authHandler := handlers.NewAuthHandler(svc.Auth)
	front.POST("/auth/sign-up", authHandler.SignUp)
	front.POST("/auth/sign-in", authHandler.SignIn)

	configHandler := handlers.NewConfigHandler(svc.Config, svc.Settings, svc.Stats)
	front.GET("/config/public", configHandler.Public)
	front.GET("/stats", configHandler.Stats)

	authed := front.Group("")
	authed.Use(apphttp.SessionMiddleware(svc.Auth))

	authed.POST("/auth/sign-out", authHandler.SignOut)

	profileHandler := handlers.NewProfileHandler(svc.Auth)
	authed.GET("/profile", profileHandler.Get)
	authed.PUT("/profile/password", profileHandler.ChangePassword)

	appealHandler := handlers.NewAppealHandler(svc.Appeals)
	authed.GET("/appeals", appealHandler.List)
	authed.POST("/appeals", appealHandler.Submit)
	authed.GET("/appeals/:id/ticket", appealHandler.Ticket)

	transactionHandler := handlers.NewTransactionHandler(svc.Ledger)
	authed.GET("/transactions", transactionHandler.List)
	authed.POST("/recharges", transactionHandler.Recharge)

	eventsHandler := apphttp.NewEventsHandler(svc.Broker)
	authed.GET("/events", eventsHandler.Stream)
}
