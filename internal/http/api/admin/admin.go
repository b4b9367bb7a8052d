// Package admin registers the back office API.
package admin

import (
	"github.com/gin-gonic/gin"
	apphttp "github.com/zeyuan/appeal-service/internal/http"
	"github.com/zeyuan/appeal-service/internal/http/api/admin/handlers"
)

// RegisterAdminRoutes registers /v0/admin. Every route except sign-in requires a staff
// session and the role listed in the permissions table.
func RegisterAdminRoutes(r *gin.Engine, svc apphttp.Services) {
	if r == nil || svc.Auth == nil {
		return
	}

	admin := r.Group("/v0/admin")

	authHandler := handlers.NewAuthHandler(svc.Auth)
	admin.POST("/auth/sign-in", authHandler.SignIn)

	authed := admin.Group("")
	authed.Use(apphttp.SessionMiddleware(svc.Auth), apphttp.RequireStaff(), adminPermissionMiddleware())

	authed.GET("/me", authHandler.Me)
	authed.POST("/auth/sign-out", authHandler.SignOut)
	authed.GET("/permissions", handlers.ListPermissions)

	mfaHandler := handlers.NewMFAHandler(svc.Auth)
	authed.POST("/mfa/totp/setup", mfaHandler.SetupTOTP)
	authed.POST("/mfa/totp/confirm", mfaHandler.ConfirmTOTP)

	appealHandler := handlers.NewAppealHandler(svc.Appeals, svc.Settings, svc.Location)
	authed.GET("/appeals", appealHandler.List)
	authed.GET("/appeals/export", appealHandler.Export)
	authed.GET("/appeals/:id", appealHandler.Get)
	authed.PUT("/appeals/:id", appealHandler.Transition)

	transactionHandler := handlers.NewTransactionHandler(svc.Ledger)
	authed.GET("/transactions", transactionHandler.List)
	authed.POST("/recharges/:id/approve", transactionHandler.Approve)
	authed.POST("/recharges/:id/reject", transactionHandler.Reject)

	configHandler := handlers.NewConfigHandler(svc.Config, svc.Stats)
	authed.GET("/config", configHandler.Get)
	authed.PUT("/config", configHandler.Put)
	authed.POST("/config/qr", configHandler.UploadQR)
	authed.GET("/stats", configHandler.Stats)

	userHandler := handlers.NewUserHandler(svc.Users)
	authed.GET("/users", userHandler.List)
	authed.PUT("/users/:id", userHandler.Update)

	kbHandler := handlers.NewKnowledgeBaseHandler(svc.KB)
	authed.GET("/kb", kbHandler.List)
	authed.POST("/kb", kbHandler.Create)
	authed.DELETE("/kb/:id", kbHandler.Delete)
	authed.POST("/kb/import", kbHandler.Import)
	authed.POST("/kb/archive", kbHandler.Archive)

	poaHandler := handlers.NewPOAHandler(svc.POA, svc.Location)
	authed.GET("/poa/types", poaHandler.Types)
	authed.POST("/poa/generate", poaHandler.Generate)
	authed.POST("/poa/export", poaHandler.Export)

	eventsHandler := apphttp.NewEventsHandler(svc.Broker)
	authed.GET("/events", eventsHandler.Stream)
}
