package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apphttp "github.com/zeyuan/appeal-service/internal/http"
	"github.com/zeyuan/appeal-service/internal/settings"
	"github.com/zeyuan/appeal-service/internal/stats"
	"github.com/zeyuan/appeal-service/internal/sysconfig"
)

// publicConfigResponse is the response payload for public config.
type publicConfigResponse struct {
	SiteName         string `json:"site_name"`
	RegistrationOpen bool   `json:"registration_open"`
	ContactInfo      string `json:"contactInfo"`
	PaymentQRURL     string `json:"paymentQrUrl"`
}

// ConfigHandler serves the public dashboard data.
type ConfigHandler struct {
	config   *sysconfig.Service
	settings *settings.Store
	stats    *stats.Service
}

// NewConfigHandler constructs a ConfigHandler. A nil settings store serves defaults.
func NewConfigHandler(config *sysconfig.Service, st *settings.Store, statsService *stats.Service) *ConfigHandler {
	return &ConfigHandler{config: config, settings: st, stats: statsService}
}

// Public returns the contact details and payment QR shown to clients.
func (h *ConfigHandler) Public(c *gin.Context) {
	cfg, errLoad := h.config.Load(c.Request.Context())
	if errLoad != nil {
		apphttp.RespondError(c, errLoad)
		return
	}
	c.JSON(http.StatusOK, publicConfigResponse{
		SiteName:         h.settings.String(settings.SiteNameKey, settings.DefaultSiteName),
		RegistrationOpen: h.settings.Bool(settings.RegistrationOpenKey, settings.DefaultRegistrationOpen),
		ContactInfo:      cfg.ContactInfo,
		PaymentQRURL:     cfg.PaymentQRURL,
	})
}

// Stats returns the blended marketing numbers.
func (h *ConfigHandler) Stats(c *gin.Context) {
	display, errStats := h.stats.Display(c.Request.Context())
	if errStats != nil {
		apphttp.RespondError(c, errStats)
		return
	}
	c.JSON(http.StatusOK, display)
}
