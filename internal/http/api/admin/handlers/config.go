package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zeyuan/appeal-service/internal/apperr"
	apphttp "github.com/zeyuan/appeal-service/internal/http"
	"github.com/zeyuan/appeal-service/internal/stats"
	"github.com/zeyuan/appeal-service/internal/sysconfig"
)

// maxQRBytes caps a payment QR upload.
const maxQRBytes = 2 << 20

// ConfigHandler edits the system config document.
type ConfigHandler struct {
	config *sysconfig.Service
	stats  *stats.Service
}

// NewConfigHandler constructs a ConfigHandler.
func NewConfigHandler(config *sysconfig.Service, statsService *stats.Service) *ConfigHandler {
	return &ConfigHandler{config: config, stats: statsService}
}

// Get returns the current document with defaults filled in.
func (h *ConfigHandler) Get(c *gin.Context) {
	cfg, errLoad := h.config.Load(c.Request.Context())
	if errLoad != nil {
		apphttp.RespondError(c, errLoad)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

// Put overwrites the document.
func (h *ConfigHandler) Put(c *gin.Context) {
	var body sysconfig.SystemConfig
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		apphttp.BadRequest(c, "invalid json")
		return
	}
	if errSave := h.config.Save(c.Request.Context(), body); errSave != nil {
		apphttp.RespondError(c, errSave)
		return
	}
	c.JSON(http.StatusOK, body.WithDefaults())
}

// UploadQR stores the payment QR image sent as the qr form file.
func (h *ConfigHandler) UploadQR(c *gin.Context) {
	fileHeader, errFile := c.FormFile("qr")
	if errFile != nil {
		apphttp.BadRequest(c, "missing qr file")
		return
	}
	if fileHeader.Size > maxQRBytes {
		apphttp.BadRequest(c, "qr image is too large")
		return
	}
	file, errOpen := fileHeader.Open()
	if errOpen != nil {
		apphttp.RespondError(c, apperr.Upload("read qr file", errOpen))
		return
	}
	defer file.Close()

	cfg, errSave := h.config.SaveQR(c.Request.Context(), fileHeader.Filename, fileHeader.Header.Get("Content-Type"), file)
	if errSave != nil {
		apphttp.RespondError(c, errSave)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

// Stats previews the dashboard numbers clients see.
func (h *ConfigHandler) Stats(c *gin.Context) {
	display, errStats := h.stats.Display(c.Request.Context())
	if errStats != nil {
		apphttp.RespondError(c, errStats)
		return
	}
	c.JSON(http.StatusOK, display)
}
