package handlers

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zeyuan/appeal-service/internal/apperr"
	"github.com/zeyuan/appeal-service/internal/export"
	apphttp "github.com/zeyuan/appeal-service/internal/http"
	"github.com/zeyuan/appeal-service/internal/kb"
	"github.com/zeyuan/appeal-service/internal/poa"
	"github.com/zeyuan/appeal-service/internal/storage"
)

// POAHandler drafts and exports Plan of Action letters.
type POAHandler struct {
	poa *poa.Service
	loc *time.Location
	now func() time.Time
}

// NewPOAHandler constructs a POAHandler.
func NewPOAHandler(p *poa.Service, loc *time.Location) *POAHandler {
	if loc == nil {
		loc = time.Local
	}
	return &POAHandler{poa: p, loc: loc, now: time.Now}
}

// Types returns the violation catalog.
func (h *POAHandler) Types(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"types": kb.Catalog()})
}

// Generate drafts a letter. The body is JSON or a multipart form with an optional
// evidence spreadsheet whose flattened text is appended to table_data.
func (h *POAHandler) Generate(c *gin.Context) {
	var req poa.Request
	if errBind := c.ShouldBind(&req); errBind != nil {
		apphttp.BadRequest(c, "invalid request body")
		return
	}

	truncated := false
	if fileHeader, errFile := c.FormFile("evidence"); errFile == nil {
		if fileHeader.Size > storage.MaxEvidenceBytes {
			apphttp.BadRequest(c, "evidence file is too large")
			return
		}
		f, errOpen := fileHeader.Open()
		if errOpen != nil {
			apphttp.RespondError(c, apperr.Upload("read evidence file", errOpen))
			return
		}
		data, errRead := io.ReadAll(f)
		_ = f.Close()
		if errRead != nil {
			apphttp.RespondError(c, apperr.Upload("read evidence file", errRead))
			return
		}
		extract, errFlatten := h.poa.FlattenEvidence(c.Request.Context(), fileHeader.Filename, fileHeader.Header.Get("Content-Type"), data)
		if errFlatten != nil {
			apphttp.RespondError(c, errFlatten)
			return
		}
		truncated = extract.Truncated
		if existing := strings.TrimSpace(req.TableData); existing != "" {
			req.TableData = existing + "\n\n" + extract.Text
		} else {
			req.TableData = extract.Text
		}
	}

	result, errGenerate := h.poa.Generate(c.Request.Context(), req)
	if errGenerate != nil {
		apphttp.RespondError(c, errGenerate)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"text":               result.Text,
		"references":         result.References,
		"staff":              result.Staff,
		"evidence_truncated": truncated,
	})
}

type exportRequest struct {
	Text      string `json:"text"`
	StoreName string `json:"store_name"`
}

// Export downloads a letter as a Word-compatible .doc file.
func (h *POAHandler) Export(c *gin.Context) {
	var body exportRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		apphttp.BadRequest(c, "invalid json")
		return
	}
	if strings.TrimSpace(body.Text) == "" {
		apphttp.BadRequest(c, "text is required")
		return
	}
	c.Header("Content-Disposition", export.ContentDisposition(export.WordFilename(body.StoreName, h.now().In(h.loc))))
	c.Data(http.StatusOK, export.WordContentType, []byte(export.WordDocument(body.Text)))
}
