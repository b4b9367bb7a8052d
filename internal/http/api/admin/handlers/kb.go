package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zeyuan/appeal-service/internal/apperr"
	apphttp "github.com/zeyuan/appeal-service/internal/http"
	"github.com/zeyuan/appeal-service/internal/kb"
	"github.com/zeyuan/appeal-service/internal/storage"
)

// maxImportFiles caps one bulk import.
const maxImportFiles = 200

// KnowledgeBaseHandler manages reference letters.
type KnowledgeBaseHandler struct {
	kb *kb.Service
}

// NewKnowledgeBaseHandler constructs a KnowledgeBaseHandler.
func NewKnowledgeBaseHandler(k *kb.Service) *KnowledgeBaseHandler {
	return &KnowledgeBaseHandler{kb: k}
}

// List returns every letter, most used first.
func (h *KnowledgeBaseHandler) List(c *gin.Context) {
	items, errList := h.kb.List(c.Request.Context(), apphttp.CurrentUser(c))
	if errList != nil {
		apphttp.RespondError(c, errList)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// Create adds one letter.
func (h *KnowledgeBaseHandler) Create(c *gin.Context) {
	var body kb.Item
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		apphttp.BadRequest(c, "invalid json")
		return
	}
	item, errAdd := h.kb.Add(c.Request.Context(), apphttp.CurrentUser(c), body)
	if errAdd != nil {
		apphttp.RespondError(c, errAdd)
		return
	}
	c.JSON(http.StatusCreated, item)
}

// Delete removes one letter.
func (h *KnowledgeBaseHandler) Delete(c *gin.Context) {
	if errDelete := h.kb.Delete(c.Request.Context(), apphttp.CurrentUser(c), c.Param("id")); errDelete != nil {
		apphttp.RespondError(c, errDelete)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Import bulk-loads .docx letters sent as repeated files form fields.
func (h *KnowledgeBaseHandler) Import(c *gin.Context) {
	form, errForm := c.MultipartForm()
	if errForm != nil {
		apphttp.BadRequest(c, "invalid multipart form")
		return
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		apphttp.BadRequest(c, "no files uploaded")
		return
	}
	if len(headers) > maxImportFiles {
		apphttp.BadRequest(c, "too many files")
		return
	}

	files := make([]kb.ImportFile, 0, len(headers))
	for _, fh := range headers {
		if fh.Size > storage.MaxEvidenceBytes {
			files = append(files, kb.ImportFile{Name: fh.Filename})
			continue
		}
		f, errOpen := fh.Open()
		if errOpen != nil {
			apphttp.RespondError(c, apperr.Upload("read uploaded file", errOpen))
			return
		}
		data, errRead := io.ReadAll(f)
		_ = f.Close()
		if errRead != nil {
			apphttp.RespondError(c, apperr.Upload("read uploaded file", errRead))
			return
		}
		files = append(files, kb.ImportFile{Name: fh.Filename, Data: data})
	}

	report, errImport := h.kb.ImportDocx(c.Request.Context(), apphttp.CurrentUser(c), files)
	if errImport != nil {
		apphttp.RespondError(c, errImport)
		return
	}
	c.JSON(http.StatusOK, report)
}

// Archive keeps a generated letter as a new reference.
func (h *KnowledgeBaseHandler) Archive(c *gin.Context) {
	var body kb.ArchiveInput
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		apphttp.BadRequest(c, "invalid json")
		return
	}
	item, errArchive := h.kb.Archive(c.Request.Context(), apphttp.CurrentUser(c), body)
	if errArchive != nil {
		apphttp.RespondError(c, errArchive)
		return
	}
	c.JSON(http.StatusCreated, item)
}
