package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zeyuan/appeal-service/internal/appeal"
	"github.com/zeyuan/appeal-service/internal/apperr"
	apphttp "github.com/zeyuan/appeal-service/internal/http"
)

// AppealHandler serves a client's own appeals.
type AppealHandler struct {
	appeals *appeal.Service
}

// NewAppealHandler constructs an AppealHandler.
func NewAppealHandler(appeals *appeal.Service) *AppealHandler {
	return &AppealHandler{appeals: appeals}
}

// List returns the caller's appeals newest first.
func (h *AppealHandler) List(c *gin.Context) {
	rows, errList := h.appeals.ListForUser(c.Request.Context(), apphttp.CurrentUser(c).ID)
	if errList != nil {
		apphttp.RespondError(c, errList)
		return
	}
	c.JSON(http.StatusOK, gin.H{"appeals": rows})
}

// Submit creates an appeal from form fields and an optional evidence file.
func (h *AppealHandler) Submit(c *gin.Context) {
	var body appeal.SubmitInput
	if errBind := c.ShouldBind(&body); errBind != nil {
		apphttp.BadRequest(c, "invalid request body")
		return
	}

	var evidence *appeal.Evidence
	if fileHeader, errFile := c.FormFile("evidence"); errFile == nil {
		file, errOpen := fileHeader.Open()
		if errOpen != nil {
			apphttp.RespondError(c, apperr.Upload("read evidence file", errOpen))
			return
		}
		defer file.Close()
		evidence = &appeal.Evidence{
			Name:        fileHeader.Filename,
			ContentType: fileHeader.Header.Get("Content-Type"),
			Size:        fileHeader.Size,
			Body:        file,
		}
	}

	created, errSubmit := h.appeals.Submit(c.Request.Context(), apphttp.CurrentUser(c), body, evidence)
	if errSubmit != nil {
		apphttp.RespondError(c, errSubmit)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"appeal": created,
		"ticket": appeal.TicketText(created),
	})
}

// Ticket returns the text a client copies to customer service.
func (h *AppealHandler) Ticket(c *gin.Context) {
	row, errGet := h.appeals.Get(c.Request.Context(), apphttp.CurrentUser(c), c.Param("id"))
	if errGet != nil {
		apphttp.RespondError(c, errGet)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ticket": appeal.TicketText(row)})
}
