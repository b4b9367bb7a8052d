package handlers

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zeyuan/appeal-service/internal/appeal"
	"github.com/zeyuan/appeal-service/internal/export"
	apphttp "github.com/zeyuan/appeal-service/internal/http"
	"github.com/zeyuan/appeal-service/internal/models"
	"github.com/zeyuan/appeal-service/internal/settings"
	"github.com/zeyuan/appeal-service/internal/store"
)

// AppealHandler serves the admin appeal queue.
type AppealHandler struct {
	appeals  *appeal.Service
	settings *settings.Store
	loc      *time.Location
	now      func() time.Time
}

// NewAppealHandler constructs an AppealHandler. loc renders export timestamps.
func NewAppealHandler(appeals *appeal.Service, st *settings.Store, loc *time.Location) *AppealHandler {
	if loc == nil {
		loc = time.Local
	}
	return &AppealHandler{appeals: appeals, settings: st, loc: loc, now: time.Now}
}

func appealFilterFromQuery(c *gin.Context) store.AppealFilter {
	f := store.AppealFilter{
		Query:  strings.TrimSpace(c.Query("q")),
		Status: models.AppealStatus(strings.ToUpper(strings.TrimSpace(c.Query("status")))),
	}
	if f.Status == "ALL" {
		f.Status = ""
	}
	if limit, errLimit := strconv.Atoi(c.Query("limit")); errLimit == nil && limit > 0 {
		f.Limit = limit
	}
	if offset, errOffset := strconv.Atoi(c.Query("offset")); errOffset == nil && offset > 0 {
		f.Offset = offset
	}
	return f
}

// List searches appeals by q (email, username, account type or id) and status.
func (h *AppealHandler) List(c *gin.Context) {
	rows, errSearch := h.appeals.Search(c.Request.Context(), appealFilterFromQuery(c))
	if errSearch != nil {
		apphttp.RespondError(c, errSearch)
		return
	}
	c.JSON(http.StatusOK, gin.H{"appeals": rows})
}

// Get returns one appeal with the deduction amount pre-filled in the pass dialog.
func (h *AppealHandler) Get(c *gin.Context) {
	row, errGet := h.appeals.Get(c.Request.Context(), apphttp.CurrentUser(c), c.Param("id"))
	if errGet != nil {
		apphttp.RespondError(c, errGet)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"appeal":            row,
		"default_deduction": h.settings.Float(settings.DefaultDeductionKey, settings.DefaultDeductionAmount),
	})
}

// Transition applies a status decision. PASSED with a positive amount charges the owner.
func (h *AppealHandler) Transition(c *gin.Context) {
	var body appeal.TransitionInput
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		apphttp.BadRequest(c, "invalid json")
		return
	}
	body.Status = models.AppealStatus(strings.ToUpper(strings.TrimSpace(string(body.Status))))
	updated, errTransition := h.appeals.Transition(c.Request.Context(), c.Param("id"), body)
	if errTransition != nil {
		apphttp.RespondError(c, errTransition)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// Export downloads the filtered appeals as a CSV file.
func (h *AppealHandler) Export(c *gin.Context) {
	f := appealFilterFromQuery(c)
	f.Page = store.Page{}
	rows, errSearch := h.appeals.Search(c.Request.Context(), f)
	if errSearch != nil {
		apphttp.RespondError(c, errSearch)
		return
	}
	var buf bytes.Buffer
	if errWrite := export.AppealsCSV(&buf, rows, h.loc); errWrite != nil {
		apphttp.RespondError(c, errWrite)
		return
	}
	c.Header("Content-Disposition", export.ContentDisposition(export.AppealsFilename(h.now().In(h.loc))))
	c.Data(http.StatusOK, export.CSVContentType, buf.Bytes())
}
