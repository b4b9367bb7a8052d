package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	apphttp "github.com/zeyuan/appeal-service/internal/http"
	"github.com/zeyuan/appeal-service/internal/ledger"
	"github.com/zeyuan/appeal-service/internal/models"
	"github.com/zeyuan/appeal-service/internal/store"
)

// TransactionHandler serves the admin ledger views.
type TransactionHandler struct {
	ledger *ledger.Service
}

// NewTransactionHandler constructs a TransactionHandler.
func NewTransactionHandler(l *ledger.Service) *TransactionHandler {
	return &TransactionHandler{ledger: l}
}

// List returns ledger entries filtered by type, status and user_id.
func (h *TransactionHandler) List(c *gin.Context) {
	rows, errList := h.ledger.List(c.Request.Context(), store.TransactionFilter{
		UserID: strings.TrimSpace(c.Query("user_id")),
		Type:   models.TransactionType(strings.ToUpper(strings.TrimSpace(c.Query("type")))),
		Status: models.TransactionStatus(strings.ToUpper(strings.TrimSpace(c.Query("status")))),
	})
	if errList != nil {
		apphttp.RespondError(c, errList)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": rows})
}

// Approve credits a pending recharge.
func (h *TransactionHandler) Approve(c *gin.Context) {
	txn, errApprove := h.ledger.ApproveRecharge(c.Request.Context(), c.Param("id"))
	if errApprove != nil {
		apphttp.RespondError(c, errApprove)
		return
	}
	c.JSON(http.StatusOK, txn)
}

// Reject declines a pending recharge.
func (h *TransactionHandler) Reject(c *gin.Context) {
	txn, errReject := h.ledger.RejectRecharge(c.Request.Context(), c.Param("id"))
	if errReject != nil {
		apphttp.RespondError(c, errReject)
		return
	}
	c.JSON(http.StatusOK, txn)
}
