package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apphttp "github.com/zeyuan/appeal-service/internal/http"
	"github.com/zeyuan/appeal-service/internal/ledger"
)

// TransactionHandler serves a client's ledger.
type TransactionHandler struct {
	ledger *ledger.Service
}

// NewTransactionHandler constructs a TransactionHandler.
func NewTransactionHandler(l *ledger.Service) *TransactionHandler {
	return &TransactionHandler{ledger: l}
}

// List returns the caller's recharges and deductions.
func (h *TransactionHandler) List(c *gin.Context) {
	rows, errList := h.ledger.ListForUser(c.Request.Context(), apphttp.CurrentUser(c).ID)
	if errList != nil {
		apphttp.RespondError(c, errList)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": rows})
}

type rechargeRequest struct {
	Amount float64 `json:"amount"`
}

// Recharge files a pending recharge request for admin review.
func (h *TransactionHandler) Recharge(c *gin.Context) {
	var body rechargeRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		apphttp.BadRequest(c, "invalid json")
		return
	}
	txn, errRequest := h.ledger.RequestRecharge(c.Request.Context(), apphttp.CurrentUser(c), body.Amount)
	if errRequest != nil {
		apphttp.RespondError(c, errRequest)
		return
	}
	c.JSON(http.StatusCreated, txn)
}
