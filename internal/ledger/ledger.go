// Package ledger records recharges and deductions against client balances.
package ledger

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/zeyuan/appeal-service/internal/apperr"
	"github.com/zeyuan/appeal-service/internal/models"
	"github.com/zeyuan/appeal-service/internal/store"
)

// RechargeNote is attached to client-initiated recharge requests.
const RechargeNote = "客户在线充值申请"

// Service owns every balance movement.
type Service struct {
	store *store.Store
	now   func() time.Time
}

// New constructs a ledger Service.
func New(s *store.Store) *Service {
	return &Service{store: s, now: time.Now}
}

// DeductionNote describes a deduction for the appeal with the given id.
func DeductionNote(appealID string) string {
	return fmt.Sprintf("申诉通过扣费 (ID: %s)", appealID)
}

// RequestRecharge files a PENDING recharge for user.
func (s *Service) RequestRecharge(ctx context.Context, user *models.User, amount float64) (*models.Transaction, error) {
	if user == nil {
		return nil, apperr.Unauthorized("sign in required")
	}
	if !validAmount(amount) {
		return nil, apperr.Validation("recharge amount must be greater than zero")
	}
	now := s.now().UTC()
	txn := &models.Transaction{
		UserID:    user.ID,
		Username:  user.Username,
		Type:      models.TransactionRecharge,
		Amount:    amount,
		Status:    models.TransactionPending,
		Note:      RechargeNote,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if errCreate := s.store.CreateTransaction(ctx, txn); errCreate != nil {
		return nil, errCreate
	}
	return txn, nil
}

// ApproveRecharge marks a pending recharge APPROVED and credits the balance in one transaction.
func (s *Service) ApproveRecharge(ctx context.Context, txnID string) (*models.Transaction, error) {
	return s.review(ctx, txnID, models.TransactionApproved)
}

// RejectRecharge marks a pending recharge REJECTED. The balance is untouched.
func (s *Service) RejectRecharge(ctx context.Context, txnID string) (*models.Transaction, error) {
	return s.review(ctx, txnID, models.TransactionRejected)
}

func (s *Service) review(ctx context.Context, txnID string, decision models.TransactionStatus) (*models.Transaction, error) {
	var reviewed *models.Transaction
	errTx := s.store.Transaction(ctx, func(tx *store.Store) error {
		txn, errGet := tx.GetTransactionForUpdate(ctx, strings.TrimSpace(txnID))
		if errGet != nil {
			return errGet
		}
		if txn.Type != models.TransactionRecharge {
			return apperr.Validation("only recharge transactions can be reviewed")
		}
		if txn.Status != models.TransactionPending {
			return apperr.Validation("transaction already %s", strings.ToLower(string(txn.Status)))
		}
		if errSet := tx.SetTransactionStatus(ctx, txn, decision); errSet != nil {
			return errSet
		}
		if decision == models.TransactionApproved {
			if errAdjust := tx.AdjustBalance(ctx, txn.UserID, txn.Amount); errAdjust != nil {
				return apperr.Ledger("credit balance", errAdjust)
			}
		}
		reviewed = txn
		return nil
	})
	if errTx != nil {
		return nil, errTx
	}
	log.WithFields(log.Fields{"transaction": reviewed.ID, "user": reviewed.UserID, "status": reviewed.Status}).Info("ledger: recharge reviewed")
	return reviewed, nil
}

// Deduct records an APPROVED deduction for the appeal's owner and decrements the balance.
// It must run on the transactional store of the caller; every failure is a ledger error.
func (s *Service) Deduct(ctx context.Context, tx *store.Store, appeal *models.Appeal, amount float64) (*models.Transaction, error) {
	if !validAmount(amount) {
		return nil, apperr.Ledger("invalid deduction amount", fmt.Errorf("amount %v", amount))
	}
	now := s.now().UTC()
	appealID := appeal.ID
	txn := &models.Transaction{
		UserID:    appeal.UserID,
		Username:  appeal.Username,
		Type:      models.TransactionDeduction,
		Amount:    amount,
		Status:    models.TransactionApproved,
		Note:      DeductionNote(appeal.ID),
		AppealID:  &appealID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if errCreate := tx.CreateTransaction(ctx, txn); errCreate != nil {
		return nil, apperr.Ledger("record deduction", errCreate)
	}
	if errAdjust := tx.AdjustBalance(ctx, appeal.UserID, -amount); errAdjust != nil {
		return nil, apperr.Ledger("debit balance", errAdjust)
	}
	return txn, nil
}

// List returns ledger entries matching f.
func (s *Service) List(ctx context.Context, f store.TransactionFilter) ([]models.Transaction, error) {
	return s.store.ListTransactions(ctx, f)
}

// ListForUser returns the user's own entries.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]models.Transaction, error) {
	return s.store.ListTransactions(ctx, store.TransactionFilter{UserID: userID})
}

func validAmount(amount float64) bool {
	return amount > 0 && !math.IsInf(amount, 0) && !math.IsNaN(amount)
}
