package store

import (
	"context"
	"time"

	"github.com/zeyuan/appeal-service/internal/models"
	"github.com/zeyuan/appeal-service/internal/realtime"
	"gorm.io/gorm/clause"
)

// TransactionFilter narrows ListTransactions.
type TransactionFilter struct {
	UserID string                   // Owner; empty lists every user.
	Type   models.TransactionType   // Empty matches both types.
	Status models.TransactionStatus // Empty matches every status.
	Page
}

// CreateTransaction inserts a ledger entry.
func (s *Store) CreateTransaction(ctx context.Context, txn *models.Transaction) error {
	if errCreate := s.db.WithContext(ctx).Create(txn).Error; errCreate != nil {
		return translate(errCreate, "transaction")
	}
	s.emit(ctx, realtime.CollectionTransactions, realtime.OpInsert, txn.ID, txn.UserID)
	return nil
}

// GetTransaction loads a ledger entry by id.
func (s *Store) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	var txn models.Transaction
	if errFind := s.db.WithContext(ctx).Where("id = ?", id).First(&txn).Error; errFind != nil {
		return nil, translateRead(errFind, "transaction")
	}
	return &txn, nil
}

// GetTransactionForUpdate loads a ledger entry and locks its row.
func (s *Store) GetTransactionForUpdate(ctx context.Context, id string) (*models.Transaction, error) {
	var txn models.Transaction
	errFind := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&txn).Error
	if errFind != nil {
		return nil, translateRead(errFind, "transaction")
	}
	return &txn, nil
}

// SetTransactionStatus records a review decision.
func (s *Store) SetTransactionStatus(ctx context.Context, txn *models.Transaction, status models.TransactionStatus) error {
	now := time.Now().UTC()
	res := s.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("id = ?", txn.ID).
		Updates(map[string]any{"status": status, "updated_at": now})
	if res.Error != nil {
		return translate(res.Error, "transaction")
	}
	txn.Status = status
	txn.UpdatedAt = now
	s.emit(ctx, realtime.CollectionTransactions, realtime.OpUpdate, txn.ID, txn.UserID)
	return nil
}

// ListTransactions returns ledger entries newest first.
func (s *Store) ListTransactions(ctx context.Context, f TransactionFilter) ([]models.Transaction, error) {
	q := s.db.WithContext(ctx).Model(&models.Transaction{})
	if f.UserID != "" {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	var rows []models.Transaction
	if errFind := f.Page.apply(q.Order("created_at DESC")).Find(&rows).Error; errFind != nil {
		return nil, translateRead(errFind, "transactions")
	}
	return rows, nil
}
