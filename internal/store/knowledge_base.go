package store

import (
	"context"

	"github.com/zeyuan/appeal-service/internal/apperr"
	dbutil "github.com/zeyuan/appeal-service/internal/db"
	"github.com/zeyuan/appeal-service/internal/models"
	"github.com/zeyuan/appeal-service/internal/realtime"
	"gorm.io/gorm"
)

// ListKnowledgeBase returns every item, most used first.
func (s *Store) ListKnowledgeBase(ctx context.Context) ([]models.KnowledgeBaseItem, error) {
	var rows []models.KnowledgeBaseItem
	if errFind := s.db.WithContext(ctx).Order("usage_count DESC").Order("created_at DESC").Find(&rows).Error; errFind != nil {
		return nil, translateRead(errFind, "knowledge base")
	}
	return rows, nil
}

// SearchKnowledgeBase returns up to limit items of the type and subtype, most used first.
func (s *Store) SearchKnowledgeBase(ctx context.Context, poaType, subType string, limit int) ([]models.KnowledgeBaseItem, error) {
	q := s.db.WithContext(ctx).
		Where("type = ? AND sub_type = ?", poaType, subType).
		Order("usage_count DESC").
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []models.KnowledgeBaseItem
	if errFind := q.Find(&rows).Error; errFind != nil {
		return nil, translateRead(errFind, "knowledge base")
	}
	return rows, nil
}

// CreateKnowledgeBaseItem inserts an item. A duplicate title is a validation error.
func (s *Store) CreateKnowledgeBaseItem(ctx context.Context, item *models.KnowledgeBaseItem) error {
	if errCreate := s.db.WithContext(ctx).Create(item).Error; errCreate != nil {
		if dbutil.IsUniqueViolation(errCreate) {
			return apperr.Validation("knowledge base title %q already exists", item.Title)
		}
		return translate(errCreate, "knowledge base item")
	}
	s.emit(ctx, realtime.CollectionKnowledgeBase, realtime.OpInsert, item.ID, "")
	return nil
}

// DeleteKnowledgeBaseItem removes an item by id.
func (s *Store) DeleteKnowledgeBaseItem(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.KnowledgeBaseItem{})
	if res.Error != nil {
		return translate(res.Error, "knowledge base item")
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("knowledge base item not found")
	}
	s.emit(ctx, realtime.CollectionKnowledgeBase, realtime.OpDelete, id, "")
	return nil
}

// IncrementKnowledgeBaseUsage adds one to an item's usage count.
func (s *Store) IncrementKnowledgeBaseUsage(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Model(&models.KnowledgeBaseItem{}).
		Where("id = ?", id).
		UpdateColumn("usage_count", gorm.Expr("usage_count + 1"))
	if res.Error != nil {
		return translate(res.Error, "knowledge base item")
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("knowledge base item not found")
	}
	s.emit(ctx, realtime.CollectionKnowledgeBase, realtime.OpUpdate, id, "")
	return nil
}

// KnowledgeBaseTitles returns the set of existing titles.
func (s *Store) KnowledgeBaseTitles(ctx context.Context) (map[string]struct{}, error) {
	var titles []string
	if errPluck := s.db.WithContext(ctx).Model(&models.KnowledgeBaseItem{}).Pluck("title", &titles).Error; errPluck != nil {
		return nil, translateRead(errPluck, "knowledge base")
	}
	out := make(map[string]struct{}, len(titles))
	for _, title := range titles {
		out[title] = struct{}{}
	}
	return out, nil
}
