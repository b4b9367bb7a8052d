package store

import (
	"context"
	"strings"

	dbutil "github.com/zeyuan/appeal-service/internal/db"
	"github.com/zeyuan/appeal-service/internal/models"
	"github.com/zeyuan/appeal-service/internal/realtime"
	"gorm.io/gorm/clause"
)

// AppealFilter narrows ListAppeals.
type AppealFilter struct {
	UserID string              // Owner; empty lists every user.
	Status models.AppealStatus // Empty matches every status.
	Query  string              // Matched against email account, username, account type and id.
	Page
}

// CreateAppeal inserts a new appeal.
func (s *Store) CreateAppeal(ctx context.Context, appeal *models.Appeal) error {
	if errCreate := s.db.WithContext(ctx).Create(appeal).Error; errCreate != nil {
		return translate(errCreate, "appeal")
	}
	s.emit(ctx, realtime.CollectionAppeals, realtime.OpInsert, appeal.ID, appeal.UserID)
	return nil
}

// UpsertAppeal inserts the appeal or replaces every mutable column of the row with the same id.
func (s *Store) UpsertAppeal(ctx context.Context, appeal *models.Appeal) error {
	errUpsert := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"account_type", "login_info", "email_account", "email_pass", "description", "screenshot",
			"status", "status_detail", "admin_notes", "deduction_amount", "updated_at",
		}),
	}).Create(appeal).Error
	if errUpsert != nil {
		return translate(errUpsert, "appeal")
	}
	s.emit(ctx, realtime.CollectionAppeals, realtime.OpUpsert, appeal.ID, appeal.UserID)
	return nil
}

// GetAppeal loads an appeal by id.
func (s *Store) GetAppeal(ctx context.Context, id string) (*models.Appeal, error) {
	var appeal models.Appeal
	if errFind := s.db.WithContext(ctx).Where("id = ?", id).First(&appeal).Error; errFind != nil {
		return nil, translateRead(errFind, "appeal")
	}
	return &appeal, nil
}

// GetAppealForUpdate loads an appeal and locks its row until the transaction ends.
func (s *Store) GetAppealForUpdate(ctx context.Context, id string) (*models.Appeal, error) {
	var appeal models.Appeal
	errFind := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&appeal).Error
	if errFind != nil {
		return nil, translateRead(errFind, "appeal")
	}
	return &appeal, nil
}

// ListAppeals returns appeals newest first.
func (s *Store) ListAppeals(ctx context.Context, f AppealFilter) ([]models.Appeal, error) {
	q := s.db.WithContext(ctx).Model(&models.Appeal{})
	if f.UserID != "" {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if term := strings.TrimSpace(f.Query); term != "" {
		pattern := dbutil.ContainsPattern(s.db, term)
		q = q.Where(
			s.db.Where(dbutil.CaseInsensitiveLikeExpr(s.db, "email_account"), pattern).
				Or(dbutil.CaseInsensitiveLikeExpr(s.db, "username"), pattern).
				Or(dbutil.CaseInsensitiveLikeExpr(s.db, "account_type"), pattern).
				Or(dbutil.CaseInsensitiveLikeExpr(s.db, "id"), pattern),
		)
	}
	var rows []models.Appeal
	if errFind := f.Page.apply(q.Order("created_at DESC")).Find(&rows).Error; errFind != nil {
		return nil, translateRead(errFind, "appeals")
	}
	return rows, nil
}

// CountAppealsByStatus groups appeal counts by status.
func (s *Store) CountAppealsByStatus(ctx context.Context) (map[models.AppealStatus]int64, error) {
	type row struct {
		Status models.AppealStatus
		Total  int64
	}
	var rows []row
	errScan := s.db.WithContext(ctx).Model(&models.Appeal{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error
	if errScan != nil {
		return nil, translateRead(errScan, "appeals")
	}
	out := make(map[models.AppealStatus]int64, len(rows))
	for _, r := range rows {
		out[r.Status] = r.Total
	}
	return out, nil
}
