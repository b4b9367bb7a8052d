package store

import (
	"context"
	"strings"
	"time"

	"github.com/zeyuan/appeal-service/internal/apperr"
	dbutil "github.com/zeyuan/appeal-service/internal/db"
	"github.com/zeyuan/appeal-service/internal/models"
	"github.com/zeyuan/appeal-service/internal/realtime"
	"gorm.io/gorm"
)

// CreateUser inserts an account. A duplicate e-mail is a validation error.
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	if errCreate := s.db.WithContext(ctx).Create(user).Error; errCreate != nil {
		if dbutil.IsUniqueViolation(errCreate) {
			return apperr.Validation("email already registered")
		}
		return translate(errCreate, "user")
	}
	s.emit(ctx, realtime.CollectionUsers, realtime.OpInsert, user.ID, user.ID)
	return nil
}

// GetUser loads an account by id.
func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if errFind := s.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; errFind != nil {
		return nil, translateRead(errFind, "user")
	}
	return &user, nil
}

// GetUserByEmail loads an account by e-mail, case-insensitively.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	errFind := s.db.WithContext(ctx).
		Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&user).Error
	if errFind != nil {
		return nil, translateRead(errFind, "user")
	}
	return &user, nil
}

// ListUsers returns every account in creation order.
func (s *Store) ListUsers(ctx context.Context, page Page) ([]models.User, error) {
	var rows []models.User
	if errFind := page.apply(s.db.WithContext(ctx).Order("created_at ASC")).Find(&rows).Error; errFind != nil {
		return nil, translateRead(errFind, "users")
	}
	return rows, nil
}

// UpdateUser applies column updates to one account.
func (s *Store) UpdateUser(ctx context.Context, id string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	fields["updated_at"] = time.Now().UTC()
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return translate(res.Error, "user")
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("user not found")
	}
	s.emit(ctx, realtime.CollectionUsers, realtime.OpUpdate, id, id)
	return nil
}

// AdjustBalance adds delta to the balance in a single UPDATE.
func (s *Store) AdjustBalance(ctx context.Context, id string, delta float64) error {
	res := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"balance":    gorm.Expr("balance + ?", delta),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return translate(res.Error, "balance")
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("user not found")
	}
	s.emit(ctx, realtime.CollectionUsers, realtime.OpUpdate, id, id)
	return nil
}
