// Package users is the super-admin account directory.
package users

import (
	"context"
	"math"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/zeyuan/appeal-service/internal/apperr"
	"github.com/zeyuan/appeal-service/internal/models"
	"github.com/zeyuan/appeal-service/internal/store"
)

// Update lists the fields a super admin may change. Nil fields are left alone.
type Update struct {
	Balance *float64     `json:"balance"`
	Phone   *string      `json:"phone"`
	Role    *models.Role `json:"role"`
}

// Service manages accounts on behalf of SUPER_ADMIN callers.
type Service struct {
	store *store.Store
}

// New constructs a users Service.
func New(s *store.Store) *Service {
	return &Service{store: s}
}

// List returns every account in creation order.
func (s *Service) List(ctx context.Context, actor *models.User) ([]models.User, error) {
	if errRole := requireSuperAdmin(actor); errRole != nil {
		return nil, errRole
	}
	return s.store.ListUsers(ctx, store.Page{})
}

// UpdateAnyUser overwrites balance, phone and role of the target account.
func (s *Service) UpdateAnyUser(ctx context.Context, actor *models.User, id string, in Update) (*models.User, error) {
	if errRole := requireSuperAdmin(actor); errRole != nil {
		return nil, errRole
	}
	fields := map[string]any{}
	if in.Balance != nil {
		if math.IsNaN(*in.Balance) || math.IsInf(*in.Balance, 0) {
			return nil, apperr.Validation("balance must be a finite number")
		}
		fields["balance"] = math.Round(*in.Balance*100) / 100
	}
	if in.Phone != nil {
		fields["phone"] = strings.TrimSpace(*in.Phone)
	}
	if in.Role != nil {
		role := models.Role(strings.ToUpper(strings.TrimSpace(string(*in.Role))))
		if !role.Valid() {
			return nil, apperr.Validation("unknown role %q", *in.Role)
		}
		if id == actor.ID && role != models.RoleSuperAdmin {
			return nil, apperr.Validation("cannot demote your own account")
		}
		fields["role"] = role
	}
	if errUpdate := s.store.UpdateUser(ctx, id, fields); errUpdate != nil {
		return nil, errUpdate
	}
	updated, errGet := s.store.GetUser(ctx, id)
	if errGet != nil {
		return nil, errGet
	}
	log.WithFields(log.Fields{"actor": actor.ID, "user": id}).Info("users: account updated")
	return updated, nil
}

func requireSuperAdmin(actor *models.User) error {
	if actor == nil {
		return apperr.Unauthorized("sign in required")
	}
	if actor.Role != models.RoleSuperAdmin {
		return apperr.Forbidden("super admin access required")
	}
	return nil
}
