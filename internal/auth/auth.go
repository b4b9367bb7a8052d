// Package auth issues and validates portal sessions.
package auth

import (
	"context"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/zeyuan/appeal-service/internal/apperr"
	"github.com/zeyuan/appeal-service/internal/config"
	"github.com/zeyuan/appeal-service/internal/models"
	"github.com/zeyuan/appeal-service/internal/security"
	"github.com/zeyuan/appeal-service/internal/settings"
	"github.com/zeyuan/appeal-service/internal/store"
)

const totpEnrollmentTTL = 10 * time.Minute

// Session is an issued token with its owner.
type Session struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

// SignUpInput carries registration fields.
type SignUpInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
	Phone    string `json:"phone"`
}

// Service is the auth collaborator.
type Service struct {
	store    *store.Store
	revoker  Revoker
	settings *settings.Store
	jwt      config.JWTConfig
	pending  *security.ExpiringStore
}

// New constructs an auth Service. A nil revoker keeps revocations in memory; a nil
// settings store leaves registration open.
func New(s *store.Store, revoker Revoker, st *settings.Store, jwtCfg config.JWTConfig) *Service {
	if revoker == nil {
		revoker = NewMemoryRevoker()
	}
	if jwtCfg.Expiry <= 0 {
		jwtCfg.Expiry = 7 * 24 * time.Hour
	}
	return &Service{store: s, revoker: revoker, settings: st, jwt: jwtCfg, pending: security.NewExpiringStore()}
}

// SignUp creates a CLIENT account with zero balance and signs it in.
func (s *Service) SignUp(ctx context.Context, in SignUpInput) (*Session, error) {
	if s.settings != nil && !s.settings.Bool(settings.RegistrationOpenKey, settings.DefaultRegistrationOpen) {
		return nil, apperr.Forbidden("registration is closed")
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, apperr.Validation("a valid email is required")
	}
	if len(in.Password) < security.MinPasswordLength {
		return nil, apperr.Validation("password must be at least %d characters", security.MinPasswordLength)
	}
	hash, errHash := security.HashPassword(in.Password)
	if errHash != nil {
		return nil, apperr.Persistence("hash password failed", errHash)
	}
	username := strings.TrimSpace(in.Username)
	if username == "" {
		username = localPart(email)
	}
	now := time.Now().UTC()
	user := &models.User{
		Email:     email,
		Username:  username,
		Phone:     strings.TrimSpace(in.Phone),
		Password:  hash,
		Role:      models.RoleClient,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if errCreate := s.store.CreateUser(ctx, user); errCreate != nil {
		return nil, errCreate
	}
	log.WithField("user", user.ID).Info("auth: account registered")
	return s.issue(user)
}

// SignIn checks credentials. Accounts with a TOTP secret must also pass totpCode.
func (s *Service) SignIn(ctx context.Context, email, password, totpCode string) (*Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, apperr.Validation("email and password are required")
	}
	user, errGet := s.store.GetUserByEmail(ctx, email)
	if errGet != nil {
		if apperr.IsKind(errGet, apperr.KindNotFound) {
			return nil, apperr.Unauthorized("invalid email or password")
		}
		return nil, errGet
	}
	if !security.CheckPassword(user.Password, password) {
		return nil, apperr.Unauthorized("invalid email or password")
	}
	if strings.TrimSpace(user.TOTPSecret) != "" {
		if strings.TrimSpace(totpCode) == "" {
			return nil, apperr.Unauthorized("totp code required")
		}
		if !security.ValidateTOTP(strings.TrimSpace(totpCode), user.TOTPSecret) {
			return nil, apperr.Unauthorized("invalid totp code")
		}
	}
	if errFill := s.fillProfile(ctx, user); errFill != nil {
		return nil, errFill
	}
	return s.issue(user)
}

// SignInStaff is SignIn restricted to ADMIN and SUPER_ADMIN accounts.
func (s *Service) SignInStaff(ctx context.Context, email, password, totpCode string) (*Session, error) {
	session, errSignIn := s.SignIn(ctx, email, password, totpCode)
	if errSignIn != nil {
		return nil, errSignIn
	}
	if !session.User.Role.IsStaff() {
		if errRevoke := s.SignOut(ctx, session.Token); errRevoke != nil {
			log.WithError(errRevoke).Warn("auth: revoke non-staff session")
		}
		return nil, apperr.Forbidden("admin access required")
	}
	return session, nil
}

// SignOut revokes the token until its expiry.
func (s *Service) SignOut(ctx context.Context, token string) error {
	claims, errParse := security.ParseToken(s.jwt.Secret, token)
	if errParse != nil {
		return nil
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if errRevoke := s.revoker.Revoke(ctx, claims.ID, ttl); errRevoke != nil {
		return apperr.Persistence("revoke session failed", errRevoke)
	}
	return nil
}

// CurrentSession returns the account behind token, or nil for missing, expired or revoked tokens.
func (s *Service) CurrentSession(ctx context.Context, token string) (*models.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}
	claims, errParse := security.ParseToken(s.jwt.Secret, token)
	if errParse != nil {
		return nil, nil
	}
	revoked, errRevoked := s.revoker.Revoked(ctx, claims.ID)
	if errRevoked != nil {
		return nil, apperr.Persistence("check session failed", errRevoked)
	}
	if revoked {
		return nil, nil
	}
	user, errGet := s.store.GetUser(ctx, claims.UserID)
	if errGet != nil {
		if apperr.IsKind(errGet, apperr.KindNotFound) {
			return nil, nil
		}
		return nil, errGet
	}
	return user, nil
}

// ChangePassword replaces the password hash.
func (s *Service) ChangePassword(ctx context.Context, userID, newPassword string) error {
	if len(newPassword) < security.MinPasswordLength {
		return apperr.Validation("password must be at least %d characters", security.MinPasswordLength)
	}
	hash, errHash := security.HashPassword(newPassword)
	if errHash != nil {
		return apperr.Persistence("hash password failed", errHash)
	}
	return s.store.UpdateUser(ctx, userID, map[string]any{"password": hash})
}

// BeginTOTP generates a secret for user. It takes effect after ConfirmTOTP.
func (s *Service) BeginTOTP(_ context.Context, user *models.User) (*security.TOTPEnrollment, error) {
	issuer := s.jwt.TOTPIssuer
	if issuer == "" {
		issuer = "appeal-service"
	}
	enrollment, errGenerate := security.NewTOTPEnrollment(issuer, user.Email)
	if errGenerate != nil {
		return nil, apperr.Persistence("generate totp secret failed", errGenerate)
	}
	s.pending.Set(user.ID, enrollment.Secret, totpEnrollmentTTL)
	return enrollment, nil
}

// ConfirmTOTP stores the pending secret once code validates against it.
func (s *Service) ConfirmTOTP(ctx context.Context, user *models.User, code string) error {
	secret, ok := s.pending.Get(user.ID)
	if !ok {
		return apperr.Validation("no pending totp enrollment")
	}
	if !security.ValidateTOTP(strings.TrimSpace(code), secret) {
		return apperr.Validation("invalid totp code")
	}
	if errUpdate := s.store.UpdateUser(ctx, user.ID, map[string]any{"totp_secret": secret}); errUpdate != nil {
		return errUpdate
	}
	s.pending.Delete(user.ID)
	user.TOTPSecret = secret
	return nil
}

// fillProfile repairs accounts created outside sign-up.
func (s *Service) fillProfile(ctx context.Context, user *models.User) error {
	fields := map[string]any{}
	if strings.TrimSpace(user.Username) == "" {
		user.Username = localPart(user.Email)
		fields["username"] = user.Username
	}
	if !user.Role.Valid() {
		user.Role = models.RoleClient
		fields["role"] = user.Role
	}
	if len(fields) == 0 {
		return nil
	}
	return s.store.UpdateUser(ctx, user.ID, fields)
}

func (s *Service) issue(user *models.User) (*Session, error) {
	token, claims, errToken := security.GenerateToken(s.jwt.Secret, user.ID, user.Email, string(user.Role), s.jwt.Expiry)
	if errToken != nil {
		return nil, apperr.Persistence("sign session failed", errToken)
	}
	return &Session{Token: token, ExpiresAt: claims.ExpiresAt.Time, User: user}, nil
}

func localPart(email string) string {
	if idx := strings.Index(email, "@"); idx > 0 {
		return email[:idx]
	}
	return email
}
