package auth

import (
	"context"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeyuan/appeal-service/internal/apperr"
	"github.com/zeyuan/appeal-service/internal/config"
	dbpkg "github.com/zeyuan/appeal-service/internal/db"
	"github.com/zeyuan/appeal-service/internal/models"
	"github.com/zeyuan/appeal-service/internal/security"
	"github.com/zeyuan/appeal-service/internal/settings"
	"github.com/zeyuan/appeal-service/internal/store"
)

func init() {
	security.UseMinCostForTests()
}

func newService(t *testing.T) (*Service, *store.Store, *settings.Store) {
	t.Helper()
	conn, errOpen := dbpkg.Open(":memory:")
	require.NoError(t, errOpen)
	require.NoError(t, dbpkg.Migrate(conn))
	s := store.New(conn, nil)
	st := settings.NewStore(conn)
	return New(s, nil, st, config.JWTConfig{Secret: "test-secret", Expiry: time.Hour}), s, st
}

func TestSignUpSignInSignOut(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	session, errSignUp := svc.SignUp(ctx, SignUpInput{Email: "Shop@Example.com", Password: "secret1"})
	require.NoError(t, errSignUp)
	assert.Equal(t, "shop", session.User.Username)
	assert.Equal(t, models.RoleClient, session.User.Role)
	assert.Zero(t, session.User.Balance)

	signedIn, errSignIn := svc.SignIn(ctx, "shop@example.com", "secret1", "")
	require.NoError(t, errSignIn)

	current, errCurrent := svc.CurrentSession(ctx, signedIn.Token)
	require.NoError(t, errCurrent)
	require.NotNil(t, current)
	assert.Equal(t, session.User.ID, current.ID)

	require.NoError(t, svc.SignOut(ctx, signedIn.Token))
	current, errCurrent = svc.CurrentSession(ctx, signedIn.Token)
	require.NoError(t, errCurrent)
	assert.Nil(t, current, "revoked token has no session")

	other, errCurrent := svc.CurrentSession(ctx, session.Token)
	require.NoError(t, errCurrent)
	assert.NotNil(t, other, "other sessions stay valid")
}

func TestSignUpValidation(t *testing.T) {
	svc, _, st := newService(t)
	ctx := context.Background()

	_, errShort := svc.SignUp(ctx, SignUpInput{Email: "a@b.com", Password: "12345"})
	assert.True(t, apperr.IsKind(errShort, apperr.KindValidation))

	_, errEmail := svc.SignUp(ctx, SignUpInput{Email: "nope", Password: "123456"})
	assert.True(t, apperr.IsKind(errEmail, apperr.KindValidation))

	_, errFirst := svc.SignUp(ctx, SignUpInput{Email: "a@b.com", Password: "123456"})
	require.NoError(t, errFirst)
	_, errDup := svc.SignUp(ctx, SignUpInput{Email: "A@B.com", Password: "123456"})
	assert.True(t, apperr.IsKind(errDup, apperr.KindValidation), "got %v", errDup)

	require.NoError(t, st.Set(ctx, settings.RegistrationOpenKey, false))
	_, errClosed := svc.SignUp(ctx, SignUpInput{Email: "c@d.com", Password: "123456"})
	assert.True(t, apperr.IsKind(errClosed, apperr.KindForbidden), "got %v", errClosed)
}

func TestSignInRejectsBadCredentials(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	_, errSignUp := svc.SignUp(ctx, SignUpInput{Email: "x@y.com", Password: "123456"})
	require.NoError(t, errSignUp)

	_, errWrong := svc.SignIn(ctx, "x@y.com", "654321", "")
	assert.True(t, apperr.IsKind(errWrong, apperr.KindUnauthorized))
	_, errMissing := svc.SignIn(ctx, "ghost@y.com", "123456", "")
	assert.True(t, apperr.IsKind(errMissing, apperr.KindUnauthorized))

	user, errCurrent := svc.CurrentSession(ctx, "not-a-jwt")
	assert.NoError(t, errCurrent)
	assert.Nil(t, user)
}

func TestSignInFillsMissingProfile(t *testing.T) {
	svc, s, _ := newService(t)
	ctx := context.Background()
	hash, errHash := security.HashPassword("123456")
	require.NoError(t, errHash)
	require.NoError(t, s.CreateUser(ctx, &models.User{Email: "legacy@shop.com", Password: hash, Role: "UNKNOWN"}))

	session, errSignIn := svc.SignIn(ctx, "legacy@shop.com", "123456", "")
	require.NoError(t, errSignIn)
	assert.Equal(t, "legacy", session.User.Username)
	assert.Equal(t, models.RoleClient, session.User.Role)

	stored, errGet := s.GetUserByEmail(ctx, "legacy@shop.com")
	require.NoError(t, errGet)
	assert.Equal(t, "legacy", stored.Username)
}

func TestChangePassword(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	session, errSignUp := svc.SignUp(ctx, SignUpInput{Email: "p@q.com", Password: "123456"})
	require.NoError(t, errSignUp)

	assert.True(t, apperr.IsKind(svc.ChangePassword(ctx, session.User.ID, "123"), apperr.KindValidation))
	require.NoError(t, svc.ChangePassword(ctx, session.User.ID, "abcdef"))
	_, errSignIn := svc.SignIn(ctx, "p@q.com", "abcdef", "")
	assert.NoError(t, errSignIn)
}

func TestStaffTOTPFlow(t *testing.T) {
	svc, s, _ := newService(t)
	ctx := context.Background()
	hash, _ := security.HashPassword("adminpw")
	admin := &models.User{Email: "ops@portal.com", Username: "ops", Password: hash, Role: models.RoleAdmin}
	require.NoError(t, s.CreateUser(ctx, admin))

	enrollment, errBegin := svc.BeginTOTP(ctx, admin)
	require.NoError(t, errBegin)
	assert.True(t, apperr.IsKind(svc.ConfirmTOTP(ctx, admin, "000000x"), apperr.KindValidation))

	code, errCode := totp.GenerateCode(enrollment.Secret, time.Now())
	require.NoError(t, errCode)
	require.NoError(t, svc.ConfirmTOTP(ctx, admin, code))

	_, errNoCode := svc.SignInStaff(ctx, "ops@portal.com", "adminpw", "")
	assert.True(t, apperr.IsKind(errNoCode, apperr.KindUnauthorized))

	code, _ = totp.GenerateCode(enrollment.Secret, time.Now())
	session, errSignIn := svc.SignInStaff(ctx, "ops@portal.com", "adminpw", code)
	require.NoError(t, errSignIn)
	assert.Equal(t, models.RoleAdmin, session.User.Role)
}

func TestSignInStaffRejectsClients(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	_, errSignUp := svc.SignUp(ctx, SignUpInput{Email: "c@c.com", Password: "123456"})
	require.NoError(t, errSignUp)
	_, errStaff := svc.SignInStaff(ctx, "c@c.com", "123456", "")
	assert.True(t, apperr.IsKind(errStaff, apperr.KindForbidden))
}

func TestMemoryRevoker(t *testing.T) {
	r := NewMemoryRevoker()
	ctx := context.Background()
	require.NoError(t, r.Revoke(ctx, "jti-1", time.Minute))
	revoked, _ := r.Revoked(ctx, "jti-1")
	assert.True(t, revoked)
	revoked, _ = r.Revoked(ctx, "jti-2")
	assert.False(t, revoked)
}
