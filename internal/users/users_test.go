package users

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeyuan/appeal-service/internal/apperr"
	dbpkg "github.com/zeyuan/appeal-service/internal/db"
	"github.com/zeyuan/appeal-service/internal/models"
	"github.com/zeyuan/appeal-service/internal/store"
)

func setup(t *testing.T) (*Service, *models.User, *models.User) {
	t.Helper()
	conn, errOpen := dbpkg.Open(":memory:")
	require.NoError(t, errOpen)
	require.NoError(t, dbpkg.Migrate(conn))
	s := store.New(conn, nil)
	ctx := context.Background()
	root := &models.User{Email: "root@portal.com", Username: "root", Password: "x", Role: models.RoleSuperAdmin, CreatedAt: time.Now().Add(-time.Hour)}
	client := &models.User{Email: "c@shop.com", Username: "c", Password: "x", Role: models.RoleClient, CreatedAt: time.Now()}
	require.NoError(t, s.CreateUser(ctx, root))
	require.NoError(t, s.CreateUser(ctx, client))
	return New(s), root, client
}

func TestListRequiresSuperAdmin(t *testing.T) {
	svc, root, client := setup(t)
	_, errList := svc.List(context.Background(), client)
	assert.True(t, apperr.IsKind(errList, apperr.KindForbidden))

	rows, errList := svc.List(context.Background(), root)
	require.NoError(t, errList)
	require.Len(t, rows, 2)
	assert.Equal(t, root.ID, rows[0].ID, "oldest first")
}

func TestUpdateAnyUser(t *testing.T) {
	svc, root, client := setup(t)
	ctx := context.Background()
	balance := 88.456
	phone := " 13800000000 "
	role := models.RoleAdmin

	updated, errUpdate := svc.UpdateAnyUser(ctx, root, client.ID, Update{Balance: &balance, Phone: &phone, Role: &role})
	require.NoError(t, errUpdate)
	assert.InDelta(t, 88.46, updated.Balance, 0.001)
	assert.Equal(t, "13800000000", updated.Phone)
	assert.Equal(t, models.RoleAdmin, updated.Role)
}

func TestUpdateAnyUserValidation(t *testing.T) {
	svc, root, client := setup(t)
	ctx := context.Background()

	bad := models.Role("OWNER")
	_, errRole := svc.UpdateAnyUser(ctx, root, client.ID, Update{Role: &bad})
	assert.True(t, apperr.IsKind(errRole, apperr.KindValidation))

	inf := math.Inf(1)
	_, errBalance := svc.UpdateAnyUser(ctx, root, client.ID, Update{Balance: &inf})
	assert.True(t, apperr.IsKind(errBalance, apperr.KindValidation))

	demote := models.RoleClient
	_, errSelf := svc.UpdateAnyUser(ctx, root, root.ID, Update{Role: &demote})
	assert.True(t, apperr.IsKind(errSelf, apperr.KindValidation))

	phone := "1"
	_, errMissing := svc.UpdateAnyUser(ctx, root, "ghost", Update{Phone: &phone})
	assert.True(t, apperr.IsKind(errMissing, apperr.KindNotFound))

	_, errForbidden := svc.UpdateAnyUser(ctx, client, root.ID, Update{Phone: &phone})
	assert.True(t, apperr.IsKind(errForbidden, apperr.KindForbidden))
}
