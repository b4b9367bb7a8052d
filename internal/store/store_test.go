package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeyuan/appeal-service/internal/apperr"
	dbpkg "github.com/zeyuan/appeal-service/internal/db"
	"github.com/zeyuan/appeal-service/internal/models"
	"github.com/zeyuan/appeal-service/internal/realtime"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newTestStore(t *testing.T) (*Store, *realtime.MemoryBroker) {
	t.Helper()
	conn, errOpen := dbpkg.Open(":memory:")
	require.NoError(t, errOpen)
	require.NoError(t, dbpkg.Migrate(conn))
	broker := realtime.NewMemoryBroker()
	return New(conn, broker), broker
}

func seedUser(t *testing.T, s *Store, email string) *models.User {
	t.Helper()
	user := &models.User{Email: email, Username: email, Password: "x", Role: models.RoleClient, Balance: 100}
	require.NoError(t, s.CreateUser(context.Background(), user))
	return user
}

func TestCreateAndSearchAppeals(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	alice := seedUser(t, s, "alice@example.com")
	bob := seedUser(t, s, "bob@example.com")

	now := time.Now().UTC()
	for i, a := range []models.Appeal{
		{UserID: alice.ID, Username: "alice", AccountType: "紫鸟", EmailAccount: "shop-a@mail.com", Status: models.AppealPending},
		{UserID: alice.ID, Username: "alice", AccountType: "VPS", EmailAccount: "shop-b@mail.com", Status: models.AppealPassed},
		{UserID: bob.ID, Username: "bob", AccountType: "战斧", EmailAccount: "Bob-Store@mail.com", Status: models.AppealPending},
	} {
		a.CreatedAt = now.Add(time.Duration(i) * time.Second)
		a.UpdatedAt = a.CreatedAt
		require.NoError(t, s.CreateAppeal(ctx, &a))
	}

	own, errList := s.ListAppeals(ctx, AppealFilter{UserID: alice.ID})
	require.NoError(t, errList)
	require.Len(t, own, 2)
	assert.Equal(t, "VPS", own[0].AccountType, "newest first")

	byEmail, errList := s.ListAppeals(ctx, AppealFilter{Query: "bob-store"})
	require.NoError(t, errList)
	require.Len(t, byEmail, 1)
	assert.Equal(t, bob.ID, byEmail[0].UserID)

	pending, errList := s.ListAppeals(ctx, AppealFilter{Query: "alice", Status: models.AppealPending})
	require.NoError(t, errList)
	require.Len(t, pending, 1)

	byType, errList := s.ListAppeals(ctx, AppealFilter{Query: "紫鸟"})
	require.NoError(t, errList)
	require.Len(t, byType, 1)

	counts, errCount := s.CountAppealsByStatus(ctx)
	require.NoError(t, errCount)
	assert.Equal(t, int64(2), counts[models.AppealPending])
	assert.Equal(t, int64(1), counts[models.AppealPassed])
}

func TestUpsertAppealInsertsThenReplaces(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	user := seedUser(t, s, "c@example.com")

	now := time.Now().UTC()
	appeal := &models.Appeal{ID: "fixed-id-000001", UserID: user.ID, AccountType: "其他", Status: models.AppealPending, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, s.UpsertAppeal(ctx, appeal))

	appeal.Status = models.AppealProcessing
	appeal.AdminNotes = "checking"
	require.NoError(t, s.UpsertAppeal(ctx, appeal))

	got, errGet := s.GetAppeal(ctx, "fixed-id-000001")
	require.NoError(t, errGet)
	assert.Equal(t, models.AppealProcessing, got.Status)
	assert.Equal(t, "checking", got.AdminNotes)
}

func TestGetMissingAppealIsNotFound(t *testing.T) {
	s, _ := newTestStore(t)
	_, errGet := s.GetAppeal(context.Background(), "missing")
	assert.True(t, apperr.IsKind(errGet, apperr.KindNotFound), "got %v", errGet)
}

func TestTransactionPublishesOnlyAfterCommit(t *testing.T) {
	s, broker := newTestStore(t)
	ctx := context.Background()
	user := seedUser(t, s, "d@example.com")
	events, cancel := broker.Subscribe(realtime.CollectionTransactions)
	defer cancel()

	errTx := s.Transaction(ctx, func(tx *Store) error {
		if errCreate := tx.CreateTransaction(ctx, &models.Transaction{UserID: user.ID, Type: models.TransactionRecharge, Amount: 5, Status: models.TransactionPending, CreatedAt: time.Now(), UpdatedAt: time.Now()}); errCreate != nil {
			return errCreate
		}
		assert.Len(t, events, 0, "no event before commit")
		return errors.New("abort")
	})
	require.Error(t, errTx)
	assert.Len(t, events, 0, "rolled back writes publish nothing")

	rows, errList := s.ListTransactions(ctx, TransactionFilter{UserID: user.ID})
	require.NoError(t, errList)
	assert.Empty(t, rows)

	require.NoError(t, s.Transaction(ctx, func(tx *Store) error {
		return tx.CreateTransaction(ctx, &models.Transaction{UserID: user.ID, Type: models.TransactionRecharge, Amount: 5, Status: models.TransactionPending, CreatedAt: time.Now(), UpdatedAt: time.Now()})
	}))
	select {
	case evt := <-events:
		assert.Equal(t, user.ID, evt.UserID)
		assert.Equal(t, realtime.OpInsert, evt.Op)
	case <-time.After(time.Second):
		t.Fatalf("expected event after commit")
	}
}

func TestAdjustBalanceAndDuplicateEmail(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	user := seedUser(t, s, "e@example.com")

	require.NoError(t, s.AdjustBalance(ctx, user.ID, -30.5))
	got, errGet := s.GetUser(ctx, user.ID)
	require.NoError(t, errGet)
	assert.InDelta(t, 69.5, got.Balance, 0.001)

	errDup := s.CreateUser(ctx, &models.User{Email: "e@example.com", Password: "x", Role: models.RoleClient})
	assert.True(t, apperr.IsKind(errDup, apperr.KindValidation), "got %v", errDup)

	assert.True(t, apperr.IsKind(s.AdjustBalance(ctx, "nobody", 1), apperr.KindNotFound))

	byEmail, errGet := s.GetUserByEmail(ctx, "E@Example.com ")
	require.NoError(t, errGet)
	assert.Equal(t, user.ID, byEmail.ID)
}

func TestKnowledgeBaseOrderingAndUsage(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	a := &models.KnowledgeBaseItem{Type: "ACCOUNT_SUSPENSION", SubType: "OTD", Title: "a", Content: "x"}
	b := &models.KnowledgeBaseItem{Type: "ACCOUNT_SUSPENSION", SubType: "OTD", Title: "b", Content: "y", UsageCount: 3}
	require.NoError(t, s.CreateKnowledgeBaseItem(ctx, a))
	require.NoError(t, s.CreateKnowledgeBaseItem(ctx, b))

	errDup := s.CreateKnowledgeBaseItem(ctx, &models.KnowledgeBaseItem{Type: "OTHER", SubType: "z", Title: "a", Content: "z"})
	assert.True(t, apperr.IsKind(errDup, apperr.KindValidation))

	hits, errSearch := s.SearchKnowledgeBase(ctx, "ACCOUNT_SUSPENSION", "OTD", 1)
	require.NoError(t, errSearch)
	require.Len(t, hits, 1)
	assert.Equal(t, "b", hits[0].Title)

	for i := 0; i < 5; i++ {
		require.NoError(t, s.IncrementKnowledgeBaseUsage(ctx, a.ID))
	}
	all, errList := s.ListKnowledgeBase(ctx)
	require.NoError(t, errList)
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].Title)
	assert.Equal(t, 5, all[0].UsageCount)

	require.NoError(t, s.DeleteKnowledgeBaseItem(ctx, b.ID))
	assert.True(t, apperr.IsKind(s.DeleteKnowledgeBaseItem(ctx, b.ID), apperr.KindNotFound))

	titles, errTitles := s.KnowledgeBaseTitles(ctx)
	require.NoError(t, errTitles)
	assert.Contains(t, titles, "a")
	assert.NotContains(t, titles, "b")
}

func TestDriverFailureIsPersistenceError(t *testing.T) {
	sqlDB, mock, errMock := sqlmock.New()
	require.NoError(t, errMock)
	defer sqlDB.Close()

	conn, errOpen := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{DisableAutomaticPing: true})
	require.NoError(t, errOpen)

	mock.ExpectQuery(`SELECT .* FROM "transactions"`).WillReturnError(errors.New("connection reset by peer"))

	_, errList := New(conn, nil).ListTransactions(context.Background(), TransactionFilter{UserID: "u"})
	assert.True(t, apperr.IsKind(errList, apperr.KindPersistence), "got %v", errList)
	assert.NoError(t, mock.ExpectationsWereMet())
}
