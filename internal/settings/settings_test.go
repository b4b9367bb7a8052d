package settings

import (
	"context"
	"testing"

	dbpkg "github.com/zeyuan/appeal-service/internal/db"
)

func TestStoreSetAndTypedReads(t *testing.T) {
	conn, errOpen := dbpkg.Open(":memory:")
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	if errMigrate := dbpkg.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	s := NewStore(conn)
	ctx := context.Background()

	if got := s.String(SiteNameKey, DefaultSiteName); got != DefaultSiteName {
		t.Fatalf("expected default site name, got %q", got)
	}
	if !s.Bool(RegistrationOpenKey, DefaultRegistrationOpen) {
		t.Fatalf("expected registration open by default")
	}

	if errSet := s.Set(ctx, SiteNameKey, "  恢复中心 "); errSet != nil {
		t.Fatalf("set site name: %v", errSet)
	}
	if errSet := s.Set(ctx, RegistrationOpenKey, false); errSet != nil {
		t.Fatalf("set registration: %v", errSet)
	}
	if errSet := s.Set(ctx, DefaultDeductionKey, "120.5"); errSet != nil {
		t.Fatalf("set deduction: %v", errSet)
	}

	if got := s.String(SiteNameKey, DefaultSiteName); got != "恢复中心" {
		t.Fatalf("unexpected site name %q", got)
	}
	if s.Bool(RegistrationOpenKey, true) {
		t.Fatalf("expected registration closed")
	}
	if got := s.Float(DefaultDeductionKey, 0); got != 120.5 {
		t.Fatalf("expected string-encoded float to parse, got %v", got)
	}
	if s.UpdatedAt().IsZero() {
		t.Fatalf("expected updated_at from refresh")
	}

	fresh := NewStore(conn)
	if errRefresh := fresh.Refresh(ctx); errRefresh != nil {
		t.Fatalf("refresh: %v", errRefresh)
	}
	if len(fresh.All()) != 3 {
		t.Fatalf("expected 3 settings, got %d", len(fresh.All()))
	}
}

func TestStoreRejectsEmptyKeyAndNilDB(t *testing.T) {
	var nilStore *Store
	if errRefresh := nilStore.Refresh(context.Background()); errRefresh == nil {
		t.Fatalf("expected error for nil store")
	}
	if got := nilStore.String(SiteNameKey, "x"); got != "x" {
		t.Fatalf("nil store should return default, got %q", got)
	}
	if errSet := NewStore(nil).Set(context.Background(), " ", 1); errSet == nil {
		t.Fatalf("expected error for nil db")
	}
}

func TestParseStringUnwrapsValueObject(t *testing.T) {
	if got := parseString([]byte(`{"value":" wrapped "}`)); got != "wrapped" {
		t.Fatalf("unexpected %q", got)
	}
	if got := parseString([]byte(`42`)); got != "" {
		t.Fatalf("numbers are not strings, got %q", got)
	}
}
