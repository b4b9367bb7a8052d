package db

import "testing"

func TestDetectDialectFromDSN(t *testing.T) {
	cases := map[string]string{
		"postgres://u:p@localhost:5432/appeals": DialectPostgres,
		"host=localhost user=u dbname=appeals":  DialectPostgres,
		"file:data/appeals.db":                  DialectSQLite,
		"sqlite://data/appeals.db":              DialectSQLite,
		"appeals.db":                            DialectSQLite,
	}
	for dsn, want := range cases {
		got, err := detectDialectFromDSN(dsn)
		if err != nil {
			t.Fatalf("%s: %v", dsn, err)
		}
		if got != want {
			t.Fatalf("%s: expected %s, got %s", dsn, want, got)
		}
	}
	if _, err := detectDialectFromDSN("mysql://root@localhost/db"); err == nil {
		t.Fatalf("expected error for mysql dsn")
	}
}

func TestContainsPatternEscapesWildcards(t *testing.T) {
	conn, errOpen := Open(":memory:")
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	if got := ContainsPattern(conn, "50%_OFF"); got != `%50\%\_off%` {
		t.Fatalf("unexpected pattern %q", got)
	}
}

func TestSQLitePathFromDSN(t *testing.T) {
	if got := sqlitePathFromDSN("file:data/app.db?_busy_timeout=5000"); got != "data/app.db" {
		t.Fatalf("unexpected path %q", got)
	}
	if got := sqlitePathFromDSN(":memory:"); got != "" {
		t.Fatalf("expected empty path for memory dsn, got %q", got)
	}
}
