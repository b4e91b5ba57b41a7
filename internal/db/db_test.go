package db

import (
	"path/filepath"
	"testing"

	"github.com/stackgenie/stackgenie-backend/internal/platform/logger"
)

func TestOpenSQLiteAndMigrate(t *testing.T) {
	svc, err := Open(logger.Nop(), Config{Driver: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "sg.db")})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = svc.Close() })
	if err := svc.AutoMigrateAll(); err != nil {
		t.Fatalf("AutoMigrateAll: %v", err)
	}
	for _, table := range []string{"user", "user_token", "project", "component_definition", "webhook", "deployment"} {
		if !svc.DB().Migrator().HasTable(table) {
			t.Fatalf("table %q missing after migration", table)
		}
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open(logger.Nop(), Config{Driver: "oracle"}); err == nil {
		t.Fatalf("Open: unknown driver accepted")
	}
}

func TestPostgresDSN(t *testing.T) {
	got := Config{PostgresHost: "db", PostgresPort: "5432", PostgresUser: "u", PostgresPassword: "p", PostgresName: "sg"}.postgresDSN()
	if got != "postgres://u:p@db:5432/sg?sslmode=disable" {
		t.Fatalf("dsn=%q", got)
	}
}
