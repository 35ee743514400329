package migrations

import (
	"context"
	"io/fs"
	"testing"
)

func TestFilesystems_ReturnsPostgresAndSQLite(t *testing.T) {
	filesystems, err := Filesystems()
	if err != nil {
		t.Fatalf("filesystems: %v", err)
	}
	if len(filesystems) != 2 {
		t.Fatalf("expected 2 filesystems, got %d", len(filesystems))
	}

	var postgresFound bool
	var sqliteFound bool
	for _, entry := range filesystems {
		matches, globErr := fs.Glob(entry.FS, "*.up.sql")
		if globErr != nil {
			t.Fatalf("glob %s: %v", entry.Dialect, globErr)
		}
		if len(matches) == 0 {
			t.Fatalf("expected %s migration files, got none", entry.Dialect)
		}
		switch entry.Dialect {
		case DialectPostgres:
			postgresFound = true
		case DialectSQLite:
			sqliteFound = true
		}
	}

	if !postgresFound {
		t.Fatalf("expected postgres filesystem")
	}
	if !sqliteFound {
		t.Fatalf("expected sqlite filesystem")
	}
}

func TestRegister_UsesValidationTargets(t *testing.T) {
	var calls []string
	reg, err := Register(context.Background(), func(_ context.Context, dialect string, label string, _ fs.FS) error {
		if label != "go-webhooks" {
			t.Fatalf("unexpected source label %q", label)
		}
		calls = append(calls, dialect)
		return nil
	}, WithValidationTargets(" SQLite "))
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if len(calls) != 1 || calls[0] != DialectSQLite {
		t.Fatalf("expected sqlite-only registration, got %v", calls)
	}
	if len(reg.Filesystems) != 2 {
		t.Fatalf("expected both dialects resolved, got %d", len(reg.Filesystems))
	}
}

func TestRegister_RequiresCallback(t *testing.T) {
	if _, err := Register(context.Background(), nil); err == nil {
		t.Fatalf("expected nil register function to fail")
	}
}
