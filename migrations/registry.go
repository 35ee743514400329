// Package migrations hands the embedded webhook schema migrations to a
// host-provided registration callback, typically the go-persistence-bun
// client. The module ships exactly two dialects: postgres files at the root
// of data/sql/migrations and sqlite variants in its sqlite/ subdirectory.
package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"slices"
	"strings"

	webhooks "github.com/goliatone/go-webhooks"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

const (
	defaultSourceLabel = "go-webhooks"
	migrationsDir      = "data/sql/migrations"
)

// FilesystemSpec pairs a dialect with its migration files.
type FilesystemSpec struct {
	Dialect string
	Path    string
	FS      fs.FS
}

// Registration reports what Register resolved and which dialects it handed
// to the callback.
type Registration struct {
	SourceLabel string
	Targets     []string
	Filesystems []FilesystemSpec
}

type RegisterFunc func(ctx context.Context, dialect string, sourceLabel string, fsys fs.FS) error

type Option func(*Registration)

func WithDialectSourceLabel(label string) Option {
	return func(r *Registration) {
		if trimmed := strings.TrimSpace(label); trimmed != "" {
			r.SourceLabel = trimmed
		}
	}
}

// WithValidationTargets restricts registration to the named dialects, for
// hosts that migrate a single database.
func WithValidationTargets(targets ...string) Option {
	return func(r *Registration) {
		if normalized := normalizeDialects(targets); len(normalized) > 0 {
			r.Targets = normalized
		}
	}
}

// Filesystems resolves both embedded migration trees and verifies each one
// carries at least one up migration.
func Filesystems() ([]FilesystemSpec, error) {
	base, err := fs.Sub(webhooks.GetMigrationsFS(), migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("migrations: resolve %s: %w", migrationsDir, err)
	}
	sqliteFS, err := fs.Sub(base, "sqlite")
	if err != nil {
		return nil, fmt.Errorf("migrations: resolve sqlite filesystem: %w", err)
	}

	specs := []FilesystemSpec{
		{Dialect: DialectPostgres, Path: migrationsDir, FS: base},
		{Dialect: DialectSQLite, Path: migrationsDir + "/sqlite", FS: sqliteFS},
	}
	for _, spec := range specs {
		matches, globErr := fs.Glob(spec.FS, "*.up.sql")
		if globErr != nil {
			return nil, fmt.Errorf("migrations: glob %s %s: %w", spec.Dialect, spec.Path, globErr)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("migrations: %s filesystem %q has no *.up.sql files", spec.Dialect, spec.Path)
		}
	}
	return specs, nil
}

// Register resolves the embedded filesystems and invokes registerFn once per
// targeted dialect. By default both dialects are registered under the
// go-webhooks source label.
func Register(ctx context.Context, registerFn RegisterFunc, opts ...Option) (Registration, error) {
	reg := Registration{
		SourceLabel: defaultSourceLabel,
		Targets:     []string{DialectPostgres, DialectSQLite},
	}
	if registerFn == nil {
		return reg, fmt.Errorf("migrations: register function is required")
	}

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&reg)
	}

	filesystems, err := Filesystems()
	if err != nil {
		return reg, err
	}
	reg.Filesystems = filesystems

	for _, spec := range filesystems {
		if !slices.Contains(reg.Targets, spec.Dialect) {
			continue
		}
		if err := registerFn(ctx, spec.Dialect, reg.SourceLabel, spec.FS); err != nil {
			return reg, fmt.Errorf("migrations: register %s (%s): %w", spec.Dialect, spec.Path, err)
		}
	}
	return reg, nil
}

func normalizeDialects(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		dialect := strings.TrimSpace(strings.ToLower(value))
		if dialect == "" || slices.Contains(out, dialect) {
			continue
		}
		out = append(out, dialect)
	}
	return out
}
