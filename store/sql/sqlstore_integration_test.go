package sqlstore_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"testing"
	"time"

	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/goliatone/go-webhooks/core"
	webhookmigrations "github.com/goliatone/go-webhooks/migrations"
	sqlstore "github.com/goliatone/go-webhooks/store/sql"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

type testPersistenceConfig struct {
	driver string
	server string
}

func (c testPersistenceConfig) GetDebug() bool {
	return false
}

func (c testPersistenceConfig) GetDriver() string {
	return c.driver
}

func (c testPersistenceConfig) GetServer() string {
	return c.server
}

func (c testPersistenceConfig) GetPingTimeout() time.Duration {
	return time.Second
}

func (c testPersistenceConfig) GetOtelIdentifier() string {
	return "go-webhooks-tests"
}

func TestMigrationSmokeApplySQLite(t *testing.T) {
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	for _, table := range []string{"webhook_configs", "webhook_fires"} {
		var tableName string
		if err := client.DB().NewRaw(
			"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?",
			table,
		).Scan(context.Background(), &tableName); err != nil {
			t.Fatalf("query sqlite master for %s: %v", table, err)
		}
		if tableName != table {
			t.Fatalf("expected %s table, got %q", table, tableName)
		}
	}
}

func TestWebhookStore_SaveGetListRemove(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
	if err != nil {
		t.Fatalf("new repository factory: %v", err)
	}
	store := factory.WebhookStore()
	if store == nil {
		t.Fatalf("expected webhook store from factory")
	}

	saved, err := store.Save(ctx, core.WebhookConfig{
		Name:     "song_hook",
		Type:     " Generic ",
		Triggers: []string{"Song_Changed", "song_changed"},
		Enabled:  true,
		Config:   map[string]string{"webhook_url": "https://example.com/hook"},
	})
	if err != nil {
		t.Fatalf("save webhook: %v", err)
	}
	if saved.ID == "" {
		t.Fatalf("expected generated id")
	}
	if saved.Type != "generic" {
		t.Fatalf("expected normalized type, got %q", saved.Type)
	}
	if len(saved.Triggers) != 1 {
		t.Fatalf("expected deduped triggers, got %v", saved.Triggers)
	}

	if _, err := store.Save(ctx, core.WebhookConfig{
		Name:    "song_hook",
		Type:    "generic",
		Enabled: true,
	}); err == nil {
		t.Fatalf("expected duplicate name to fail")
	}

	fetched, err := store.Get(ctx, saved.ID)
	if err != nil {
		t.Fatalf("get webhook: %v", err)
	}
	if fetched.Name != "song_hook" || fetched.Config["webhook_url"] != "https://example.com/hook" {
		t.Fatalf("unexpected fetched webhook %+v", fetched)
	}

	fetched.Enabled = false
	fetched.Config["message"] = "{{ song.title }}"
	updated, err := store.Save(ctx, fetched)
	if err != nil {
		t.Fatalf("update webhook: %v", err)
	}
	if updated.Enabled {
		t.Fatalf("expected update to persist enabled=false")
	}
	if updated.Config["message"] != "{{ song.title }}" {
		t.Fatalf("expected updated config, got %+v", updated.Config)
	}

	enabled, err := store.ListEnabled(ctx)
	if err != nil {
		t.Fatalf("list enabled: %v", err)
	}
	if len(enabled) != 0 {
		t.Fatalf("expected disabled webhook to be excluded, got %d", len(enabled))
	}

	if err := store.Remove(ctx, saved.ID); err != nil {
		t.Fatalf("remove webhook: %v", err)
	}
	if _, err := store.Get(ctx, saved.ID); !errors.Is(err, core.ErrWebhookNotFound) {
		t.Fatalf("expected not found after remove, got %v", err)
	}
	if err := store.Remove(ctx, saved.ID); !errors.Is(err, core.ErrWebhookNotFound) {
		t.Fatalf("expected second remove to report not found, got %v", err)
	}
}

func TestWebhookStore_MarkFiredEnforcesWindowOnRow(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
	if err != nil {
		t.Fatalf("new repository factory: %v", err)
	}
	store := factory.WebhookStore()

	saved, err := store.Save(ctx, core.WebhookConfig{
		Name:    "limited_hook",
		Type:    "generic",
		Enabled: true,
	})
	if err != nil {
		t.Fatalf("save webhook: %v", err)
	}

	firedAt := time.Unix(1_700_000_000, 0).UTC()
	marked, err := store.MarkFired(ctx, saved.ID, firedAt, 10*time.Second)
	if err != nil {
		t.Fatalf("first mark fired: %v", err)
	}
	if !marked {
		t.Fatalf("expected first fire to be recorded")
	}

	marked, err = store.MarkFired(ctx, saved.ID, firedAt.Add(5*time.Second), 10*time.Second)
	if err != nil {
		t.Fatalf("second mark fired: %v", err)
	}
	if marked {
		t.Fatalf("expected fire inside the window to be rejected")
	}

	marked, err = store.MarkFired(ctx, saved.ID, firedAt.Add(11*time.Second), 10*time.Second)
	if err != nil {
		t.Fatalf("third mark fired: %v", err)
	}
	if !marked {
		t.Fatalf("expected fire after the window to be recorded")
	}

	fetched, err := store.Get(ctx, saved.ID)
	if err != nil {
		t.Fatalf("get webhook: %v", err)
	}
	if fetched.LastFiredAt == nil || !fetched.LastFiredAt.Equal(firedAt.Add(11*time.Second)) {
		t.Fatalf("unexpected last fired timestamp %v", fetched.LastFiredAt)
	}

	if _, err := store.MarkFired(ctx, "missing", firedAt, 0); !errors.Is(err, core.ErrWebhookNotFound) {
		t.Fatalf("expected missing webhook error, got %v", err)
	}
}

func TestFireLedger_RecordListPrune(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
	if err != nil {
		t.Fatalf("new repository factory: %v", err)
	}
	store := factory.WebhookStore()
	ledger := factory.FireLedger()
	if ledger == nil {
		t.Fatalf("expected fire ledger from factory")
	}

	saved, err := store.Save(ctx, core.WebhookConfig{
		Name:    "audited_hook",
		Type:    "generic",
		Enabled: true,
	})
	if err != nil {
		t.Fatalf("save webhook: %v", err)
	}

	base := time.Unix(1_700_000_000, 0).UTC()
	for i := 0; i < 3; i++ {
		_, err := ledger.Record(ctx, sqlstore.Fire{
			WebhookID: saved.ID,
			EventID:   fmt.Sprintf("evt_%d", i),
			Trigger:   "song_changed",
			Status:    sqlstore.FireStatusDelivered,
			FiredAt:   base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("record fire %d: %v", i, err)
		}
	}

	var sink core.FireSink = ledger
	if err := sink.RecordFire(ctx, core.FireRecord{
		WebhookID: saved.ID,
		EventID:   "evt_sink",
		Trigger:   "song_changed",
		Status:    core.FireStatusFailed,
		Error:     "connection refused",
		FiredAt:   base.Add(3 * time.Minute),
	}); err != nil {
		t.Fatalf("record fire through sink: %v", err)
	}

	fires, err := ledger.ListRecent(ctx, saved.ID, 2)
	if err != nil {
		t.Fatalf("list recent fires: %v", err)
	}
	if len(fires) != 2 {
		t.Fatalf("expected limit to apply, got %d", len(fires))
	}
	if !fires[0].FiredAt.After(fires[1].FiredAt) {
		t.Fatalf("expected newest-first ordering, got %v then %v", fires[0].FiredAt, fires[1].FiredAt)
	}
	if fires[0].EventID != "evt_sink" || fires[0].Status != sqlstore.FireStatusFailed {
		t.Fatalf("expected sink record to be newest, got %+v", fires[0])
	}
	if fires[0].Error != "connection refused" {
		t.Fatalf("expected sink record error to persist, got %q", fires[0].Error)
	}

	pruned, err := ledger.Prune(ctx, base.Add(90*time.Second))
	if err != nil {
		t.Fatalf("prune fires: %v", err)
	}
	if pruned != 2 {
		t.Fatalf("expected 2 pruned entries, got %d", pruned)
	}

	if _, err := ledger.Record(ctx, sqlstore.Fire{}); err == nil ||
		!strings.Contains(err.Error(), "webhook id is required") {
		t.Fatalf("expected missing webhook id to fail, got %v", err)
	}
}

func newSQLiteClient(t *testing.T) (*persistence.Client, func()) {
	t.Helper()

	dsn := fmt.Sprintf(
		"file:webhooks-test-%d?mode=memory&cache=shared&_foreign_keys=on",
		time.Now().UnixNano(),
	)
	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		t.Fatalf("open sqlite db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	cfg := testPersistenceConfig{
		driver: "sqlite3",
		server: dsn,
	}
	client, err := persistence.New(cfg, sqlDB, sqlitedialect.New())
	if err != nil {
		_ = sqlDB.Close()
		t.Fatalf("new persistence client: %v", err)
	}

	ctx := context.Background()
	_, err = webhookmigrations.Register(ctx, func(_ context.Context, dialect string, _ string, fsys fs.FS) error {
		if dialect != webhookmigrations.DialectSQLite {
			return nil
		}
		client.RegisterSQLMigrations(fsys)
		return nil
	}, webhookmigrations.WithValidationTargets(webhookmigrations.DialectSQLite))
	if err != nil {
		_ = client.Close()
		t.Fatalf("register migrations: %v", err)
	}
	if err := client.Migrate(ctx); err != nil {
		_ = client.Close()
		t.Fatalf("migrate: %v", err)
	}

	return client, func() {
		_ = client.Close()
	}
}
