package sqlstore

import (
	"fmt"

	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/goliatone/go-webhooks/core"
	"github.com/uptrace/bun"
)

type RepositoryFactory struct {
	db *bun.DB

	webhookStore *WebhookStore
	fireLedger   *FireLedger
}

func NewRepositoryFactory() *RepositoryFactory {
	return &RepositoryFactory{}
}

func NewRepositoryFactoryFromPersistence(client *persistence.Client) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory()
	if err := factory.BuildStores(client); err != nil {
		return nil, err
	}
	return factory, nil
}

func NewRepositoryFactoryFromDB(db *bun.DB) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory()
	if err := factory.BuildStores(db); err != nil {
		return nil, err
	}
	return factory, nil
}

// BuildStores accepts either a *bun.DB or anything exposing DB() *bun.DB,
// like the go-persistence-bun client.
func (f *RepositoryFactory) BuildStores(persistenceClient any) error {
	if f == nil {
		return fmt.Errorf("sqlstore: repository factory is nil")
	}
	if f.db == nil {
		db, err := resolveBunDB(persistenceClient)
		if err != nil {
			return err
		}
		f.db = db
	}
	if f.webhookStore != nil && f.fireLedger != nil {
		return nil
	}
	return f.initStores()
}

func (f *RepositoryFactory) WebhookStore() core.WebhookStore {
	if f == nil || f.webhookStore == nil {
		return nil
	}
	return f.webhookStore
}

func (f *RepositoryFactory) FireLedger() *FireLedger {
	if f == nil {
		return nil
	}
	return f.fireLedger
}

func (f *RepositoryFactory) DB() *bun.DB {
	if f == nil {
		return nil
	}
	return f.db
}

func (f *RepositoryFactory) initStores() error {
	webhookStore, err := NewWebhookStore(f.db)
	if err != nil {
		return err
	}
	f.webhookStore = webhookStore

	fireLedger, err := NewFireLedger(f.db)
	if err != nil {
		return err
	}
	f.fireLedger = fireLedger
	return nil
}

func resolveBunDB(candidate any) (*bun.DB, error) {
	switch typed := candidate.(type) {
	case nil:
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	case *bun.DB:
		return typed, nil
	case interface{ DB() *bun.DB }:
		db := typed.DB()
		if db == nil {
			return nil, fmt.Errorf("sqlstore: persistence client returned nil bun db")
		}
		return db, nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported persistence client type %T", candidate)
	}
}
