package sqlite

import (
	"context"
	"testing"

	"github.com/scamwatch/scamwatch-backend/internal/store"
	"github.com/scamwatch/scamwatch-backend/internal/store/storetest"
)

func TestSQLiteStoreCompliance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		db, err := OpenMemory()
		if err != nil {
			t.Fatalf("OpenMemory: %v", err)
		}
		t.Cleanup(func() { _ = db.Close() })
		if err := EnsureSchema(context.Background(), db); err != nil {
			t.Fatalf("EnsureSchema: %v", err)
		}
		return New(db)
	})
}

func TestOpenCreatesParentDir(t *testing.T) {
	path := t.TempDir() + "/nested/dir/scamwatch.db"
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = db.Close() }()
	if err := db.Ping(); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}
