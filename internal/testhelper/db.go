// Package testhelper provides an isolated in-memory store for package tests.
package testhelper

import (
	"fmt"
	"strings"
	"testing"

	"cardiopredict/internal/database"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// NewDB opens a migrated in-memory SQLite database unique to t. Connections are
// capped at one so concurrent tests never see "table is locked".
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)

	db, err := database.Connect(dsn, zap.NewNop())
	if err != nil {
		t.Fatalf("failed to open sqlite db: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := database.MigrateDB(db); err != nil {
		t.Fatalf("failed to migrate db: %v", err)
	}

	t.Cleanup(func() { _ = database.Close(db) })
	return db
}
