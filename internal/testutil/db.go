// Package testutil opens throwaway SQLite databases for package tests.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/kiteboard/kiteboard-backend/internal/database"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB returns a migrated SQLite database living in the test's temp dir.
// Extra models are migrated after the shared ones.
func NewDB(t testing.TB, extra ...interface{}) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(path+"?_busy_timeout=5000"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.MigrateShared(db); err != nil {
		t.Fatalf("migrate shared: %v", err)
	}
	if err := database.MigrateModels(db, extra); err != nil {
		t.Fatalf("migrate extra: %v", err)
	}
	return db
}
