// Package testutil opens throwaway databases for repository and service tests.
package testutil

import (
	"fitcoach-go/internal/model"
	"fitcoach-go/internal/repository"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// DB returns a migrated in-memory SQLite database private to tb. The chat
// tables and the read-only user/profile/workout tables are all created.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		tb.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		tb.Fatalf("failed to get sql.DB: %v", err)
	}
	// every connection to :memory: is a separate database
	sqlDB.SetMaxOpenConns(1)
	tb.Cleanup(func() { _ = sqlDB.Close() })

	if err := repository.AutoMigrate(db); err != nil {
		tb.Fatalf("failed to migrate chat tables: %v", err)
	}
	if err := db.AutoMigrate(&model.User{}, &model.UserProfile{}, &model.WorkoutSession{}); err != nil {
		tb.Fatalf("failed to migrate collaborator tables: %v", err)
	}
	return db
}
