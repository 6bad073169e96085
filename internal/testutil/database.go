// Package testutil provides test helpers for setting up in-memory databases,
// creating fixtures, and making assertions.
package testutil

import (
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"nextfinance/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var dbCounter atomic.Int64

// ErrSimulatedFailure is the error injected by FailWritesOn.
var ErrSimulatedFailure = errors.New("simulated storage failure")

// SetupTestDB creates an in-memory SQLite database with all models migrated.
// Every call gets its own database so tests cannot see each other's rows.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", dbCounter.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get underlying DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

// TeardownTestDB closes the underlying database connection.
func TeardownTestDB(t *testing.T, db *gorm.DB) {
	t.Helper()

	sqlDB, err := db.DB()
	if err != nil {
		t.Errorf("failed to get underlying DB for teardown: %v", err)
		return
	}
	if err := sqlDB.Close(); err != nil {
		t.Errorf("failed to close test database: %v", err)
	}
}

// FailWritesOn makes every UPDATE against table fail with
// ErrSimulatedFailure until the test ends.
func FailWritesOn(t *testing.T, db *gorm.DB, table string) {
	t.Helper()

	name := fmt.Sprintf("testutil:fail_%s_%d", table, dbCounter.Add(1))
	err := db.Callback().Update().Before("gorm:update").Register(name, func(tx *gorm.DB) {
		if tx.Statement.Table == table {
			_ = tx.AddError(ErrSimulatedFailure)
		}
	})
	if err != nil {
		t.Fatalf("failed to register failure callback: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Callback().Update().Remove(name)
	})
}
