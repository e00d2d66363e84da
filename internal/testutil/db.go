// Package testutil opens throwaway databases for package tests.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ConcurrentConns is the pool size of NewConcurrentDB.
const ConcurrentConns = 8

// NewDB opens an in-memory sqlite database with foreign keys enforced and the
// given models migrated. The pool is pinned to one connection so every
// statement sees the same memory database; concurrent transactions queue.
func NewDB(t *testing.T, models ...any) *gorm.DB {
	t.Helper()
	db := open(t, ":memory:", 1)
	require.NoError(t, db.Exec("PRAGMA foreign_keys = ON").Error)
	migrate(t, db, models)
	return db
}

// NewConcurrentDB opens a file-backed sqlite database in WAL mode with a pool
// of ConcurrentConns connections. Transactions from different goroutines run
// on their own connections, interleave their reads and contend for the write
// lock the way terminals do against a server database.
func NewConcurrentDB(t *testing.T, models ...any) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "innkeeper.db") +
		"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db := open(t, dsn, ConcurrentConns)
	migrate(t, db, models)
	return db
}

func open(t *testing.T, dsn string, conns int) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(conns)
	sqlDB.SetMaxIdleConns(conns)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func migrate(t *testing.T, db *gorm.DB, models []any) {
	t.Helper()
	if len(models) > 0 {
		require.NoError(t, db.AutoMigrate(models...))
	}
}

func NewNode(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return node
}
