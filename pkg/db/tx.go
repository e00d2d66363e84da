package db

import (
	"context"
	"database/sql"

	"github.com/smallbiznis/innkeeper/pkg/apperr"
	"gorm.io/gorm"
)

// Transact runs fn in one transaction at the isolation level required for
// claim checks: serializable where the database supports it. Failures caused by a
// competing writer surface as conflicts and anything unclassified as a storage
// failure, so callers never see raw driver errors.
func Transact(ctx context.Context, conn *gorm.DB, fn func(tx *gorm.DB) error) error {
	err := conn.WithContext(ctx).Transaction(fn, txOptions(conn)...)
	return Classify(err)
}

// Classify maps a raw persistence error onto the application taxonomy.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if apperr.KindOf(err) != nil {
		return err
	}
	if IsContentionErr(err) {
		return apperr.Conflict("concurrent_update", "the record was changed by another terminal", err)
	}
	return apperr.Storage(err)
}

func txOptions(conn *gorm.DB) []*sql.TxOptions {
	if conn == nil || conn.Dialector == nil {
		return nil
	}
	switch conn.Dialector.Name() {
	case "postgres", "mysql":
		return []*sql.TxOptions{{Isolation: sql.LevelSerializable}}
	default:
		return nil
	}
}
