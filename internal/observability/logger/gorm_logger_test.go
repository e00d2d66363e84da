package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

var errLockLost = errors.New("could not serialize access")

func observe(t *testing.T) *observer.ObservedLogs {
	core, logs := observer.New(zapcore.DebugLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	t.Cleanup(restore)
	return logs
}

func TestTraceDowngradesExpectedErrors(t *testing.T) {
	logs := observe(t)
	cfg := DefaultGormLoggerConfig()
	cfg.Expected = func(err error) bool { return errors.Is(err, errLockLost) }
	l := NewGormLogger(cfg)
	stmt := func() (string, int64) { return "UPDATE temporal_tickets SET ticket_status = ?", 0 }

	l.Trace(context.Background(), time.Now(), stmt, errLockLost)
	l.Trace(context.Background(), time.Now(), stmt, errors.New("disk full"))
	l.Trace(context.Background(), time.Now(), stmt, gormlogger.ErrRecordNotFound)

	entries := logs.All()
	if assert.Len(t, entries, 2) {
		assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
		assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
		assert.Equal(t, "UPDATE", entries[1].ContextMap()["operation"])
	}
}

func TestOperationFromSQL(t *testing.T) {
	assert.Equal(t, "SELECT", operationFromSQL("WITH x AS (SELECT 1) SELECT * FROM x"))
	assert.Equal(t, "INSERT", operationFromSQL(" insert into sold_products values (?)"))
	assert.Equal(t, "UNKNOWN", operationFromSQL(""))
}
