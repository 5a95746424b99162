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

func newObserved() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

func TestGormLogger_Trace(t *testing.T) {
	sqlFn := func() (string, int64) { return "SELECT 1", 1 }

	t.Run("logs errors", func(t *testing.T) {
		l, logs := newObserved()
		gl := NewGormLogger(l, gormlogger.Warn, time.Second)

		gl.Trace(context.Background(), time.Now(), sqlFn, errors.New("boom"))

		assert.Equal(t, 1, logs.FilterMessage("SQL Error").Len())
	})

	t.Run("ignores record not found", func(t *testing.T) {
		l, logs := newObserved()
		gl := NewGormLogger(l, gormlogger.Warn, time.Second)

		gl.Trace(context.Background(), time.Now(), sqlFn, gormlogger.ErrRecordNotFound)

		assert.Equal(t, 0, logs.Len())
	})

	t.Run("warns on slow queries", func(t *testing.T) {
		l, logs := newObserved()
		gl := NewGormLogger(l, gormlogger.Warn, time.Millisecond)

		gl.Trace(context.Background(), time.Now().Add(-time.Second), sqlFn, nil)

		assert.Equal(t, 1, logs.FilterMessage("Slow SQL").Len())
	})

	t.Run("silent logs nothing", func(t *testing.T) {
		l, logs := newObserved()
		gl := NewGormLogger(l, gormlogger.Info, time.Second).LogMode(gormlogger.Silent)

		gl.Trace(context.Background(), time.Now(), sqlFn, errors.New("boom"))

		assert.Equal(t, 0, logs.Len())
	})

	t.Run("uses the request logger from context", func(t *testing.T) {
		base, baseLogs := newObserved()
		req, reqLogs := newObserved()
		gl := NewGormLogger(base, gormlogger.Info, time.Second)

		gl.Trace(WithContext(context.Background(), req), time.Now(), sqlFn, nil)

		assert.Equal(t, 0, baseLogs.Len())
		assert.Equal(t, 1, reqLogs.FilterMessage("SQL Query").Len())
	})
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("warning"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("nonsense"))
}
