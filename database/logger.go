package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/MrEdHardy/schleuben/logger"
)

var queryLevels = map[string]gormlogger.LogLevel{
	"silent": gormlogger.Silent,
	"error":  gormlogger.Error,
	"warn":   gormlogger.Warn,
	"info":   gormlogger.Info,
}

// queryLogLevel maps the configured level onto gorm's; unknown values mean info.
func queryLogLevel(level string) gormlogger.LogLevel {
	if l, ok := queryLevels[strings.ToLower(level)]; ok {
		return l
	}
	return gormlogger.Info
}

// queryLogger routes gorm's statement log into the service logger, carrying
// the request ID of the HTTP call that issued the query.
type queryLogger struct {
	log   *logger.Logger
	level gormlogger.LogLevel
	slow  time.Duration
}

func newQueryLogger(log *logger.Logger, slow time.Duration, level gormlogger.LogLevel) gormlogger.Interface {
	return &queryLogger{log: log.WithComponent("database.sql"), level: level, slow: slow}
}

func (q *queryLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	c := *q
	c.level = level
	return &c
}

func (q *queryLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if q.level >= gormlogger.Info {
		q.log.WithContext(ctx).Info(fmt.Sprintf(msg, data...))
	}
}

func (q *queryLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if q.level >= gormlogger.Warn {
		q.log.WithContext(ctx).Warn(fmt.Sprintf(msg, data...))
	}
}

func (q *queryLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if q.level >= gormlogger.Error {
		q.log.WithContext(ctx).Error(fmt.Sprintf(msg, data...))
	}
}

// Trace logs failed statements at error, slow ones at warn and the rest at
// debug. A missing record is an expected outcome for GetById lookups.
func (q *queryLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if q.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	statement, rows := fc()
	fields := logger.Fields("sql", statement, "rows", rows, logger.FieldDuration, elapsed.Milliseconds())
	log := q.log.WithContext(ctx)

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		if q.level >= gormlogger.Error {
			fields[logger.FieldError] = err.Error()
			log.Error("Statement failed", fields)
		}
	case q.slow > 0 && elapsed > q.slow:
		if q.level >= gormlogger.Warn {
			log.Warn("Slow statement", fields)
		}
	case q.level >= gormlogger.Info:
		log.Debug("Statement", fields)
	}
}
