package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	gormlogger "gorm.io/gorm/logger"

	"github.com/noah-isme/gema-assessment/internal/middleware"
)

// queryLogger writes GORM's failed and slow statements to zerolog. Misses in
// the find-or-create paths are expected and never logged.
type queryLogger struct {
	logger        zerolog.Logger
	level         gormlogger.LogLevel
	slowThreshold time.Duration
}

func newQueryLogger(logger zerolog.Logger, slowThreshold time.Duration) *queryLogger {
	return &queryLogger{
		logger:        logger.With().Str("component", "gorm").Logger(),
		level:         gormlogger.Warn,
		slowThreshold: slowThreshold,
	}
}

func (l *queryLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

func (l *queryLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= gormlogger.Info {
		l.event(ctx, l.logger.Info()).Msg(fmt.Sprintf(msg, data...))
	}
}

func (l *queryLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= gormlogger.Warn {
		l.event(ctx, l.logger.Warn()).Msg(fmt.Sprintf(msg, data...))
	}
}

func (l *queryLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= gormlogger.Error {
		l.event(ctx, l.logger.Error()).Msg(fmt.Sprintf(msg, data...))
	}
}

func (l *queryLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	switch {
	case err != nil && !errors.Is(err, gormlogger.ErrRecordNotFound) && l.level >= gormlogger.Error:
		sql, rows := fc()
		l.event(ctx, l.logger.Error()).Err(err).
			Str("sql", sql).
			Int64("rows", rows).
			Dur("elapsed", elapsed).
			Msg("query failed")
	case l.slowThreshold > 0 && elapsed > l.slowThreshold && l.level >= gormlogger.Warn:
		sql, rows := fc()
		l.event(ctx, l.logger.Warn()).
			Str("sql", sql).
			Int64("rows", rows).
			Dur("elapsed", elapsed).
			Dur("threshold", l.slowThreshold).
			Msg("slow query")
	case l.level >= gormlogger.Info:
		sql, rows := fc()
		l.event(ctx, l.logger.Debug()).Str("sql", sql).Int64("rows", rows).Dur("elapsed", elapsed).Msg("query")
	}
}

func (l *queryLogger) event(ctx context.Context, event *zerolog.Event) *zerolog.Event {
	if correlationID := middleware.CorrelationIDFromContext(ctx); correlationID != "" {
		event = event.Str("correlation_id", correlationID)
	}
	return event
}
