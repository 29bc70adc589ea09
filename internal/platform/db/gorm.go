package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// slowQueryThreshold is the duration above which a statement is logged at warn.
const slowQueryThreshold = 200 * time.Millisecond

// GormConfig returns the gorm settings shared by the server and tests.
// Every repository write is a single statement or an explicit transaction,
// so gorm's implicit per-write transaction is disabled.
func GormConfig(logger zerolog.Logger) *gorm.Config {
	return &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 NewGormLogger(logger),
	}
}

// NewGorm opens a MySQL-backed gorm handle. The DSN must carry parseTime=true
// so DATETIME columns scan into time.Time.
func NewGorm(dsn string, maxConns, minConns int32, logger zerolog.Logger) (*gorm.DB, error) {
	gdb, err := gorm.Open(mysql.Open(dsn), GormConfig(logger))
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("mysql handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(int(maxConns))
	sqlDB.SetMaxIdleConns(int(minConns))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}
	return gdb, nil
}

// NewGormFromConn wraps an existing *sql.DB, for example a sqlmock connection.
func NewGormFromConn(conn *sql.DB, logger zerolog.Logger) (*gorm.DB, error) {
	return gorm.Open(mysql.New(mysql.Config{
		Conn:                      conn,
		SkipInitializeWithVersion: true,
	}), GormConfig(logger))
}

// CloseGorm releases the connection pool behind gdb.
func CloseGorm(gdb *gorm.DB) error {
	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// GormLogger routes gorm's statement log through zerolog.
type GormLogger struct {
	logger zerolog.Logger
	level  gormlogger.LogLevel
}

func NewGormLogger(logger zerolog.Logger) *GormLogger {
	return &GormLogger{logger: logger, level: gormlogger.Warn}
}

func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	next := *l
	next.level = level
	return &next
}

func (l *GormLogger) Info(_ context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Info {
		l.logger.Info().Msgf(msg, args...)
	}
}

func (l *GormLogger) Warn(_ context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Warn {
		l.logger.Warn().Msgf(msg, args...)
	}
}

func (l *GormLogger) Error(_ context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Error {
		l.logger.Error().Msgf(msg, args...)
	}
}

func (l *GormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	switch {
	case err != nil && l.level >= gormlogger.Error && !errors.Is(err, gormlogger.ErrRecordNotFound):
		query, rows := fc()
		l.logger.Error().Err(err).Str("sql", query).Int64("rows", rows).Dur("latency", elapsed).Msg("gorm query failed")
	case elapsed > slowQueryThreshold && l.level >= gormlogger.Warn:
		query, rows := fc()
		l.logger.Warn().Str("sql", query).Int64("rows", rows).Dur("latency", elapsed).Msg("slow query")
	case l.level >= gormlogger.Info:
		query, rows := fc()
		l.logger.Debug().Str("sql", query).Int64("rows", rows).Dur("latency", elapsed).Msg("gorm query")
	}
}
