package internal

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"wxpay/entity"
	"wxpay/services"
)

var _ services.LogHandler = (*Logger)(nil)

// Logger writes through zap and, when a database is attached, keeps a copy of
// warnings and errors in the payment log collection.
type Logger struct {
	category string
	zap      *zap.Logger
	database services.Database
}

func NewLogger(category string, debug bool, database services.Database) *Logger {
	var conf zap.Config
	if debug {
		conf = zap.NewDevelopmentConfig()
	} else {
		conf = zap.NewProductionConfig()
	}
	logger, err := conf.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		logger = zap.NewNop()
	}
	return NewLoggerWithZap(category, logger, database)
}

func NewLoggerWithZap(category string, logger *zap.Logger, database services.Database) *Logger {
	return &Logger{
		category: category,
		zap:      logger.Named(category),
		database: database,
	}
}

func (l *Logger) Debug(text string) {
	l.zap.Debug(text)
}

func (l *Logger) Info(text string) {
	l.zap.Info(text)
}

func (l *Logger) Warn(text string) {
	l.zap.Warn(text)
	l.store(zapcore.WarnLevel, text)
}

func (l *Logger) Error(text string, err error) {
	l.zap.Error(text, zap.Error(err))
	if err != nil {
		text = fmt.Sprintf("%s: %v", text, err)
	}
	l.store(zapcore.ErrorLevel, text)
}

// Sync flushes buffered log entries.
func (l *Logger) Sync() {
	_ = l.zap.Sync()
}

func (l *Logger) store(level zapcore.Level, text string) {
	if l.database == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	message := &entity.LogMessage{
		Time:     time.Now(),
		Level:    level.String(),
		Category: l.category,
		Text:     text,
	}
	if err := l.database.WriteLogMessage(ctx, message); err != nil {
		l.zap.Debug("write log message", zap.Error(err))
	}
}
