// Package log 提供基于 zap 的日志接口与全局日志记录器
package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger 日志接口
type Logger interface {
	Debug(msg string)
	Debugf(format string, args ...interface{})
	Info(msg string)
	Infof(format string, args ...interface{})
	Warn(msg string)
	Warnf(format string, args ...interface{})
	Error(msg string)
	Errorf(format string, args ...interface{})

	// With 追加键值对字段，返回新的记录器
	With(args ...interface{}) Logger
	Sync() error
}

var (
	globalLogger Logger = NewNop()
	mu           sync.RWMutex
)

// zapLogger zap 实现
type zapLogger struct {
	base  *zap.Logger
	sugar *zap.SugaredLogger
}

// New 按配置创建日志记录器
func New(opts *Options) (Logger, error) {
	return newWithConsole(opts, os.Stderr)
}

func newWithConsole(opts *Options, console io.Writer) (Logger, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	lvl, err := opts.ZapLevel()
	if err != nil {
		return nil, err
	}
	level := zap.NewAtomicLevelAt(lvl)

	var cores []zapcore.Core
	if opts.ToConsole {
		cores = append(cores, zapcore.NewCore(consoleEncoder(), zapcore.AddSync(console), level))
	}
	if opts.FilePath != "" {
		writer, err := createFileWriter(opts)
		if err != nil {
			return nil, err
		}
		cores = append(cores, zapcore.NewCore(fileEncoder(), writer, level))
	}
	if len(cores) == 0 {
		return NewNop(), nil
	}

	var zapOptions []zap.Option
	if opts.EnableCaller {
		zapOptions = append(zapOptions, zap.AddCaller(), zap.AddCallerSkip(1))
	}
	if opts.EnableStacktrace {
		zapOptions = append(zapOptions, zap.AddStacktrace(zapcore.ErrorLevel))
	}

	base := zap.New(zapcore.NewTee(cores...), zapOptions...)
	return &zapLogger{base: base, sugar: base.Sugar()}, nil
}

// createFileWriter 创建带轮转的文件写入器
func createFileWriter(opts *Options) (zapcore.WriteSyncer, error) {
	path, err := filepath.Abs(opts.FilePath)
	if err != nil {
		return nil, fmt.Errorf("resolve log path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    opts.MaxSize,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAge,
		Compress:   opts.Compress,
	}), nil
}

// NewNop 返回不输出任何内容的记录器
func NewNop() Logger {
	base := zap.NewNop()
	return &zapLogger{base: base, sugar: base.Sugar()}
}

func (l *zapLogger) Debug(msg string)                          { l.sugar.Debug(msg) }
func (l *zapLogger) Debugf(format string, args ...interface{}) { l.sugar.Debugf(format, args...) }
func (l *zapLogger) Info(msg string)                           { l.sugar.Info(msg) }
func (l *zapLogger) Infof(format string, args ...interface{})  { l.sugar.Infof(format, args...) }
func (l *zapLogger) Warn(msg string)                           { l.sugar.Warn(msg) }
func (l *zapLogger) Warnf(format string, args ...interface{})  { l.sugar.Warnf(format, args...) }
func (l *zapLogger) Error(msg string)                          { l.sugar.Error(msg) }
func (l *zapLogger) Errorf(format string, args ...interface{}) { l.sugar.Errorf(format, args...) }

func (l *zapLogger) With(args ...interface{}) Logger {
	sugar := l.sugar.With(args...)
	return &zapLogger{base: sugar.Desugar(), sugar: sugar}
}

func (l *zapLogger) Sync() error { return l.base.Sync() }

// SetLogger 设置全局日志记录器
func SetLogger(logger Logger) {
	if logger == nil {
		return
	}
	mu.Lock()
	globalLogger = logger
	mu.Unlock()
}

// GetLogger 获取全局日志记录器
func GetLogger() Logger {
	mu.RLock()
	defer mu.RUnlock()
	return globalLogger
}

// Named 返回带 module 字段的全局记录器
func Named(module string) Logger {
	return GetLogger().With("module", module)
}

// 以下是全局日志函数

func Debugf(format string, args ...interface{}) { GetLogger().Debugf(format, args...) }
func Infof(format string, args ...interface{})  { GetLogger().Infof(format, args...) }
func Warnf(format string, args ...interface{})  { GetLogger().Warnf(format, args...) }
func Errorf(format string, args ...interface{}) { GetLogger().Errorf(format, args...) }

// Sync 刷新全局记录器
func Sync() error { return GetLogger().Sync() }
