package log

import (
	"fmt"
	"strings"

	"go.uber.org/zap/zapcore"
)

// 日志配置默认值
const (
	defaultLogLevel   = "info"
	defaultMaxSize    = 100 // MB
	defaultMaxBackups = 10
	defaultMaxAge     = 30 // days
	defaultCompress   = true
)

// Options 日志配置选项
type Options struct {
	Level     string `json:"level"`      // debug, info, warn, error
	ToConsole bool   `json:"to_console"` // 控制台输出（stderr）
	FilePath  string `json:"file_path"`  // 为空时不写文件

	MaxSize    int  `json:"max_size"`
	MaxBackups int  `json:"max_backups"`
	MaxAge     int  `json:"max_age"`
	Compress   bool `json:"compress"`

	EnableCaller     bool `json:"enable_caller"`
	EnableStacktrace bool `json:"enable_stacktrace"`
}

// DefaultOptions 返回默认配置：info 级别，仅输出到 stderr
func DefaultOptions() *Options {
	return &Options{
		Level:            defaultLogLevel,
		ToConsole:        true,
		MaxSize:          defaultMaxSize,
		MaxBackups:       defaultMaxBackups,
		MaxAge:           defaultMaxAge,
		Compress:         defaultCompress,
		EnableCaller:     true,
		EnableStacktrace: true,
	}
}

// ZapLevel 解析级别，空值为 info
func (o *Options) ZapLevel() (zapcore.Level, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(o.Level)))); err != nil {
		return lvl, fmt.Errorf("invalid log level %q (debug|info|warn|error)", o.Level)
	}
	return lvl, nil
}

func consoleEncoder() zapcore.Encoder {
	cfg := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalColorLevelEncoder,
		EncodeTime:     zapcore.TimeEncoderOfLayout("15:04:05.000"),
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	return zapcore.NewConsoleEncoder(cfg)
}

func fileEncoder() zapcore.Encoder {
	cfg := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	return zapcore.NewJSONEncoder(cfg)
}
