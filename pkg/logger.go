package pkg

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Fields is a map of fields to add to log entries
type Fields map[string]any

// zerolog keeps these as package globals; set them once
var (
	timeFormatOnce sync.Once
	callerSkipOnce sync.Once
)

// Logger wraps zerolog with the fields the simulator attaches per participant.
type Logger struct {
	*zerolog.Logger
}

// Config holds logger configuration
type Config struct {
	// Level is the minimum log level (trace, debug, info, warn, error, fatal, panic)
	Level string `json:"level" yaml:"level"`

	// Format is the output format (json, console)
	Format string `json:"format" yaml:"format"`

	// TimestampFormat for logs
	TimestampFormat string `json:"timestamp_format" yaml:"timestamp_format"`

	// Console output settings
	Console ConsoleConfig `json:"console" yaml:"console"`

	// File output settings
	File FileConfig `json:"file" yaml:"file"`

	// Fields are default fields added to all logs
	Fields Fields `json:"fields" yaml:"fields"`

	// CallerSkipFrameCount for caller information
	CallerSkipFrameCount int `json:"caller_skip_frame_count" yaml:"caller_skip_frame_count"`

	// EnableCaller adds caller information to logs
	EnableCaller bool `json:"enable_caller" yaml:"enable_caller"`
}

// ConsoleConfig for console output
type ConsoleConfig struct {
	Enable     bool   `json:"enable" yaml:"enable"`
	NoColor    bool   `json:"no_color" yaml:"no_color"`
	TimeFormat string `json:"time_format" yaml:"time_format"`

	// Output target (stdout, stderr). Stdout is reserved for the lookup report,
	// so stderr is the default.
	Output string `json:"output" yaml:"output"`
}

// FileConfig for file output
type FileConfig struct {
	Enable     bool   `json:"enable" yaml:"enable"`
	Path       string `json:"path" yaml:"path"`
	MaxSize    int    `json:"max_size" yaml:"max_size"` // megabytes
	MaxAge     int    `json:"max_age" yaml:"max_age"`   // days
	MaxBackups int    `json:"max_backups" yaml:"max_backups"`
	LocalTime  bool   `json:"local_time" yaml:"local_time"`
	Compress   bool   `json:"compress" yaml:"compress"`
}

// DefaultConfig returns default logger configuration
func DefaultConfig() *Config {
	return &Config{
		Level:           "info",
		Format:          "console",
		TimestampFormat: time.RFC3339Nano,
		Console: ConsoleConfig{
			Enable:     true,
			NoColor:    false,
			TimeFormat: "15:04:05.000",
			Output:     "stderr",
		},
		File: FileConfig{
			Enable:     false,
			Path:       "ringlookup.log",
			MaxSize:    100,
			MaxAge:     30,
			MaxBackups: 10,
			LocalTime:  true,
			Compress:   true,
		},
		Fields:               make(Fields),
		CallerSkipFrameCount: 2,
		EnableCaller:         false,
	}
}

// New creates a new logger instance
func New(config *Config) (*Logger, error) {
	if config == nil {
		config = DefaultConfig()
	}

	level, err := zerolog.ParseLevel(config.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	writers := []io.Writer{}

	if config.Console.Enable {
		var output io.Writer
		switch config.Console.Output {
		case "stdout":
			output = os.Stdout
		default:
			output = os.Stderr
		}

		if config.Format == "console" {
			writers = append(writers, zerolog.ConsoleWriter{
				Out:        output,
				TimeFormat: config.Console.TimeFormat,
				NoColor:    config.Console.NoColor,
			})
		} else {
			writers = append(writers, output)
		}
	}

	if config.File.Enable {
		if err := os.MkdirAll(filepath.Dir(config.File.Path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}

		writers = append(writers, &lumberjack.Logger{
			Filename:   config.File.Path,
			MaxSize:    config.File.MaxSize,
			MaxAge:     config.File.MaxAge,
			MaxBackups: config.File.MaxBackups,
			LocalTime:  config.File.LocalTime,
			Compress:   config.File.Compress,
		})
	}

	var writer io.Writer
	switch len(writers) {
	case 0:
		writer = io.Discard
	case 1:
		writer = writers[0]
	default:
		writer = zerolog.MultiLevelWriter(writers...)
	}

	if config.EnableCaller {
		callerSkipOnce.Do(func() {
			zerolog.CallerSkipFrameCount = config.CallerSkipFrameCount
		})
	}

	ctx := zerolog.New(writer).
		Level(level).
		With().
		Timestamp()

	if config.EnableCaller {
		ctx = ctx.Caller()
	}

	for k, v := range config.Fields {
		ctx = ctx.Interface(k, v)
	}

	if config.TimestampFormat != "" {
		timeFormatOnce.Do(func() {
			zerolog.TimeFieldFormat = config.TimestampFormat
		})
	}

	zl := ctx.Logger()
	return &Logger{Logger: &zl}, nil
}

// Nop returns a logger that discards everything. Used by tests and by
// components constructed without a logger.
func Nop() *Logger {
	zl := zerolog.Nop()
	return &Logger{Logger: &zl}
}

// WithFields creates a new logger with additional fields
func (l *Logger) WithFields(fields Fields) *Logger {
	ctx := l.Logger.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}

	zl := ctx.Logger()
	return &Logger{Logger: &zl}
}
