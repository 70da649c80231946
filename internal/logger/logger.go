// Package logger provides verbose logging for the aECG CLI.
// Messages go through a zap logger. The console encoding prints one
// "[LEVEL] message" line per call; the JSON encoding adds an ISO8601
// timestamp. Warnings are printed by default, and --verbose lowers the
// level to debug so users can follow decoding and indexing.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Supported encodings.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

var (
	mu        sync.RWMutex
	verbose   bool
	baseLevel           = zapcore.WarnLevel
	level               = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	format              = FormatConsole
	output    io.Writer = os.Stderr
	log                 = build()
)

// build creates the zap logger for the current settings (caller must hold lock).
func build() *zap.Logger {
	return zap.New(zapcore.NewCore(newEncoder(format), zapcore.AddSync(output), level))
}

// newEncoder returns the encoder for a format name.
func newEncoder(name string) zapcore.Encoder {
	if name == FormatJSON {
		cfg := zap.NewProductionEncoderConfig()
		cfg.TimeKey = "timestamp"
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		return zapcore.NewJSONEncoder(cfg)
	}
	return zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		LevelKey:         "level",
		MessageKey:       "msg",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeLevel:      bracketLevelEncoder,
		ConsoleSeparator: " ",
	})
}

func bracketLevelEncoder(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString("[" + l.CapitalString() + "]")
}

// ParseLevel parses debug, info, warn or error.
func ParseLevel(s string) (zapcore.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "info":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", s)
	}
}

// Configure sets the level and encoding. Verbose mode still forces debug.
func Configure(levelName, formatName string) error {
	l, err := ParseLevel(levelName)
	if err != nil {
		return err
	}
	if formatName != FormatConsole && formatName != FormatJSON {
		return fmt.Errorf("unknown log format %q", formatName)
	}

	mu.Lock()
	defer mu.Unlock()
	baseLevel = l
	if !verbose {
		level.SetLevel(l)
	}
	format = formatName
	log = build()
	return nil
}

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
	if v {
		level.SetLevel(zapcore.DebugLevel)
	} else {
		level.SetLevel(baseLevel)
	}
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the output writer for logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	log = build()
}

// L returns the underlying zap logger.
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

// Sync flushes buffered log entries.
func Sync() error {
	return L().Sync()
}

// Debug logs a debug message.
func Debug(format string, args ...any) {
	L().Debug(fmt.Sprintf(format, args...))
}

// Section prints a section header when debug output is enabled.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	if level.Enabled(zapcore.DebugLevel) && format == FormatConsole {
		fmt.Fprintf(output, "\n=== %s ===\n", name)
	}
}

// Info logs an informational message.
func Info(format string, args ...any) {
	L().Info(fmt.Sprintf(format, args...))
}

// Warn logs a warning.
func Warn(format string, args ...any) {
	L().Warn(fmt.Sprintf(format, args...))
}

// Error logs an error.
func Error(format string, args ...any) {
	L().Error(fmt.Sprintf(format, args...))
}
