package logger

import (
	"fmt"
	"os"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the logging interface used across the transfer pipeline. It is implemented by
// go.uber.org/zap.SugaredLogger.
//
// Loggers should be injected and Named per component: e.g. lggr.Named("funding")
//
// Tests
//   - Tests should use a [Test] logger, with [Config.New] being reserved for the CLI.
//
// Levels
//   - Error: a pipeline step failed and the run is aborted.
//   - Warn: the run continues but the result may not be what was asked for. Example: the
//     airdrop request was clamped to the faucet cap.
//   - Info: progress a user running the CLI expects to see: balances, signatures, links.
//   - Debug: individual RPC round trips and poll attempts.
//
// Secret key material must never be passed to any method of this interface.
type Logger interface {
	// Name returns the fully qualified name of the logger.
	Name() string
	// Named returns a child logger with name appended to the current name.
	Named(name string) Logger
	// With returns a child logger with the key-value pairs attached to every entry.
	With(keysAndValues ...any) Logger

	Debug(args ...any)
	Info(args ...any)
	Warn(args ...any)
	Error(args ...any)

	Debugf(format string, values ...any)
	Infof(format string, values ...any)
	Warnf(format string, values ...any)
	Errorf(format string, values ...any)

	Debugw(msg string, keysAndValues ...any)
	Infow(msg string, keysAndValues ...any)
	Warnw(msg string, keysAndValues ...any)
	Errorw(msg string, keysAndValues ...any)

	// Sync flushes any buffered log entries.
	Sync() error
}

// Format selects the encoder used by a logger built from [Config].
type Format string

const (
	FormatJSON    Format = "json"
	FormatConsole Format = "console"
)

// Config configures a runtime logger.
type Config struct {
	Level  zapcore.Level
	Format Format
	// File, when set, additionally writes entries to a size-rotated file.
	File string
	// MaxSizeMB is the rotation threshold for File. Defaults to 10.
	MaxSizeMB int
}

// New returns a new Logger for Config.
func (c Config) New() (Logger, error) {
	var encCfg zapcore.EncoderConfig
	var enc zapcore.Encoder

	switch c.Format {
	case FormatConsole:
		encCfg = zap.NewDevelopmentEncoderConfig()
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	case FormatJSON, "":
		encCfg = zap.NewProductionEncoderConfig()
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		enc = zapcore.NewJSONEncoder(encCfg)
	default:
		return nil, fmt.Errorf("unsupported log format: %q", c.Format)
	}

	cores := []zapcore.Core{
		zapcore.NewCore(enc, zapcore.Lock(os.Stderr), c.Level),
	}

	if c.File != "" {
		maxSize := c.MaxSizeMB
		if maxSize <= 0 {
			maxSize = 10
		}
		// The file sink always gets JSON so it stays machine readable.
		fileEnc := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
		cores = append(cores, zapcore.NewCore(fileEnc, zapcore.AddSync(&lumberjack.Logger{
			Filename:   c.File,
			MaxSize:    maxSize,
			MaxBackups: 3,
			Compress:   true,
		}), c.Level))
	}

	return &logger{zap.New(zapcore.NewTee(cores...)).Sugar()}, nil
}

// ParseLevel parses a textual level such as "debug" or "INFO".
func ParseLevel(s string) (zapcore.Level, error) {
	if s == "" {
		return zapcore.InfoLevel, nil
	}

	return zapcore.ParseLevel(s)
}

// Test returns a new test Logger for tb.
func Test(tb testing.TB) Logger {
	tb.Helper()
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000000000")
	lggr := zap.New(
		zapcore.NewCore(
			zapcore.NewConsoleEncoder(cfg),
			zaptest.NewTestingWriter(tb),
			zapcore.DebugLevel,
		),
	)

	return &logger{lggr.Sugar()}
}

// TestObserved returns a new test Logger for tb and ObservedLogs at the given Level.
func TestObserved(tb testing.TB, lvl zapcore.Level) (Logger, *observer.ObservedLogs) {
	tb.Helper()
	oCore, logs := observer.New(lvl)
	observe := zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapcore.NewTee(c, oCore)
	})

	return &logger{zaptest.NewLogger(tb, zaptest.WrapOptions(observe, zap.AddCaller())).Sugar()}, logs
}

// Nop returns a no-op Logger.
func Nop() Logger {
	return &logger{zap.New(zapcore.NewNopCore()).Sugar()}
}

type logger struct {
	*zap.SugaredLogger
}

func (l *logger) Name() string {
	return l.Desugar().Name()
}

func (l *logger) Named(name string) Logger {
	return &logger{l.SugaredLogger.Named(name)}
}

func (l *logger) With(keysAndValues ...any) Logger {
	return &logger{l.SugaredLogger.With(keysAndValues...)}
}
