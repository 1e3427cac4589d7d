// utils/logger.go
package utils

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogConfig configures the process logger.
type LogConfig struct {
	Path    string `toml:"path"`
	File    string `toml:"file"`
	Level   string `toml:"level"`
	Verbose bool   `toml:"verbose"`
}

var (
	mu      sync.RWMutex
	logger  = newLogger(zapcore.InfoLevel, zapcore.AddSync(os.Stdout))
	verbose = true
)

// Init builds the global logger from config. Output goes to stdout, and also to a
// rotating file when a log file is configured.
func Init(config *LogConfig) {
	level := parseLevel(config.Level)
	if config.Verbose {
		level = zapcore.DebugLevel
	}

	syncer := zapcore.AddSync(os.Stdout)
	if config.File != "" {
		fileSyncer := zapcore.AddSync(&lumberjack.Logger{
			Filename:   filepath.Join(config.Path, config.File),
			MaxSize:    100,
			MaxBackups: 5,
			MaxAge:     30,
		})
		syncer = zapcore.NewMultiWriteSyncer(syncer, fileSyncer)
	}

	SetLogger(newLogger(level, syncer))
	SetVerbose(config.Verbose)
}

// InitLogger configures console logging only. silent discards all output, which
// tests use to keep their output clean.
func InitLogger(verboseMode bool, silent bool) {
	if silent {
		SetLogger(zap.NewNop().Sugar())
		SetVerbose(verboseMode)
		return
	}
	level := zapcore.InfoLevel
	if verboseMode {
		level = zapcore.DebugLevel
	}
	SetLogger(newLogger(level, zapcore.AddSync(os.Stdout)))
	SetVerbose(verboseMode)
}

// GetLogger returns the current logger
func GetLogger() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// SetLogger replaces the current logger
func SetLogger(l *zap.SugaredLogger) {
	mu.Lock()
	defer mu.Unlock()
	logger = l
}

// Sync flushes buffered log entries.
func Sync() {
	_ = GetLogger().Sync()
}

// LogInfo logs an info message
func LogInfo(format string, args ...any) {
	GetLogger().Infof(format, args...)
}

// LogDebug logs a debug message if verbose mode is enabled
func LogDebug(format string, args ...any) {
	if GetVerbose() {
		GetLogger().Debugf(format, args...)
	}
}

// LogWarn logs a warning message
func LogWarn(format string, args ...any) {
	GetLogger().Warnf(format, args...)
}

// LogError logs an error message
func LogError(format string, args ...any) {
	GetLogger().Errorf(format, args...)
}

// SetVerbose sets the verbose logging mode
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// GetVerbose returns the current verbose logging mode
func GetVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

func newLogger(level zapcore.Level, syncer zapcore.WriteSyncer) *zap.SugaredLogger {
	core := zapcore.NewCore(getEncoder(), syncer, level)
	return zap.New(core).Sugar()
}

func getEncoder() zapcore.Encoder {
	return zapcore.NewConsoleEncoder(
		zapcore.EncoderConfig{
			TimeKey:          "ts",
			LevelKey:         "level",
			NameKey:          "logger",
			FunctionKey:      zapcore.OmitKey,
			MessageKey:       "msg",
			StacktraceKey:    "stacktrace",
			LineEnding:       zapcore.DefaultLineEnding,
			EncodeLevel:      encodeLevel,
			EncodeTime:       encodeTime,
			EncodeDuration:   zapcore.SecondsDurationEncoder,
			ConsoleSeparator: " ",
		})
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func encodeLevel(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString("[" + level.CapitalString() + "]")
}

func encodeTime(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString("[" + t.Format("2006-01-02 15:04:05.000") + "]")
}
