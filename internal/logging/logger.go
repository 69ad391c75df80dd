package logging

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ErrNoLog is returned when a session has no log file.
var ErrNoLog = errors.New("session log not found")

// New creates a JSON zap logger at the given level (debug, info, warn, error).
func New(levelStr string) (*zap.Logger, error) {
	level, err := parseLevel(levelStr)
	if err != nil {
		return nil, err
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(level)
	config.Encoding = "json"
	config.EncoderConfig = encoderConfig()

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	return logger, nil
}

// ForSession tees base into a per-session log file under dir.
// The returned close func syncs and closes the file.
func ForSession(base *zap.Logger, levelStr, dir, sessionID string) (*zap.Logger, func() error, error) {
	level, err := parseLevel(levelStr)
	if err != nil {
		return nil, nil, err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}

	f, err := os.OpenFile(SessionLogPath(dir, sessionID), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open session log: %w", err)
	}

	fileCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig()),
		zapcore.AddSync(f),
		zap.NewAtomicLevelAt(level),
	)

	logger := base.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapcore.NewTee(c, fileCore)
	})).With(zap.String("session_id", sessionID))

	closeFn := func() error {
		_ = logger.Sync()
		return f.Close()
	}
	return logger, closeFn, nil
}

// SessionLogPath returns the log file path for a session.
func SessionLogPath(dir, sessionID string) string {
	return filepath.Join(dir, fmt.Sprintf("session_%s.log", filepath.Base(sessionID)))
}

// ReadSessionLog returns the lines of a session's log file.
func ReadSessionLog(dir, sessionID string) ([]string, error) {
	f, err := os.Open(SessionLogPath(dir, sessionID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoLog
		}
		return nil, fmt.Errorf("open session log: %w", err)
	}
	defer f.Close()

	lines := []string{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read session log: %w", err)
	}
	return lines, nil
}

func parseLevel(levelStr string) (zapcore.Level, error) {
	if levelStr == "" {
		levelStr = "info"
	}
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(levelStr)); err != nil {
		return level, fmt.Errorf("invalid log level %q: %w", levelStr, err)
	}
	return level, nil
}

func encoderConfig() zapcore.EncoderConfig {
	ec := zap.NewProductionEncoderConfig()
	ec.TimeKey = "timestamp"
	ec.EncodeTime = zapcore.ISO8601TimeEncoder
	return ec
}
