package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"freshservice/ticketer/internal/config"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Setup points the package-level logrus logger at the configured file so the
// interactive screen stays clean. The file rotates once it reaches
// MaxSizeMB, keeping MaxBackups old copies. The returned closer releases it.
func Setup(cfg config.LogConfig) (io.Closer, error) {
	level, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	log.SetLevel(level)
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		DisableColors:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	if cfg.File == "" {
		log.SetOutput(os.Stderr)
		return io.NopCloser(nil), nil
	}

	writer := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
	}
	// lumberjack opens lazily; fail now rather than on the first log line.
	if _, err := writer.Write(nil); err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", cfg.File, err)
	}
	log.SetOutput(writer)

	return writer, nil
}
