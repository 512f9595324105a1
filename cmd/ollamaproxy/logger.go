package main

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"ollamaproxy/internal/config"
)

// newLogger builds the process logger. With log_file set, output goes to a
// rotating file instead of w. The returned closer, non-nil only in that case,
// releases the file.
func newLogger(cfg config.Config, w io.Writer) (zerolog.Logger, io.Closer, error) {
	level, err := parseZerologLevel(cfg.LogLevel)
	if err != nil {
		return zerolog.Nop(), nil, err
	}
	var closer io.Closer
	out := w
	toFile := cfg.LogFile != ""
	if toFile {
		lj := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    50, // MB
			MaxBackups: 3,
			MaxAge:     28, // days
		}
		out, closer = lj, lj
	}
	if cfg.LogFormat != "json" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339, NoColor: toFile || w != os.Stderr}
	}
	l := zerolog.New(out).Level(level).With().Timestamp().Str("svc", "ollamaproxy").Logger()
	return l, closer, nil
}

func parseZerologLevel(s string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return zerolog.InfoLevel, nil
	case "off":
		return zerolog.Disabled, nil
	}
	return zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
}
