package app

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"cosmossdk.io/log"
	"github.com/rs/zerolog"
)

// NewLogger builds the process logger. A plain level such as "info" sets the
// global level; a module list such as "pqc:debug,*:error" installs a filter.
func NewLogger(w io.Writer, cfg LogConfig) (log.Logger, error) {
	levelStr := cfg.Level
	if pqcDebugEnabled() {
		levelStr = withPQCDebug(levelStr)
	}

	opts, err := parseLogLevel(levelStr)
	if err != nil {
		return nil, ErrInvalidConfig.Wrap(err.Error())
	}

	switch cfg.Format {
	case LogFormatJSON:
		opts = append(opts, log.OutputJSONOption())
	case LogFormatPlain, "":
		opts = append(opts, log.ColorOption(false))
	default:
		return nil, ErrInvalidConfig.Wrapf("unknown log format %q", cfg.Format)
	}

	return log.NewLogger(w, opts...), nil
}

func parseLogLevel(levelStr string) ([]log.Option, error) {
	levelStr = strings.TrimSpace(levelStr)
	if levelStr == "" {
		return nil, errors.New("log level is required")
	}
	if !strings.Contains(levelStr, ":") {
		lvl, err := zerolog.ParseLevel(levelStr)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", levelStr, err)
		}
		return []log.Option{log.LevelOption(lvl)}, nil
	}

	filter, err := log.ParseLogLevel(levelStr)
	if err != nil {
		return nil, err
	}
	return []log.Option{log.FilterOption(filter)}, nil
}
