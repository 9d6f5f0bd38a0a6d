package app

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/corralhq/corral/pkg/logging"
)

// NewLogger creates a configured logger from the application configuration.
// Level precedence: explicit LOG_LEVEL, then --verbose, then --quiet, then
// info.
func NewLogger(config *Config) zerolog.Logger {
	level := determineLogLevel(config)
	zerolog.SetGlobalLevel(level)

	var logger zerolog.Logger
	switch config.LogFormat {
	case "json":
		logger = logging.NewJSON(os.Stderr)
	case "console":
		logger = logging.NewConsole()
	default:
		logger = *logging.Default()
	}

	logger = logger.Level(level)
	logging.SetDefault(logger)
	return logger
}

func determineLogLevel(config *Config) zerolog.Level {
	if config.LogLevel != "" {
		level, err := zerolog.ParseLevel(config.LogLevel)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: invalid log level %q, using \"info\"\n", config.LogLevel)
			return zerolog.InfoLevel
		}
		return level
	}

	if config.Verbose && config.Quiet {
		fmt.Fprintln(os.Stderr, "Warning: both --verbose and --quiet specified, using --quiet")
		return zerolog.WarnLevel
	}
	if config.Verbose {
		return zerolog.DebugLevel
	}
	if config.Quiet {
		return zerolog.WarnLevel
	}
	return zerolog.InfoLevel
}
