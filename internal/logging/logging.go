package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init initializes the global logger. When logFile is non-empty, warnings and
// errors are additionally written there as JSON lines.
func Init(verbose bool, logFile string) error {
	zerolog.TimeFieldFormat = time.RFC3339

	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	console := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "15:04:05",
		NoColor:    false,
	}

	if logFile == "" {
		log.Logger = zerolog.New(console).With().Timestamp().Logger()
		return nil
	}

	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}

	fileWriter := &zerolog.FilteredLevelWriter{
		Writer: zerolog.LevelWriterAdapter{Writer: f},
		Level:  zerolog.WarnLevel,
	}

	multi := zerolog.MultiLevelWriter(console, fileWriter)
	log.Logger = zerolog.New(multi).With().Timestamp().Logger()
	return nil
}
