package logger

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// switchWriter lets Initialize redirect loggers that were built before it ran.
type switchWriter struct {
	mu  sync.RWMutex
	out io.Writer
}

func (w *switchWriter) Write(p []byte) (int, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.out.Write(p)
}

func (w *switchWriter) set(out io.Writer) {
	w.mu.Lock()
	w.out = out
	w.mu.Unlock()
}

var (
	sink = &switchWriter{out: os.Stderr}

	// Global logger instance. Every logger derived from it, including package-level component
	// loggers created before Initialize, writes through sink. Until Initialize runs that is JSON on stderr.
	Logger = zerolog.New(sink).With().Timestamp().Logger()
)

// Initialize sets up the global logger with appropriate configuration.
// Extra writers (e.g. a log file from FileWriter) receive the same events as the console.
func Initialize(logLevel string, extra ...io.Writer) {
	zerolog.TimeFieldFormat = time.RFC3339

	consoleWriter := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    false,
	}

	var output io.Writer = consoleWriter
	if len(extra) > 0 {
		output = zerolog.MultiLevelWriter(append([]io.Writer{consoleWriter}, extra...)...)
	}

	sink.set(output)
	Logger = zerolog.New(sink).
		With().
		Timestamp().
		Caller().
		Logger()

	zerolog.SetGlobalLevel(ParseLevel(logLevel))

	// Replace standard log with zerolog
	log.Logger = Logger
}

// ParseLevel maps the LOG_LEVEL setting to a zerolog level, defaulting to info.
func ParseLevel(logLevel string) zerolog.Level {
	switch logLevel {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// Get returns the global logger instance
func Get() *zerolog.Logger {
	return &Logger
}

// GetForComponent returns a logger with a component field for better filtering
func GetForComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}

// FileWriter returns a writer to a log file for optional use alongside console logging
func FileWriter(path string) (io.Writer, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, err
	}
	return file, nil
}
