package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Output formats accepted by Setup.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// Options selects the process wide log output.
type Options struct {
	Level string
	// Format is json or console. Empty follows APP_ENV.
	Format string
	// File, when set, receives the log instead of stdout and is rotated
	// once it grows past MaxSizeMB.
	File       string
	MaxSizeMB  int
	MaxBackups int
}

var (
	outMu  sync.RWMutex
	output io.Writer
)

// Setup applies o to every logger created afterwards. The returned closer
// releases the log file, if any.
func Setup(o Options) (io.Closer, error) {
	if err := SetLevel(o.Level); err != nil {
		return nil, err
	}
	var (
		w      io.Writer = os.Stdout
		closer io.Closer = nopCloser{}
	)
	if o.File != "" {
		lj := &lumberjack.Logger{
			Filename:   o.File,
			MaxSize:    o.MaxSizeMB,
			MaxBackups: o.MaxBackups,
		}
		w, closer = lj, lj
	}
	switch strings.ToLower(o.Format) {
	case "":
		if strings.ToLower(os.Getenv("APP_ENV")) == "dev" && o.File == "" {
			w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
		}
	case FormatJSON:
	case FormatConsole:
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: o.File != ""}
	default:
		_ = closer.Close()
		return nil, fmt.Errorf("unknown log format %q", o.Format)
	}
	outMu.Lock()
	output = w
	outMu.Unlock()
	return closer, nil
}

// defaultOutput returns the writer installed by Setup, or nil.
func defaultOutput() io.Writer {
	outMu.RLock()
	defer outMu.RUnlock()
	return output
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
