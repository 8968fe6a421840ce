package logger

import (
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	base     zerolog.Logger
	baseOnce sync.Once
)

// initLogger initializes the global zerolog logger writing to stderr.
func initLogger() {
	baseOnce.Do(func() {
		zerolog.TimeFieldFormat = time.RFC3339Nano
		base = zerolog.New(os.Stderr).With().Timestamp().Logger().Level(zerolog.InfoLevel)
	})
}

// SetLevel adjusts the minimum level. Accepted values: "debug", "info",
// "error". Unknown values leave the level at info.
func SetLevel(level string) {
	initLogger()
	switch strings.ToLower(level) {
	case "debug":
		base = base.Level(zerolog.DebugLevel)
	case "info":
		base = base.Level(zerolog.InfoLevel)
	case "error":
		base = base.Level(zerolog.ErrorLevel)
	}
}

func Debug(msg string, kv ...any) {
	initLogger()
	withFields(base.Debug(), kv).Msg(msg)
}

func Info(msg string, kv ...any) {
	initLogger()
	withFields(base.Info(), kv).Msg(msg)
}

func Error(msg string, err error, kv ...any) {
	initLogger()
	withFields(base.Error().Err(err), kv).Msg(msg)
}

// withFields appends key-value pairs to the event. Keys must be strings;
// a trailing odd value is ignored.
func withFields(ev *zerolog.Event, kv []any) *zerolog.Event {
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		ev = ev.Interface(key, kv[i+1])
	}
	return ev
}
