package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
)

var (
	// Log is the process-wide logger; the zerolog/log package logger mirrors it
	Log zerolog.Logger
)

func init() {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	zerolog.TimeFieldFormat = time.RFC3339Nano
	Setup("info", "debug")
}

// Setup configures level and output. Release mode writes JSON lines, any other
// mode writes colored console output.
func Setup(level, mode string) {
	var out io.Writer = zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: "2006-01-02 15:04:05",
	}
	if mode == "release" {
		out = os.Stdout
	}

	Log = zerolog.New(out).
		With().
		Timestamp().
		Caller().
		Logger()
	SetLevel(level)
}

// SetLevel sets the log level, falling back to info on an unknown name
func SetLevel(levelStr string) {
	level, err := zerolog.ParseLevel(levelStr)
	if err != nil || levelStr == "" {
		Log.Warn().Str("level", levelStr).Msg("invalid log level, defaulting to info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	Log = Log.Level(level)
	log.Logger = Log
}
