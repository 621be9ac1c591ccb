package observability

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// InitLogger returns a console logger tagged with app for request logging.
func InitLogger(app string) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	return zerolog.New(output).With().Timestamp().Str("app", app).Logger()
}
