package logger

import (
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	log  *logrus.Logger
	once sync.Once
)

// Init initializes the shared logger once. LOG_LEVEL selects the level,
// LOG_FORMAT=text switches from JSON to the text formatter.
func Init() {
	once.Do(func() {
		l := logrus.New()
		l.SetOutput(os.Stdout)

		if os.Getenv("LOG_FORMAT") == "text" {
			l.SetFormatter(&logrus.TextFormatter{
				FullTimestamp:   true,
				TimestampFormat: "2006-01-02 15:04:05",
			})
		} else {
			l.SetFormatter(&logrus.JSONFormatter{
				TimestampFormat: "2006-01-02 15:04:05",
			})
		}

		level, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
		if err != nil {
			level = logrus.InfoLevel
		}
		l.SetLevel(level)

		log = l
	})
}

// Get returns the shared logger, initializing it on first use.
func Get() *logrus.Logger {
	if log == nil {
		Init()
	}
	return log
}

// Discard silences output; used by tests that exercise noisy paths.
func Discard() {
	Get().SetOutput(io.Discard)
}

// With returns an entry carrying a single field.
func With(key string, value interface{}) *logrus.Entry {
	return Get().WithField(key, value)
}
