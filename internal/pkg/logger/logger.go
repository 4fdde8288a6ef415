package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/doeshing/retrace/internal/ports"
)

// LogrusLogger adapts a logrus logger to ports.Logger.
type LogrusLogger struct {
	log *logrus.Logger
}

// New builds a text logger writing to out. An unknown level falls back to
// info; verbose forces debug.
func New(level string, verbose bool, out io.Writer) *LogrusLogger {
	if out == nil {
		out = os.Stderr
	}
	log := logrus.New()
	log.SetOutput(out)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	if verbose {
		parsed = logrus.DebugLevel
	}
	log.SetLevel(parsed)
	return &LogrusLogger{log: log}
}

func (l *LogrusLogger) Debug(msg string, fields map[string]interface{}) {
	l.log.WithFields(logrus.Fields(fields)).Debug(msg)
}

func (l *LogrusLogger) Info(msg string, fields map[string]interface{}) {
	l.log.WithFields(logrus.Fields(fields)).Info(msg)
}

func (l *LogrusLogger) Warn(msg string, fields map[string]interface{}) {
	l.log.WithFields(logrus.Fields(fields)).Warn(msg)
}

func (l *LogrusLogger) Error(msg string, err error, fields map[string]interface{}) {
	l.log.WithFields(logrus.Fields(fields)).WithError(err).Error(msg)
}

// Nop discards everything. Useful in tests.
type Nop struct{}

func (Nop) Debug(string, map[string]interface{})        {}
func (Nop) Info(string, map[string]interface{})         {}
func (Nop) Warn(string, map[string]interface{})         {}
func (Nop) Error(string, error, map[string]interface{}) {}

var (
	_ ports.Logger = (*LogrusLogger)(nil)
	_ ports.Logger = Nop{}
)
