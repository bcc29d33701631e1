package logging

import (
	"io"

	"github.com/sirupsen/logrus"
)

// NullLogger discards everything logged to it. It is the default logger of
// the projection routines, which only log when given something chattier.
var NullLogger logrus.FieldLogger = &logrus.Logger{
	Out:       io.Discard,
	Formatter: new(logrus.TextFormatter),
	Hooks:     make(logrus.LevelHooks),
	Level:     logrus.PanicLevel,
}

// Ensure returns logger if non-nil and NullLogger otherwise.
func Ensure(logger logrus.FieldLogger) logrus.FieldLogger {
	if logger == nil {
		return NullLogger
	}
	return logger
}
