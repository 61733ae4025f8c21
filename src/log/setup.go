package log

import (
	"fmt"
	"github.com/sirupsen/logrus"
	"time"
)

// Output formats accepted by Configure.
const (
	FormatJSON = "json"
	FormatText = "text"
)

// Configure sets the level and formatter of the standard logrus logger.
func Configure(logger *logrus.Logger, level, format string) error {
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	logger.SetLevel(parsed)

	switch format {
	case FormatJSON:
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyMsg: "message",
			},
		})
	case FormatText:
		logger.SetFormatter(&Formatter{})
	default:
		return fmt.Errorf("Unknown log format: %s", format)
	}
	return nil
}
