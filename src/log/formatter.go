package log

import (
	"bytes"
	"fmt"
	"github.com/sirupsen/logrus"
	"sort"
	"strconv"
	"time"
)

const (
	defaultPrefix = "main"
	prefixKey     = "prefix"
	messageIDKey  = "message-id"
)

// Formatter is used by logrus to turn entries into terse single line logs.
// Fields are sorted, with the message id first.
type Formatter struct{}

// Format displays a logrus.Entry.
func (f *Formatter) Format(entry *logrus.Entry) ([]byte, error) {
	buffer := new(bytes.Buffer)
	prefix, ok := entry.Data[prefixKey].(string)
	if !ok {
		prefix = defaultPrefix
	}
	msg := fmt.Sprint(
		levelString(entry.Level),
		" ",
		entry.Time.UTC().Format(time.RFC3339),
		" [", escapeIfNeeded(prefix), "] ",
		entry.Message,
	)
	_, err := buffer.WriteString(msg)
	if err != nil {
		return []byte{}, err
	}

	for _, k := range fieldKeys(entry.Data) {
		key := escapeIfNeeded(k)
		val := escapeIfNeeded(fmt.Sprint(entry.Data[k]))
		_, err = buffer.WriteString(fmt.Sprint(" ", key, "=", val))
		if err != nil {
			return []byte{}, err
		}
	}

	_, err = buffer.WriteString("\n")
	if err != nil {
		return []byte{}, err
	}

	return buffer.Bytes(), nil
}

func fieldKeys(data logrus.Fields) []string {
	keys := make([]string, 0, len(data))
	for k := range data {
		if k == prefixKey || k == messageIDKey {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if _, ok := data[messageIDKey]; ok {
		keys = append([]string{messageIDKey}, keys...)
	}
	return keys
}

func levelString(level logrus.Level) string {
	switch level {
	case logrus.TraceLevel:
		return "T"
	case logrus.DebugLevel:
		return "D"
	case logrus.InfoLevel:
		return "I"
	case logrus.WarnLevel:
		return "W"
	case logrus.ErrorLevel:
		return "E"
	case logrus.FatalLevel:
		return "F"
	case logrus.PanicLevel:
		return "P"
	}

	return "U"
}

func escapeIfNeeded(str string) string {
	for _, char := range str {
		if escapeNeeded(char) {
			return strconv.Quote(str)
		}
	}
	return str
}

func escapeNeeded(char rune) bool {
	return !(((char >= '!') && (char <= '^')) || ((char >= '_') && (char <= '~')))
}
