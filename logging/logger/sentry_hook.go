package logger

import (
	"fmt"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
)

// SentryHook forwards error level entries to the initialised sentry hub.
type SentryHook struct{}

// NewSentryHook creates a sentry hook. sentry.Init must be called first.
func NewSentryHook() *SentryHook {
	return &SentryHook{}
}

// Levels returns the levels forwarded to sentry
func (h *SentryHook) Levels() []logrus.Level {
	return []logrus.Level{logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel}
}

// Fire sends the entry to sentry
func (h *SentryHook) Fire(entry *logrus.Entry) error {
	event := sentry.NewEvent()
	event.Level = sentry.LevelError
	if entry.Level < logrus.ErrorLevel {
		event.Level = sentry.LevelFatal
	}
	event.Message = entry.Message
	for k, v := range entry.Data {
		if err, ok := v.(error); ok {
			event.Extra[k] = err.Error()
			continue
		}
		event.Extra[k] = fmt.Sprint(v)
	}
	sentry.CaptureEvent(event)
	return nil
}
