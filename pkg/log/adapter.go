package log

import (
	"strings"

	"github.com/sirupsen/logrus"
)

// BadgerAdapter routes badger's internal logging through logrus so the
// datastore shares the application's log format and level.
type BadgerAdapter struct {
	Entry *logrus.Entry
}

// NewBadgerAdapter returns an adapter tagged with a component field.
func NewBadgerAdapter(logger *logrus.Logger) *BadgerAdapter {
	return &BadgerAdapter{Entry: logger.WithField("component", "badger")}
}

func (a *BadgerAdapter) Errorf(format string, args ...interface{}) {
	a.Entry.Errorf(strings.TrimSpace(format), args...)
}

func (a *BadgerAdapter) Warningf(format string, args ...interface{}) {
	a.Entry.Warnf(strings.TrimSpace(format), args...)
}

func (a *BadgerAdapter) Infof(format string, args ...interface{}) {
	// Badger is chatty at info level; keep it at debug.
	a.Entry.Debugf(strings.TrimSpace(format), args...)
}

func (a *BadgerAdapter) Debugf(format string, args ...interface{}) {
	a.Entry.Debugf(strings.TrimSpace(format), args...)
}
