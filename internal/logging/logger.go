// Package logging owns the process-wide logrus logger.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger is shared by every package.  Components take a *logrus.Entry so
// tests can hand them a discarded logger instead.
var Logger = logrus.New()

type appNameHook struct {
	appName string
}

func (h *appNameHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h *appNameHook) Fire(entry *logrus.Entry) error {
	entry.Data["app"] = h.appName
	return nil
}

// Init configures Logger for the named application.  An unknown level falls
// back to info.
func Init(appName, level string) {
	Logger.SetOutput(os.Stdout)
	lvl, err := logrus.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		Logger.Warnf("invalid LOG_LEVEL %q, defaulting to info", level)
		lvl = logrus.InfoLevel
	}
	Logger.SetLevel(lvl)
	Logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	Logger.AddHook(&appNameHook{appName: appName})
}

// Discard returns an entry that writes nowhere, for tests.
func Discard() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}
