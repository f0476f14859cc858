package ballroom

import (
	"github.com/mattn/go-colorable"
	"github.com/sirupsen/logrus"
)

var log = logrus.NewEntry(logrus.StandardLogger())

// ConfigureLogging sets the level of the shared logger. Colour output goes
// through go-colorable so escape codes also render on Windows consoles.
func ConfigureLogging(level string, color bool) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	logrus.SetLevel(lvl)
	if color {
		logrus.SetFormatter(&logrus.TextFormatter{ForceColors: true, FullTimestamp: true})
		logrus.SetOutput(colorable.NewColorableStdout())
	}
	return nil
}
