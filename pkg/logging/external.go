package logging

import (
	"github.com/sirupsen/logrus"

	"github.com/pcswitcher/pcswitcher/pkg/eventbus"
)

// ConfigureExternal sets the threshold for log output produced by
// third-party libraries (the SSH transport, etc.) rather than by
// pc-switcher's own job/orchestrator code. These libraries log through
// logrus directly instead of the EventBus, matching the teacher's
// sirupsen/logrus usage throughout pkg/orchestration.
func ConfigureExternal(level eventbus.Level) {
	logrus.SetLevel(toLogrusLevel(level))
}

func toLogrusLevel(level eventbus.Level) logrus.Level {
	switch level {
	case eventbus.Debug:
		return logrus.DebugLevel
	case eventbus.Full:
		return logrus.DebugLevel
	case eventbus.Info:
		return logrus.InfoLevel
	case eventbus.Warning:
		return logrus.WarnLevel
	case eventbus.Error:
		return logrus.ErrorLevel
	case eventbus.Critical:
		return logrus.FatalLevel
	default:
		return logrus.InfoLevel
	}
}
