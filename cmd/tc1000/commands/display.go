package commands

import (
	"go.uber.org/zap"

	"github.com/ftl/tc1000/control"
	"github.com/ftl/tc1000/tc"
)

// logDisplay logs the readings and the target whenever they change.
type logDisplay struct {
	logger *zap.SugaredLogger

	shown   bool
	current float64
	target  float64
	unit    tc.Unit
}

func newLogDisplay(logger *zap.SugaredLogger) *logDisplay {
	return &logDisplay{logger: logger.Named("display")}
}

func (d *logDisplay) Show(snapshot control.Snapshot) {
	if !snapshot.HasCurrent {
		return
	}
	if d.shown && d.current == snapshot.Current && d.target == snapshot.Target && d.unit == snapshot.DisplayUnit {
		return
	}
	d.shown = true
	d.current = snapshot.Current
	d.target = snapshot.Target
	d.unit = snapshot.DisplayUnit

	d.logger.Infof("%.1f°%s (target %.1f°%s)", d.current, d.unit, d.target, d.unit)
}
