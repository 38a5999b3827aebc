package control

import (
	"math"

	"github.com/ftl/tc1000/queue"
	"github.com/ftl/tc1000/tc"
)

// Limits of the target temperature in °C.
const (
	DefaultMinTargetC = 0
	DefaultMaxTargetC = 1000
)

// equalityTolerance absorbs the rounding errors of the Celsius/Fahrenheit conversion
const equalityTolerance = 1e-6

// Controller turns the user's setpoint and unit intents into commands for the temperature controller.
// TargetC is only ever changed by one unit step per intent.
type Controller struct {
	session  *Session
	outbound *queue.Stack[tc.Command]
	minC     float64
	maxC     float64
}

func NewController(session *Session, outbound *queue.Stack[tc.Command]) *Controller {
	return &Controller{
		session:  session,
		outbound: outbound,
		minC:     DefaultMinTargetC,
		maxC:     DefaultMaxTargetC,
	}
}

// WithLimits restricts the target temperature to the given range in °C.
func (c *Controller) WithLimits(minC, maxC float64) *Controller {
	c.minC = minC
	c.maxC = maxC
	return c
}

// Setpoint moves the target one step towards the requested value, which is expressed in the given
// unit. One step is one degree of that unit. The resulting target is always sent, even if it did not
// change.
func (c *Controller) Setpoint(value float64, unit tc.Unit) tc.Command {
	current := unit.FromCelsius(c.session.TargetC)
	step := unit.Step()

	var next float64
	switch {
	case value > current+equalityTolerance:
		next = c.session.TargetC + step
	case value < current-equalityTolerance:
		next = c.session.TargetC - step
	default:
		next = c.session.TargetC
	}
	if next >= c.minC-equalityTolerance && next <= c.maxC+equalityTolerance {
		c.session.TargetC = next
	}

	result := tc.SetTargetC(c.session.TargetC)
	c.outbound.Push(result)
	return result
}

// ToggleUnit switches the display unit. The target is truncated to whole °C.
func (c *Controller) ToggleUnit(unit tc.Unit) tc.Command {
	c.session.DisplayUnit = unit
	c.session.TargetC = math.Floor(c.session.TargetC)

	result := tc.SetUnit(unit)
	c.outbound.Push(result)
	return result
}
