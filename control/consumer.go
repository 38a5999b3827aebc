package control

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/ftl/tc1000/com"
	"github.com/ftl/tc1000/proto"
	"github.com/ftl/tc1000/queue"
	"github.com/ftl/tc1000/tc"
)

const (
	DefaultTick        = 50 * time.Millisecond
	DefaultHistorySize = 3600
	intentQueueSize    = 64
)

var ErrIntentQueueFull = errors.New("too many pending requests")

// Link is the consumer's view of the I/O worker.
type Link interface {
	Running() bool
	State() com.ConnectionState
	Ports() []string
	RequestPort(port string, baudRate int)
}

// Display shows the state of the session. Show is called on the consumer's goroutine after every
// tick and must not block.
type Display interface {
	Show(Snapshot)
}

// DisplayFunc adapts a function to the Display interface.
type DisplayFunc func(Snapshot)

func (f DisplayFunc) Show(snapshot Snapshot) {
	f(snapshot)
}

// IntentKind tags the variant of an Intent.
type IntentKind byte

// All intent kinds.
const (
	SetpointIntent IntentKind = iota
	UnitIntent
	PortIntent
	ResetHistoryIntent
)

// Intent is a user request from the presentation layer.
type Intent struct {
	Kind     IntentKind
	Value    float64
	Unit     tc.Unit
	Port     string
	BaudRate int
}

// Consumer owns the Session. It drains the inbound queue, applies the user's intents, and
// publishes a Snapshot on every tick.
type Consumer struct {
	bridge     *queue.Bridge
	link       Link
	session    *Session
	controller *Controller
	logger     *zap.SugaredLogger
	displays   []Display

	intents  chan Intent
	snapshot atomic.Pointer[Snapshot]

	epoch       uint64
	faults      uint64
	syncPending bool
	lastStatus  string
}

func NewConsumer(bridge *queue.Bridge, link Link, session *Session, logger *zap.SugaredLogger) *Consumer {
	result := &Consumer{
		bridge:     bridge,
		link:       link,
		session:    session,
		controller: NewController(session, bridge.Outbound),
		logger:     logger.Named("consumer"),
		intents:    make(chan Intent, intentQueueSize),
	}
	initial := session.snapshot(time.Now(), nil)
	result.snapshot.Store(&initial)
	return result
}

// WithLimits restricts the target temperature to the given range in °C.
func (c *Consumer) WithLimits(minC, maxC float64) *Consumer {
	c.controller.WithLimits(minC, maxC)
	return c
}

// WithDisplay adds a display that is updated after every tick.
func (c *Consumer) WithDisplay(display Display) *Consumer {
	c.displays = append(c.displays, display)
	return c
}

// Snapshot returns the most recently published state of the session. It is safe to call from any
// goroutine.
func (c *Consumer) Snapshot() Snapshot {
	return *c.snapshot.Load()
}

// RequestSetpoint asks to move the target towards the given value, expressed in the given unit.
func (c *Consumer) RequestSetpoint(value float64, unit tc.Unit) error {
	if !tc.Finite(value) {
		return fmt.Errorf("invalid setpoint %v", value)
	}
	return c.enqueue(Intent{Kind: SetpointIntent, Value: value, Unit: unit})
}

// RequestUnitToggle asks to switch the display unit.
func (c *Consumer) RequestUnitToggle(unit tc.Unit) error {
	return c.enqueue(Intent{Kind: UnitIntent, Unit: unit})
}

// RequestPortChange asks to connect to the given port. A baud rate of zero keeps the current one.
func (c *Consumer) RequestPortChange(port string, baudRate int) error {
	if port == "" {
		return errors.New("no port given")
	}
	return c.enqueue(Intent{Kind: PortIntent, Port: port, BaudRate: baudRate})
}

// RequestHistoryReset asks to clear the temperature history.
func (c *Consumer) RequestHistoryReset() error {
	return c.enqueue(Intent{Kind: ResetHistoryIntent})
}

func (c *Consumer) enqueue(intent Intent) error {
	select {
	case c.intents <- intent:
		return nil
	default:
		return ErrIntentQueueFull
	}
}

// Run calls Tick periodically until the context is done or the I/O worker stopped running.
func (c *Consumer) Run(ctx context.Context, period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if !c.link.Running() {
				c.logger.Debug("Worker stopped, consumer stops too")
				return
			}
			c.Tick(now)
		}
	}
}

// Tick does one consumer cycle. It must not be called concurrently.
func (c *Consumer) Tick(now time.Time) {
	c.applyIntents()
	c.observeConnection()
	readings := c.drainInbound(now)
	c.session.Ports = c.link.Ports()

	snapshot := c.session.snapshot(now, readings)
	c.snapshot.Store(&snapshot)
	for _, display := range c.displays {
		display.Show(snapshot)
	}
}

func (c *Consumer) applyIntents() {
	for {
		select {
		case intent := <-c.intents:
			c.apply(intent)
		default:
			return
		}
	}
}

func (c *Consumer) apply(intent Intent) {
	switch intent.Kind {
	case SetpointIntent:
		cmd := c.controller.Setpoint(intent.Value, intent.Unit)
		c.logger.Debugw("Setpoint requested", "value", intent.Value, "unit", intent.Unit, "command", cmd)
	case UnitIntent:
		cmd := c.controller.ToggleUnit(intent.Unit)
		c.logger.Debugw("Unit change requested", "unit", intent.Unit, "command", cmd)
	case PortIntent:
		c.session.SelectedPort = intent.Port
		c.link.RequestPort(intent.Port, intent.BaudRate)
		c.logger.Infow("Port change requested", "port", intent.Port, "baudRate", intent.BaudRate)
	case ResetHistoryIntent:
		c.session.History.Reset()
	default:
		c.logger.Warnw("Unknown intent", "kind", intent.Kind)
	}
}

func (c *Consumer) observeConnection() {
	state := c.link.State()
	if state.Epoch != c.epoch {
		c.epoch = state.Epoch
		c.syncPending = true
	}
	if state.Kind == com.Connected {
		c.session.SelectedPort = state.Port
	}
	c.session.Connection = state

	status := state.String()
	if state.Faults != c.faults {
		c.faults = state.Faults
		c.session.Faults = state.Faults
		c.session.LastFault = state.LastFault
		status = state.LastFault
	}
	c.session.Status = status

	if status != c.lastStatus {
		c.lastStatus = status
		c.logger.Infow("Status", "status", status, "session", state.SessionID)
	}
}

// drainInbound applies all received lines in pop order, newest first.
func (c *Consumer) drainInbound(now time.Time) []tc.Reading {
	lines := c.bridge.Inbound.Drain()
	if len(lines) == 0 {
		return nil
	}

	result := make([]tc.Reading, 0, len(lines))
	for _, line := range lines {
		reading, err := proto.DecodeBytes(line, c.session.DisplayUnit)
		if err != nil {
			c.session.DecodeFaults++
			c.logger.Debugw("Dropping malformed line", "line", string(line), "error", err)
			continue
		}
		c.applyReading(now, reading)
		result = append(result, reading)
	}
	return result
}

func (c *Consumer) applyReading(now time.Time, reading tc.Reading) {
	c.session.CurrentC = reading.CurrentC
	c.session.HasCurrent = true
	c.session.DisplayUnit = reading.Unit

	if reading.HasTarget && c.syncPending {
		c.logger.Infow("Synchronized target with controller", "targetC", reading.TargetC, "previousTargetC", c.session.TargetC)
		c.session.TargetC = reading.TargetC
		c.syncPending = false
	}

	c.session.History.Add(now, c.session.CurrentC, c.session.TargetC)
}
