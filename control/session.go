package control

import (
	"time"

	"github.com/ftl/tc1000/com"
	"github.com/ftl/tc1000/tc"
)

// DefaultTargetC is the target temperature assumed until the controller reports its own.
const DefaultTargetC = 30

// Session is the consumer side state. It must only be modified on the consumer's goroutine.
type Session struct {
	DisplayUnit  tc.Unit
	CurrentC     float64
	HasCurrent   bool
	TargetC      float64
	Ports        []string
	SelectedPort string
	Connection   com.ConnectionState
	// Status is the text shown for the connection. After a fault it shows the fault for one tick,
	// even if the connection already recovered.
	Status       string
	Faults       uint64
	LastFault    string
	DecodeFaults int
	History      *History
}

func NewSession(targetC float64, historySize int) *Session {
	return &Session{
		DisplayUnit: tc.Celsius,
		TargetC:     targetC,
		Status:      com.ConnectionState{}.String(),
		History:     NewHistory(historySize),
	}
}

// Snapshot is an immutable copy of the session, published after every tick.
type Snapshot struct {
	DisplayUnit  tc.Unit             `json:"unit"`
	CurrentC     float64             `json:"current_c"`
	Current      float64             `json:"current"`
	HasCurrent   bool                `json:"has_current"`
	TargetC      float64             `json:"target_c"`
	Target       float64             `json:"target"`
	Ports        []string            `json:"ports"`
	SelectedPort string              `json:"selected_port"`
	Status       string              `json:"status"`
	State        string              `json:"state"`
	SessionID    string              `json:"session_id,omitempty"`
	Faults       uint64              `json:"faults"`
	LastFault    string              `json:"last_fault,omitempty"`
	DecodeFaults int                 `json:"decode_faults"`
	Readings     []tc.Reading        `json:"-"`
	History      []Sample            `json:"history,omitempty"`
	UpdatedAt    time.Time           `json:"updated_at"`
	Connection   com.ConnectionState `json:"-"`
}

func (s *Session) snapshot(now time.Time, readings []tc.Reading) Snapshot {
	ports := make([]string, len(s.Ports))
	copy(ports, s.Ports)
	return Snapshot{
		DisplayUnit:  s.DisplayUnit,
		CurrentC:     s.CurrentC,
		Current:      s.DisplayUnit.FromCelsius(s.CurrentC),
		HasCurrent:   s.HasCurrent,
		TargetC:      s.TargetC,
		Target:       s.DisplayUnit.FromCelsius(s.TargetC),
		Ports:        ports,
		SelectedPort: s.SelectedPort,
		Status:       s.Status,
		State:        s.Connection.Kind.String(),
		SessionID:    s.Connection.SessionID,
		Faults:       s.Faults,
		LastFault:    s.LastFault,
		DecodeFaults: s.DecodeFaults,
		Readings:     readings,
		History:      s.History.Samples(),
		UpdatedAt:    now,
		Connection:   s.Connection,
	}
}

// Sample is one point of the temperature history.
type Sample struct {
	Offset   time.Duration `json:"offset"`
	CurrentC float64       `json:"current_c"`
	TargetC  float64       `json:"target_c"`
}

// History keeps the most recent samples in memory. The offsets are relative to the first
// sample after the last reset.
type History struct {
	size    int
	start   time.Time
	samples []Sample
}

func NewHistory(size int) *History {
	return &History{size: size}
}

func (h *History) Add(now time.Time, currentC, targetC float64) {
	if h.size <= 0 {
		return
	}
	if len(h.samples) == 0 {
		h.start = now
	}
	if len(h.samples) == h.size {
		copy(h.samples, h.samples[1:])
		h.samples = h.samples[:h.size-1]
	}
	h.samples = append(h.samples, Sample{
		Offset:   now.Sub(h.start),
		CurrentC: currentC,
		TargetC:  targetC,
	})
}

func (h *History) Reset() {
	h.samples = nil
}

func (h *History) Len() int {
	return len(h.samples)
}

func (h *History) Samples() []Sample {
	if len(h.samples) == 0 {
		return nil
	}
	result := make([]Sample, len(h.samples))
	copy(result, h.samples)
	return result
}
