package com

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrOpen         = errors.New("cannot open serial port")
	ErrRead         = errors.New("cannot read from serial port")
	ErrWrite        = errors.New("cannot write to serial port")
	ErrNotConnected = errors.New("not connected")
)

// StateKind enumerates the states of a serial connection.
type StateKind byte

// All connection states.
const (
	Disconnected StateKind = iota
	Scanning
	Connected
	Faulted
)

var stateKindNames = map[StateKind]string{
	Disconnected: "disconnected",
	Scanning:     "scanning",
	Connected:    "connected",
	Faulted:      "faulted",
}

func (k StateKind) String() string {
	name, ok := stateKindNames[k]
	if !ok {
		return "unknown"
	}
	return name
}

// ConnectionState is a snapshot of the serial connection.
type ConnectionState struct {
	Kind   StateKind
	Port   string
	Reason string
	// Epoch is incremented on every transition into Connected.
	Epoch uint64
	// SessionID identifies the current or most recent connection.
	SessionID string
	// Faults counts the transitions into Faulted. It survives the following transitions, so a fault
	// stays visible after the connection recovered.
	Faults uint64
	// LastFault is the status text of the most recent fault.
	LastFault string
}

// String returns the status text for the connection state.
func (s ConnectionState) String() string {
	switch s.Kind {
	case Disconnected:
		return "Disconnected"
	case Scanning:
		return "No serial ports detected, scanning"
	case Connected:
		return fmt.Sprintf("Connected to %s", s.Port)
	case Faulted:
		return fmt.Sprintf("Error on %s: %s", s.Port, s.Reason)
	default:
		return "Unknown connection state"
	}
}

// Opener opens the serial port with the given name and baud rate.
type Opener func(portName string, baudRate int) (io.ReadWriteCloser, error)

// StateCallback is called after every state transition.
type StateCallback func(ConnectionState)

// Manager owns the handle of the serial connection. All methods except State must be called from
// the same goroutine, the I/O worker.
type Manager struct {
	open          Opener
	logger        *zap.SugaredLogger
	stateCallback StateCallback

	device io.ReadWriteCloser

	stateLock sync.RWMutex
	state     ConnectionState
}

func NewManager(open Opener, logger *zap.SugaredLogger) *Manager {
	return &Manager{
		open:   open,
		logger: logger.Named("conn"),
		state:  ConnectionState{Kind: Disconnected},
	}
}

func (m *Manager) WithStateCallback(callback StateCallback) *Manager {
	m.stateCallback = callback
	return m
}

// State returns a snapshot of the current connection state. It is safe to call from any goroutine.
func (m *Manager) State() ConnectionState {
	m.stateLock.RLock()
	defer m.stateLock.RUnlock()
	return m.state
}

func (m *Manager) transition(update func(*ConnectionState)) {
	m.stateLock.Lock()
	previous := m.state
	update(&m.state)
	current := m.state
	m.stateLock.Unlock()

	if previous == current {
		return
	}
	m.logger.Debugw("Connection state changed", "from", previous.Kind, "to", current.Kind, "port", current.Port, "session", current.SessionID)
	if m.stateCallback != nil {
		m.stateCallback(current)
	}
}

// Open opens the given port. On failure the state is left unchanged.
func (m *Manager) Open(portName string, baudRate int) error {
	if m.device != nil {
		m.Close()
	}

	device, err := m.open(portName, baudRate)
	if err != nil {
		m.logger.Warnw("Failed to open serial connection", "port", portName, "baudRate", baudRate, "error", err)
		return fmt.Errorf("%w %s: %v", ErrOpen, portName, err)
	}
	m.device = device

	sessionID := uuid.NewString()
	m.transition(func(s *ConnectionState) {
		s.Kind = Connected
		s.Port = portName
		s.Reason = ""
		s.Epoch++
		s.SessionID = sessionID
	})
	m.logger.Infow("Connected", "port", portName, "baudRate", baudRate, "session", sessionID)
	return nil
}

// Close releases the handle. It is safe to call Close on a closed connection.
func (m *Manager) Close() error {
	err := m.closeDevice()
	m.transition(func(s *ConnectionState) {
		if s.Kind == Connected {
			s.Kind = Disconnected
		}
	})
	return err
}

// Reopen closes the connection and opens the given port. On failure the state becomes Faulted.
func (m *Manager) Reopen(portName string, baudRate int) error {
	m.Close()
	err := m.Open(portName, baudRate)
	if err != nil {
		m.fault(portName, err)
	}
	return err
}

// Fault closes the connection and marks it as faulted with the given reason.
func (m *Manager) Fault(reason error) {
	m.fault(m.State().Port, reason)
}

func (m *Manager) fault(portName string, reason error) {
	m.closeDevice()
	m.transition(func(s *ConnectionState) {
		s.Kind = Faulted
		s.Port = portName
		s.Reason = reason.Error()
		s.Faults++
		s.LastFault = s.String()
	})
}

// SetScanning marks the connection as looking for a port. An open handle is closed.
func (m *Manager) SetScanning() {
	m.closeDevice()
	m.transition(func(s *ConnectionState) {
		s.Kind = Scanning
		s.Reason = ""
	})
}

func (m *Manager) closeDevice() error {
	if m.device == nil {
		return nil
	}
	err := m.device.Close()
	if err != nil {
		m.logger.Warnw("Failed to close serial connection", "error", err)
	} else {
		m.logger.Debug("Serial connection closed")
	}
	m.device = nil
	return err
}

func (m *Manager) Read(p []byte) (int, error) {
	if m.device == nil {
		return 0, ErrNotConnected
	}
	return m.device.Read(p)
}

func (m *Manager) Write(p []byte) (int, error) {
	if m.device == nil {
		return 0, ErrNotConnected
	}
	return m.device.Write(p)
}
