package serial

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jacobsa/go-serial/serial"
	bugst "go.bug.st/serial"
	"go.uber.org/zap"
)

var (
	ErrUnsupportedPlatform = errors.New("serial port enumeration is not supported on this platform")
	ErrNoDeviceFound       = errors.New("no matching serial device found")
)

// DefaultBaudRate of the TC-1000.
const DefaultBaudRate = 9600

// maxReadTimeout is the longest inter character timeout the termios VTIME field can express.
const maxReadTimeout = 25500 * time.Millisecond

// Open opens the given port with 8N1 framing and no flow control. Read blocks at most for the given
// timeout; when it elapses without any data, Read returns no bytes.
func Open(portName string, baudRate int, readTimeout time.Duration) (io.ReadWriteCloser, error) {
	if readTimeout > maxReadTimeout {
		readTimeout = maxReadTimeout
	}
	if readTimeout < 100*time.Millisecond {
		readTimeout = 100 * time.Millisecond
	}
	portConfig := serial.OpenOptions{
		PortName:              portName,
		BaudRate:              uint(baudRate),
		DataBits:              8,
		StopBits:              1,
		ParityMode:            serial.PARITY_NONE,
		RTSCTSFlowControl:     false,
		MinimumReadSize:       0,
		InterCharacterTimeout: uint(readTimeout.Milliseconds()),
	}

	return serial.Open(portConfig)
}

// Probe checks if the given port can be opened exclusively and closes it again immediately.
func Probe(portName string) error {
	port, err := bugst.Open(portName, &bugst.Mode{
		BaudRate: DefaultBaudRate,
		DataBits: 8,
		Parity:   bugst.NoParity,
		StopBits: bugst.OneStopBit,
	})
	if err != nil {
		return err
	}
	return port.Close()
}

// Enumerator lists the serial ports that are currently usable.
type Enumerator struct {
	Candidates func() ([]string, error)
	Probe      func(string) error
	Logger     *zap.SugaredLogger
}

// NewEnumerator returns an Enumerator that uses the naming scheme of the host platform and probes
// each candidate by opening it.
func NewEnumerator(logger *zap.SugaredLogger) *Enumerator {
	return &Enumerator{
		Candidates: candidates,
		Probe:      Probe,
		Logger:     logger,
	}
}

// ListPorts returns all candidate ports that pass the probe, in candidate order. An empty result
// is not an error; only ErrUnsupportedPlatform is returned.
func (e *Enumerator) ListPorts() ([]string, error) {
	names, err := e.Candidates()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}

	result := make([]string, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true

		if err := e.Probe(name); err != nil {
			e.debugw("Skipping port (can't open)", "port", name, "error", err)
			continue
		}
		result = append(result, name)
	}
	return result, nil
}

func (e *Enumerator) debugw(msg string, keysAndValues ...interface{}) {
	if e.Logger == nil {
		return
	}
	e.Logger.Debugw(msg, keysAndValues...)
}

// PreferMatching moves the ports whose hardware description contains the given text to the front,
// keeping the relative order otherwise. Without a match text, or where hardware descriptions are
// not available, the ports are returned unchanged.
func PreferMatching(ports []string, match string) []string {
	if match == "" || len(ports) < 2 {
		return ports
	}
	preferred, err := FindDevicePortName(match)
	if err != nil {
		return ports
	}
	return preferFirst(ports, preferred)
}

func preferFirst(ports []string, preferred string) []string {
	result := make([]string, 0, len(ports))
	for _, port := range ports {
		if port == preferred {
			result = append(result, port)
		}
	}
	if len(result) == 0 {
		return ports
	}
	for _, port := range ports {
		if port != preferred {
			result = append(result, port)
		}
	}
	return result
}
