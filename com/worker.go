package com

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/ftl/tc1000/proto"
	"github.com/ftl/tc1000/queue"
	"github.com/ftl/tc1000/serial"
	"github.com/ftl/tc1000/tc"
)

const (
	DefaultScanInterval = 500 * time.Millisecond
	DefaultReadTimeout  = time.Second
)

// PortLister returns the currently usable serial ports.
type PortLister func() ([]string, error)

// Worker is the only goroutine that reads from and writes to the serial connection. It looks for
// a port while disconnected and alternates between reading one line and writing one command while
// connected.
type Worker struct {
	manager   *Manager
	listPorts PortLister
	bridge    *queue.Bridge
	logger    *zap.SugaredLogger
	tracer    io.Writer

	baudRate     int
	scanInterval time.Duration
	reader       *lineReader

	running  atomic.Bool
	stopOnce sync.Once
	stopped  chan struct{}

	portLock      sync.Mutex
	ports         []string
	preferredPort string
	portRequest   *portRequest
}

type portRequest struct {
	port     string
	baudRate int
}

func NewWorker(manager *Manager, listPorts PortLister, bridge *queue.Bridge, logger *zap.SugaredLogger) *Worker {
	result := &Worker{
		manager:      manager,
		listPorts:    listPorts,
		bridge:       bridge,
		logger:       logger.Named("worker"),
		baudRate:     serial.DefaultBaudRate,
		scanInterval: DefaultScanInterval,
		stopped:      make(chan struct{}),
	}
	result.reader = newLineReader(manager)
	result.running.Store(true)
	return result
}

func (w *Worker) WithBaudRate(baudRate int) *Worker {
	w.baudRate = baudRate
	return w
}

// WithReadTimeout tells the worker how long a read on the opened device blocks without data. An
// empty read that ends in less than half of it is taken as a hang up.
func (w *Worker) WithReadTimeout(timeout time.Duration) *Worker {
	w.reader.setReadTimeout(timeout)
	return w
}

func (w *Worker) WithScanInterval(interval time.Duration) *Worker {
	w.scanInterval = interval
	return w
}

// WithPreferredPort makes the worker connect to the given port whenever it is available.
func (w *Worker) WithPreferredPort(port string) *Worker {
	w.preferredPort = port
	return w
}

// WithTrace traces all communication to the given writer.
func (w *Worker) WithTrace(tracer io.Writer) *Worker {
	w.tracer = tracer
	return w
}

// Running reports whether the worker has not been asked to stop yet.
func (w *Worker) Running() bool {
	return w.running.Load()
}

// Stop asks the worker to terminate. The worker exits at the next iteration boundary, so this may
// take up to one read timeout.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		w.running.Store(false)
		close(w.stopped)
	})
}

// State returns a snapshot of the connection state.
func (w *Worker) State() ConnectionState {
	return w.manager.State()
}

// Ports returns the ports found by the last scan. The list is empty while the worker is scanning.
func (w *Worker) Ports() []string {
	w.portLock.Lock()
	defer w.portLock.Unlock()

	result := make([]string, len(w.ports))
	copy(result, w.ports)
	return result
}

// RequestPort asks the worker to switch to the given port. A baud rate of zero keeps the current
// baud rate. Only the most recent request is executed.
func (w *Worker) RequestPort(port string, baudRate int) {
	w.portLock.Lock()
	defer w.portLock.Unlock()

	w.portRequest = &portRequest{port: port, baudRate: baudRate}
	w.preferredPort = port
}

func (w *Worker) takePortRequest() (portRequest, bool) {
	w.portLock.Lock()
	defer w.portLock.Unlock()

	if w.portRequest == nil {
		return portRequest{}, false
	}
	result := *w.portRequest
	w.portRequest = nil
	return result, true
}

func (w *Worker) setPorts(ports []string) {
	w.portLock.Lock()
	defer w.portLock.Unlock()

	w.ports = ports
}

func (w *Worker) selectPort(ports []string) string {
	w.portLock.Lock()
	preferred := w.preferredPort
	w.portLock.Unlock()

	for _, port := range ports {
		if port == preferred {
			return port
		}
	}
	return ports[0]
}

// Run executes the worker loop until Stop is called or the context is done. The connection is
// closed before Run returns.
func (w *Worker) Run(ctx context.Context) {
	stop := context.AfterFunc(ctx, w.Stop)
	defer stop()

	w.trace("****\n* SESSION START\n****\n")
	defer w.trace("****\n* SESSION END\n****\n")
	defer w.manager.Close()

	for w.Running() {
		if request, ok := w.takePortRequest(); ok {
			w.changePort(request)
			continue
		}

		switch w.manager.State().Kind {
		case Connected:
			w.poll()
		default:
			w.scan()
		}
	}
	w.logger.Debug("Worker stopped")
}

func (w *Worker) changePort(request portRequest) {
	if request.baudRate > 0 {
		w.baudRate = request.baudRate
	}
	w.logger.Infow("Changing port", "port", request.port, "baudRate", w.baudRate)
	w.discardInput()
	err := w.manager.Reopen(request.port, w.baudRate)
	if err != nil {
		w.setPorts(nil)
	}
}

func (w *Worker) scan() {
	if w.manager.State().Kind != Scanning {
		w.manager.SetScanning()
		w.setPorts(nil)
	}

	ports, err := w.listPorts()
	if err != nil {
		w.logger.Errorw("Failed to enumerate serial ports", "error", err)
		w.sleep()
		return
	}
	if len(ports) == 0 {
		w.sleep()
		return
	}
	w.setPorts(ports)

	port := w.selectPort(ports)
	w.logger.Infow("Connecting", "port", port, "baudRate", w.baudRate)
	w.discardInput()
	if err := w.manager.Open(port, w.baudRate); err != nil {
		w.setPorts(nil)
		w.sleep()
	}
}

func (w *Worker) sleep() {
	select {
	case <-w.stopped:
	case <-time.After(w.scanInterval):
	}
}

// poll does one polling cycle: read at most one line, then write at most one command.
func (w *Worker) poll() {
	line, err := w.reader.ReadLine()
	if err != nil {
		w.logger.Warnw("Failed to read line from serial, retrying", "error", err)
		line, err = w.reader.ReadLine()
		if err != nil {
			w.fault(fmt.Errorf("%w: %v", ErrRead, err))
			return
		}
	}
	if len(line) > 0 {
		w.tracef("rx:  %s\nhex: %X\n--\n", line, line)
		w.bridge.Inbound.Push(line)
	}

	cmd, ok := w.bridge.Outbound.Pop()
	if !ok {
		return
	}
	if err := w.send(cmd); err != nil {
		w.fault(err)
	}
}

func (w *Worker) send(cmd tc.Command) error {
	txbytes := proto.Encode(cmd)
	w.tracef("tx:  %s\nhex: %X\n--\n", txbytes, txbytes)

	remaining, err := w.write(txbytes)
	if err == nil {
		return nil
	}
	w.logger.Warnw("Failed to write command, retrying", "command", cmd, "error", err)
	_, err = w.write(remaining)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrWrite, cmd, err)
	}
	return nil
}

// write writes all of p and returns the part that could not be written.
func (w *Worker) write(p []byte) ([]byte, error) {
	for len(p) > 0 {
		n, err := w.manager.Write(p)
		p = p[n:]
		if err != nil {
			return p, err
		}
		if n == 0 {
			return p, io.ErrShortWrite
		}
	}
	return nil, nil
}

func (w *Worker) fault(err error) {
	w.logger.Errorw("Serial connection faulted", "port", w.manager.State().Port, "error", err)
	w.manager.Fault(err)
	w.discardInput()
	w.setPorts(nil)
}

// discardInput drops everything received on the previous connection.
func (w *Worker) discardInput() {
	w.reader.Reset()
	w.bridge.Inbound.Drain()
}

func (w *Worker) trace(args ...interface{}) {
	if w.tracer == nil {
		return
	}
	fmt.Fprint(w.tracer, args...)
}

func (w *Worker) tracef(format string, args ...interface{}) {
	if w.tracer == nil {
		return
	}
	fmt.Fprintf(w.tracer, format, args...)
}
