package com

import (
	"io"
	"os"
	"sync"
	"time"
)

const defaultInMemoryReadTimeout = 10 * time.Millisecond

// NewInMemory returns a device that behaves like a serial port with a read timeout, for testing.
func NewInMemory() *InMemory {
	return &InMemory{
		readBuffer:  []byte{},
		writeBuffer: []byte{},
		readLock:    new(sync.RWMutex),
		writeLock:   new(sync.RWMutex),
		writeSignal: make(chan bool, 1),
		closed:      make(chan struct{}),
		readTimeout: defaultInMemoryReadTimeout,
		writeLimit:  -1,
	}
}

type InMemory struct {
	readBuffer  []byte
	writeBuffer []byte
	readLock    *sync.RWMutex
	writeLock   *sync.RWMutex
	writeSignal chan bool
	closed      chan struct{}
	readTimeout time.Duration

	readFaults  []error
	writeFaults []error
	hungUp      bool
	writeLimit  int
}

func (rw *InMemory) Close() error {
	select {
	case <-rw.closed:
	default:
		close(rw.closed)
	}
	return nil
}

func (rw *InMemory) Closed() bool {
	select {
	case <-rw.closed:
		return true
	default:
		return false
	}
}

// Read waits for data until the read timeout elapses. Like a serial port with VMIN=0, it returns
// no bytes and no error on timeout.
func (rw *InMemory) Read(p []byte) (int, error) {
	if err := rw.nextReadFault(); err != nil {
		return 0, err
	}
	if rw.isHungUp() {
		return 0, io.EOF
	}

	deadline := time.After(rw.readTimeout)
	for {
		rw.readLock.RLock()
		available := len(rw.readBuffer)
		rw.readLock.RUnlock()
		if available > 0 {
			break
		}
		select {
		case <-rw.closed:
			return 0, os.ErrClosed
		case <-deadline:
			return 0, nil
		case <-time.After(time.Millisecond):
			continue
		}
	}

	select {
	case <-rw.closed:
		return 0, os.ErrClosed
	default:
	}

	rw.readLock.Lock()
	defer rw.readLock.Unlock()
	n := copy(p, rw.readBuffer)
	rw.readBuffer = rw.readBuffer[n:]
	return n, nil
}

// PrepareRead appends data that will be returned by subsequent reads.
func (rw *InMemory) PrepareRead(p []byte) {
	rw.readLock.Lock()
	defer rw.readLock.Unlock()

	rw.readBuffer = append(rw.readBuffer, p...)
}

func (rw *InMemory) IsReadEmpty() bool {
	rw.readLock.RLock()
	defer rw.readLock.RUnlock()

	return len(rw.readBuffer) == 0
}

// FailReads makes the next reads fail with the given errors, one error per read.
func (rw *InMemory) FailReads(errs ...error) {
	rw.readLock.Lock()
	defer rw.readLock.Unlock()

	rw.readFaults = append(rw.readFaults, errs...)
}

// FailWrites makes the next writes fail with the given errors, one error per write.
func (rw *InMemory) FailWrites(errs ...error) {
	rw.writeLock.Lock()
	defer rw.writeLock.Unlock()

	rw.writeFaults = append(rw.writeFaults, errs...)
}

// HangUp makes all following reads return io.EOF right away, like a tty whose device was unplugged.
func (rw *InMemory) HangUp() {
	rw.readLock.Lock()
	defer rw.readLock.Unlock()

	rw.hungUp = true
}

func (rw *InMemory) isHungUp() bool {
	rw.readLock.RLock()
	defer rw.readLock.RUnlock()

	return rw.hungUp
}

// LimitWrites makes each write accept at most n bytes. A negative n removes the limit.
func (rw *InMemory) LimitWrites(n int) {
	rw.writeLock.Lock()
	defer rw.writeLock.Unlock()

	rw.writeLimit = n
}

func (rw *InMemory) nextReadFault() error {
	rw.readLock.Lock()
	defer rw.readLock.Unlock()

	if len(rw.readFaults) == 0 {
		return nil
	}
	result := rw.readFaults[0]
	rw.readFaults = rw.readFaults[1:]
	return result
}

func (rw *InMemory) Write(p []byte) (int, error) {
	rw.writeLock.Lock()
	defer rw.writeLock.Unlock()

	if rw.Closed() {
		return 0, os.ErrClosed
	}
	if len(rw.writeFaults) > 0 {
		err := rw.writeFaults[0]
		rw.writeFaults = rw.writeFaults[1:]
		return 0, err
	}

	if rw.writeLimit >= 0 && len(p) > rw.writeLimit {
		p = p[:rw.writeLimit]
	}
	rw.writeBuffer = append(rw.writeBuffer, p...)
	select {
	case rw.writeSignal <- true:
	default:
	}
	return len(p), nil
}

func (rw *InMemory) Written() []byte {
	rw.writeLock.RLock()
	defer rw.writeLock.RUnlock()

	result := make([]byte, len(rw.writeBuffer))
	copy(result, rw.writeBuffer)
	return result
}

func (rw *InMemory) ClearWrite() {
	rw.writeLock.Lock()
	defer rw.writeLock.Unlock()

	rw.writeBuffer = []byte{}
}

func (rw *InMemory) WaitUntilWritten() {
	<-rw.writeSignal
}
