package com

import (
	"errors"
	"io"
	"time"
)

const (
	readBufferSize = 1024
	maxLineLength  = 4 * readBufferSize
)

// ErrHangUp is returned when the device reports the end of its data long before the read timeout.
// A serial tty does this after it was hung up, e.g. when the USB adapter was unplugged.
var ErrHangUp = errors.New("device reports readiness to read but returned no data")

// lineReader splits the byte stream of the device into lines. Each call to ReadLine does at most
// one Read on the underlying reader, so it blocks no longer than the device's read timeout.
type lineReader struct {
	r           io.Reader
	buf         []byte
	currentLine []byte
	lines       [][]byte
	overflow    bool

	// an empty read that returns io.EOF faster than this is a hang up, not a read timeout
	hangUpThreshold time.Duration
}

func newLineReader(r io.Reader) *lineReader {
	return &lineReader{
		r:           r,
		buf:         make([]byte, readBufferSize),
		currentLine: make([]byte, 0, readBufferSize),

		hangUpThreshold: DefaultReadTimeout / 2,
	}
}

// setReadTimeout tells the reader how long the device blocks in Read without any data.
func (l *lineReader) setReadTimeout(timeout time.Duration) {
	l.hangUpThreshold = timeout / 2
}

// ReadLine returns the next complete, non-empty line without the terminator. It returns nil if no
// complete line was received within the read timeout. An empty read that ends early with io.EOF
// returns ErrHangUp.
func (l *lineReader) ReadLine() ([]byte, error) {
	if line, ok := l.nextLine(); ok {
		return line, nil
	}

	start := time.Now()
	n, err := l.r.Read(l.buf)
	if n > 0 {
		l.split(l.buf[:n])
	}
	if n == 0 && err == io.EOF && time.Since(start) < l.hangUpThreshold {
		return nil, ErrHangUp
	}
	if err != nil && err != io.EOF {
		return nil, err
	}

	line, _ := l.nextLine()
	return line, nil
}

// Reset drops all buffered data.
func (l *lineReader) Reset() {
	l.currentLine = l.currentLine[:0]
	l.lines = nil
	l.overflow = false
}

func (l *lineReader) nextLine() ([]byte, bool) {
	if len(l.lines) == 0 {
		return nil, false
	}
	result := l.lines[0]
	l.lines = l.lines[1:]
	return result, true
}

func (l *lineReader) split(data []byte) {
	for _, b := range data {
		switch {
		case b == '\n':
			if len(l.currentLine) > 0 && !l.overflow {
				line := make([]byte, len(l.currentLine))
				copy(line, l.currentLine)
				l.lines = append(l.lines, line)
			}
			l.currentLine = l.currentLine[:0]
			l.overflow = false
		case b < ' ' && b != '\t':
			continue
		case len(l.currentLine) >= maxLineLength:
			l.overflow = true
		default:
			l.currentLine = append(l.currentLine, b)
		}
	}
}
