package proto

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/ftl/tc1000/tc"
)

// ErrDecode is wrapped by all errors returned when a line cannot be decoded.
var ErrDecode = errors.New("cannot decode line")

// Terminator ends every line on the wire.
const Terminator = '\n'

// DecodeBytes decodes a raw line as read from the device. The bytes are interpreted as UTF-8,
// an optional byte order mark is skipped.
func DecodeBytes(raw []byte, current tc.Unit) (tc.Reading, error) {
	text, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), raw)
	if err != nil {
		return tc.Reading{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return Decode(string(text), current)
}

// Decode parses one status line. The given unit is kept for lines that do not carry a unit flag.
func Decode(line string, current tc.Unit) (tc.Reading, error) {
	fields := strings.Fields(line)

	var result tc.Reading
	var err error
	switch len(fields) {
	case 3:
		result.HasTarget = true
		result.TargetC, err = parseTemperature(fields[2])
		if err != nil {
			return tc.Reading{}, fmt.Errorf("%w %q: target: %v", ErrDecode, line, err)
		}
		fallthrough
	case 2:
		flag, err := strconv.Atoi(fields[1])
		if err != nil {
			return tc.Reading{}, fmt.Errorf("%w %q: unit flag: %v", ErrDecode, line, err)
		}
		result.Unit, err = tc.UnitByFlag(flag)
		if err != nil {
			return tc.Reading{}, fmt.Errorf("%w %q: %v", ErrDecode, line, err)
		}
	case 1:
		result.Unit = current
	default:
		return tc.Reading{}, fmt.Errorf("%w %q: got %d fields", ErrDecode, line, len(fields))
	}

	result.CurrentC, err = parseTemperature(fields[0])
	if err != nil {
		return tc.Reading{}, fmt.Errorf("%w %q: current: %v", ErrDecode, line, err)
	}
	if result.HasTarget {
		result.TargetC = result.Unit.ToCelsius(result.TargetC)
	}

	return result, nil
}

func parseTemperature(s string) (float64, error) {
	result, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if !tc.Finite(result) {
		return 0, fmt.Errorf("%s is not a finite number", s)
	}
	return result, nil
}

// Encode returns the wire representation of the given command, including the line terminator.
func Encode(cmd tc.Command) []byte {
	var text string
	switch cmd.Kind {
	case tc.TargetCommand:
		text = strconv.FormatFloat(cmd.TargetC, 'f', -1, 64)
	case tc.UnitCommand:
		text = cmd.Unit.String()
	}
	result := make([]byte, 0, len(text)+1)
	result = append(result, text...)
	return append(result, Terminator)
}
