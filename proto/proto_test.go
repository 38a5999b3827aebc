package proto

import (
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ftl/tc1000/tc"
)

func TestDecode(t *testing.T) {
	tt := []struct {
		desc     string
		line     string
		current  tc.Unit
		expected tc.Reading
		invalid  bool
	}{
		{
			desc:     "current only keeps unit",
			line:     "23.5",
			current:  tc.Fahrenheit,
			expected: tc.Reading{CurrentC: 23.5, Unit: tc.Fahrenheit},
		},
		{
			desc:     "current and celsius flag",
			line:     "23.5 0",
			current:  tc.Fahrenheit,
			expected: tc.Reading{CurrentC: 23.5, Unit: tc.Celsius},
		},
		{
			desc:     "current and fahrenheit flag",
			line:     "23.5 1",
			expected: tc.Reading{CurrentC: 23.5, Unit: tc.Fahrenheit},
		},
		{
			desc:     "celsius target",
			line:     "10 0 20",
			expected: tc.Reading{CurrentC: 10, Unit: tc.Celsius, TargetC: 20, HasTarget: true},
		},
		{
			desc:     "fahrenheit target is converted",
			line:     "10 1 212",
			expected: tc.Reading{CurrentC: 10, Unit: tc.Fahrenheit, TargetC: 100, HasTarget: true},
		},
		{
			desc:     "surrounding whitespace and CRLF",
			line:     "  \t42.25   0  30\r\n",
			expected: tc.Reading{CurrentC: 42.25, Unit: tc.Celsius, TargetC: 30, HasTarget: true},
		},
		{desc: "empty", line: "", invalid: true},
		{desc: "blank", line: "   \r\n", invalid: true},
		{desc: "too many fields", line: "1 0 2 3", invalid: true},
		{desc: "garbage current", line: "abc", invalid: true},
		{desc: "garbage flag", line: "12 x", invalid: true},
		{desc: "flag out of range", line: "12 2", invalid: true},
		{desc: "fractional flag", line: "12 1.0", invalid: true},
		{desc: "garbage target", line: "12 0 hot", invalid: true},
		{desc: "not a number", line: "NaN", invalid: true},
		{desc: "infinite", line: "12 0 +Inf", invalid: true},
	}
	for _, tc := range tt {
		t.Run(tc.desc, func(t *testing.T) {
			actual, err := Decode(tc.line, tc.current)
			if tc.invalid {
				assert.Error(t, err)
				assert.True(t, errors.Is(err, ErrDecode))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected.CurrentC, actual.CurrentC)
			assert.Equal(t, tc.expected.Unit, actual.Unit)
			assert.Equal(t, tc.expected.HasTarget, actual.HasTarget)
			assert.InDelta(t, tc.expected.TargetC, actual.TargetC, 1e-9)
		})
	}
}

func TestDecode_CurrentEqualsFirstToken(t *testing.T) {
	for _, value := range []float64{-12.5, 0, 0.001, 37, 999.875} {
		token := strconv.FormatFloat(value, 'f', -1, 64)
		for _, line := range []string{token, " " + token + " 0", token + " 1 50\n", "\t" + token + "\t0\t25  "} {
			actual, err := Decode(line, tc.Celsius)
			require.NoError(t, err, line)
			assert.Equal(t, value, actual.CurrentC, line)
		}
	}
}

func TestDecodeBytes(t *testing.T) {
	actual, err := DecodeBytes([]byte("\xef\xbb\xbf21.5 0 30\r\n"), tc.Celsius)
	require.NoError(t, err)
	assert.Equal(t, 21.5, actual.CurrentC)
	assert.Equal(t, 30.0, actual.TargetC)

	_, err = DecodeBytes([]byte("21\xff5"), tc.Celsius)
	assert.True(t, errors.Is(err, ErrDecode))
}

func TestEncode(t *testing.T) {
	tt := []struct {
		desc     string
		cmd      tc.Command
		expected string
	}{
		{"integer target", tc.SetTargetC(30), "30\n"},
		{"fractional target", tc.SetTargetC(30.555555555555557), "30.555555555555557\n"},
		{"negative target", tc.SetTargetC(-5.5), "-5.5\n"},
		{"fahrenheit", tc.SetUnit(tc.Fahrenheit), "F\n"},
		{"celsius", tc.SetUnit(tc.Celsius), "C\n"},
	}
	for _, tc := range tt {
		t.Run(tc.desc, func(t *testing.T) {
			assert.Equal(t, tc.expected, string(Encode(tc.cmd)))
		})
	}
}

func TestEncodeDecodeRoundtrip(t *testing.T) {
	for _, value := range []float64{0, 25, 30.555555555555557, 1000.0 / 3.0, -17.77777777777778} {
		encoded := Encode(tc.SetTargetC(value))
		reading, err := DecodeBytes(encoded, tc.Celsius)
		require.NoError(t, err)
		assert.InDelta(t, value, reading.CurrentC, 1e-12)

		reencoded := Encode(tc.SetTargetC(reading.CurrentC))
		assert.Equal(t, string(encoded), string(reencoded))
	}
}
