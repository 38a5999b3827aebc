package serial

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnumerator_ListPorts(t *testing.T) {
	tt := []struct {
		desc       string
		candidates []string
		broken     map[string]bool
		expected   []string
	}{
		{
			desc:     "no candidates",
			expected: []string{},
		},
		{
			desc:       "all usable",
			candidates: []string{"/dev/ttyUSB0", "/dev/ttyACM0"},
			expected:   []string{"/dev/ttyUSB0", "/dev/ttyACM0"},
		},
		{
			desc:       "probe failures are excluded",
			candidates: []string{"/dev/ttyS0", "/dev/ttyUSB0", "/dev/ttyS1"},
			broken:     map[string]bool{"/dev/ttyS0": true, "/dev/ttyS1": true},
			expected:   []string{"/dev/ttyUSB0"},
		},
		{
			desc:       "nothing usable",
			candidates: []string{"COM2", "COM3"},
			broken:     map[string]bool{"COM2": true, "COM3": true},
			expected:   []string{},
		},
		{
			desc:       "duplicates are removed",
			candidates: []string{"COM3", "COM3", "COM4"},
			expected:   []string{"COM3", "COM4"},
		},
	}
	for _, tc := range tt {
		t.Run(tc.desc, func(t *testing.T) {
			probed := []string{}
			e := &Enumerator{
				Candidates: func() ([]string, error) { return tc.candidates, nil },
				Probe: func(name string) error {
					probed = append(probed, name)
					if tc.broken[name] {
						return errors.New("device busy")
					}
					return nil
				},
			}

			actual, err := e.ListPorts()

			assert.NoError(t, err)
			assert.Equal(t, tc.expected, actual)
			for _, name := range actual {
				assert.Contains(t, probed, name)
				assert.False(t, tc.broken[name])
			}
		})
	}
}

func TestEnumerator_UnsupportedPlatform(t *testing.T) {
	e := &Enumerator{
		Candidates: func() ([]string, error) { return nil, ErrUnsupportedPlatform },
		Probe:      func(string) error { return nil },
	}

	actual, err := e.ListPorts()

	assert.Nil(t, actual)
	assert.True(t, errors.Is(err, ErrUnsupportedPlatform))
}

func TestPreferFirst(t *testing.T) {
	ports := []string{"/dev/ttyS0", "/dev/ttyUSB0", "/dev/ttyUSB1"}

	assert.Equal(t, []string{"/dev/ttyUSB1", "/dev/ttyS0", "/dev/ttyUSB0"}, preferFirst(ports, "/dev/ttyUSB1"))
	assert.Equal(t, ports, preferFirst(ports, "/dev/ttyACM0"))
	assert.Equal(t, ports, PreferMatching(ports, ""))
}

func TestDescribe(t *testing.T) {
	details := []PortDetails{
		{Name: "/dev/ttyUSB0", IsUSB: true, VID: "2341", PID: "0043", Product: "Arduino Uno"},
	}

	assert.Equal(t, "Arduino Uno", Describe(details, "/dev/ttyUSB0").Product)
	assert.Equal(t, "/dev/ttyS0", Describe(details, "/dev/ttyS0").String())
}
