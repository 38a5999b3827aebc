package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeFile(t *testing.T, filename string, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filename, []byte(content), 0o644))
}

func TestLoad_Defaults(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "tc1000.yaml"), zap.NewNop().Sugar())

	cfg, err := store.Load()

	require.NoError(t, err)
	assert.Equal(t, "", cfg.Serial.Port)
	assert.Equal(t, 9600, cfg.Serial.Baud)
	assert.Equal(t, time.Second, cfg.Serial.ReadTimeout)
	assert.Equal(t, 500*time.Millisecond, cfg.Serial.ScanInterval)
	assert.Equal(t, 50*time.Millisecond, cfg.Control.Tick)
	assert.Equal(t, 30.0, cfg.Control.InitialTarget)
	assert.Equal(t, 0.0, cfg.Control.MinTarget)
	assert.Equal(t, 1000.0, cfg.Control.MaxTarget)
	assert.Equal(t, 3600, cfg.History.Size)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_File(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "tc1000.yaml")
	writeFile(t, filename, `
serial:
  port: /dev/ttyACM0
  baud: 19200
  read_timeout: 250ms
  match: Arduino
control:
  initial_target: 42.5
  max_target: 300
http:
  listen: ":8080"
`)
	store := NewStore(filename, zap.NewNop().Sugar())

	cfg, err := store.Load()

	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyACM0", cfg.Serial.Port)
	assert.Equal(t, 19200, cfg.Serial.Baud)
	assert.Equal(t, 250*time.Millisecond, cfg.Serial.ReadTimeout)
	assert.Equal(t, "Arduino", cfg.Serial.Match)
	assert.Equal(t, 42.5, cfg.Control.InitialTarget)
	assert.Equal(t, 300.0, cfg.Control.MaxTarget)
	assert.Equal(t, ":8080", cfg.HTTP.Listen)
	assert.Equal(t, filename, store.File())
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("TC1000_SERIAL_PORT", "COM7")
	t.Setenv("TC1000_CONTROL_TICK", "100ms")
	store := NewStore(filepath.Join(t.TempDir(), "tc1000.yaml"), zap.NewNop().Sugar())

	cfg, err := store.Load()

	require.NoError(t, err)
	assert.Equal(t, "COM7", cfg.Serial.Port)
	assert.Equal(t, 100*time.Millisecond, cfg.Control.Tick)
}

func TestLoad_Invalid(t *testing.T) {
	tt := []struct {
		name    string
		content string
	}{
		{name: "baud", content: "serial:\n  baud: 0\n"},
		{name: "limits", content: "control:\n  min_target: 100\n  max_target: 50\n"},
		{name: "initial", content: "control:\n  initial_target: 2000\n"},
		{name: "tick", content: "control:\n  tick: 0s\n"},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			filename := filepath.Join(t.TempDir(), "tc1000.yaml")
			writeFile(t, filename, tc.content)
			store := NewStore(filename, zap.NewNop().Sugar())

			_, err := store.Load()

			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestSetPort(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "sub", "tc1000.yaml")
	store := NewStore(filename, zap.NewNop().Sugar())
	_, err := store.Load()
	require.NoError(t, err)

	require.NoError(t, store.SetPort("/dev/ttyUSB3"))

	cfg, err := NewStore(filename, zap.NewNop().Sugar()).Load()
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB3", cfg.Serial.Port)
}

func TestReload_SerialChange(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "tc1000.yaml")
	writeFile(t, filename, "serial:\n  port: /dev/ttyUSB0\n")

	type change struct {
		port string
		baud int
	}
	var changes []change
	store := NewStore(filename, zap.NewNop().Sugar()).WithSerialChangeCallback(func(port string, baudRate int) {
		changes = append(changes, change{port, baudRate})
	})
	_, err := store.Load()
	require.NoError(t, err)
	event := fsnotify.Event{Name: filename, Op: fsnotify.Write}

	writeFile(t, filename, "serial:\n  port: /dev/ttyUSB0\nlog:\n  level: debug\n")
	store.reload(event)
	assert.Empty(t, changes)

	writeFile(t, filename, "serial:\n  port: /dev/ttyUSB1\n")
	store.reload(event)
	writeFile(t, filename, "serial:\n  port: /dev/ttyUSB1\n  baud: 4800\n")
	store.reload(event)
	writeFile(t, filename, "serial:\n  baud: -1\n")
	store.reload(event)
	writeFile(t, filename, "serial:\n  baud: 4800\n")
	store.reload(event)

	assert.Equal(t, []change{{"/dev/ttyUSB1", 9600}, {"/dev/ttyUSB1", 4800}}, changes)
}
