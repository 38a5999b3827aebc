// Package config loads the settings of the bridge from a YAML file and the environment and watches
// the file for changes.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	configName = "tc1000"
	configType = "yaml"
	envPrefix  = "TC1000"
)

// Keys of the settings.
const (
	SerialPortKey        = "serial.port"
	SerialBaudKey        = "serial.baud"
	SerialReadTimeoutKey = "serial.read_timeout"
	SerialMatchKey       = "serial.match"
	SerialScanKey        = "serial.scan_interval"
	ControlTickKey       = "control.tick"
	ControlInitialKey    = "control.initial_target"
	ControlMinKey        = "control.min_target"
	ControlMaxKey        = "control.max_target"
	HistorySizeKey       = "history.size"
	HTTPListenKey        = "http.listen"
	LogLevelKey          = "log.level"
	TraceFileKey         = "trace.file"
)

var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	Serial  Serial  `mapstructure:"serial"`
	Control Control `mapstructure:"control"`
	History History `mapstructure:"history"`
	HTTP    HTTP    `mapstructure:"http"`
	Log     Log     `mapstructure:"log"`
	Trace   Trace   `mapstructure:"trace"`
}

type Serial struct {
	Port         string        `mapstructure:"port"`
	Baud         int           `mapstructure:"baud"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	Match        string        `mapstructure:"match"`
	ScanInterval time.Duration `mapstructure:"scan_interval"`
}

type Control struct {
	Tick          time.Duration `mapstructure:"tick"`
	InitialTarget float64       `mapstructure:"initial_target"`
	MinTarget     float64       `mapstructure:"min_target"`
	MaxTarget     float64       `mapstructure:"max_target"`
}

type History struct {
	Size int `mapstructure:"size"`
}

type HTTP struct {
	// Listen is the address of the monitor. The monitor is disabled if it is empty.
	Listen string `mapstructure:"listen"`
}

type Log struct {
	Level string `mapstructure:"level"`
}

type Trace struct {
	// File receives the raw serial traffic. Nothing is traced if it is empty.
	File string `mapstructure:"file"`
}

// Validate checks the values that would make the bridge misbehave.
func (c Config) Validate() error {
	switch {
	case c.Serial.Baud <= 0:
		return fmt.Errorf("%w: %s must be positive", ErrInvalid, SerialBaudKey)
	case c.Serial.ReadTimeout <= 0:
		return fmt.Errorf("%w: %s must be positive", ErrInvalid, SerialReadTimeoutKey)
	case c.Serial.ScanInterval <= 0:
		return fmt.Errorf("%w: %s must be positive", ErrInvalid, SerialScanKey)
	case c.Control.Tick <= 0:
		return fmt.Errorf("%w: %s must be positive", ErrInvalid, ControlTickKey)
	case c.Control.MinTarget > c.Control.MaxTarget:
		return fmt.Errorf("%w: %s is above %s", ErrInvalid, ControlMinKey, ControlMaxKey)
	case c.Control.InitialTarget < c.Control.MinTarget || c.Control.InitialTarget > c.Control.MaxTarget:
		return fmt.Errorf("%w: %s is out of range", ErrInvalid, ControlInitialKey)
	}
	return nil
}

// SerialChangeCallback is called when the port or the baud rate changed in the configuration file.
type SerialChangeCallback func(port string, baudRate int)

// Store reads and writes the configuration.
type Store struct {
	v      *viper.Viper
	logger *zap.SugaredLogger
	file   string

	lock                 sync.Mutex
	current              Config
	serialChangeCallback SerialChangeCallback
}

// NewStore creates a store for the given configuration file. If file is empty, tc1000.yaml is
// searched in the working directory and in $HOME/.config/tc1000.
func NewStore(file string, logger *zap.SugaredLogger) *Store {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType(configType)
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(".")
		if dir, err := userConfigDir(); err == nil {
			v.AddConfigPath(dir)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &Store{
		v:      v,
		logger: logger.Named("config"),
		file:   file,
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(SerialPortKey, "")
	v.SetDefault(SerialBaudKey, 9600)
	v.SetDefault(SerialReadTimeoutKey, time.Second)
	v.SetDefault(SerialMatchKey, "")
	v.SetDefault(SerialScanKey, 500*time.Millisecond)
	v.SetDefault(ControlTickKey, 50*time.Millisecond)
	v.SetDefault(ControlInitialKey, 30.0)
	v.SetDefault(ControlMinKey, 0.0)
	v.SetDefault(ControlMaxKey, 1000.0)
	v.SetDefault(HistorySizeKey, 3600)
	v.SetDefault(HTTPListenKey, "")
	v.SetDefault(LogLevelKey, "info")
	v.SetDefault(TraceFileKey, "")
}

func userConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", configName), nil
}

// Load reads the configuration. A missing configuration file is not an error, the defaults and the
// environment apply then.
func (s *Store) Load() (Config, error) {
	err := s.v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	switch {
	case errors.As(err, &notFound):
		s.logger.Debug("No configuration file found, using defaults")
	case err != nil && s.file != "" && errors.Is(err, os.ErrNotExist):
		s.logger.Debugw("Configuration file does not exist yet, using defaults", "file", s.file)
	case err != nil:
		return Config{}, fmt.Errorf("read configuration: %w", err)
	default:
		s.logger.Infow("Configuration loaded", "file", s.v.ConfigFileUsed())
	}

	result, err := s.decode()
	if err != nil {
		return Config{}, err
	}

	s.lock.Lock()
	s.current = result
	s.lock.Unlock()
	return result, nil
}

func (s *Store) decode() (Config, error) {
	var result Config
	if err := s.v.Unmarshal(&result); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := result.Validate(); err != nil {
		return Config{}, err
	}
	return result, nil
}

// File returns the path of the configuration file in use, or the path it would be written to.
func (s *Store) File() string {
	if used := s.v.ConfigFileUsed(); used != "" {
		return used
	}
	dir, err := userConfigDir()
	if err != nil {
		return configName + "." + configType
	}
	return filepath.Join(dir, configName+"."+configType)
}

// SetPort stores the given port as the preferred one and writes the configuration file.
func (s *Store) SetPort(port string) error {
	s.v.Set(SerialPortKey, port)

	filename := s.File()
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return fmt.Errorf("create configuration directory: %w", err)
	}
	if err := s.v.WriteConfigAs(filename); err != nil {
		return fmt.Errorf("write configuration: %w", err)
	}
	s.logger.Infow("Configuration written", "file", filename, "port", port)
	return nil
}

// WithLogger replaces the logger, e.g. once the configured log level is known.
func (s *Store) WithLogger(logger *zap.SugaredLogger) *Store {
	s.logger = logger.Named("config")
	return s
}

// WithSerialChangeCallback sets the callback that is called when the configured port or baud rate
// changed. It must be set before Watch is called.
func (s *Store) WithSerialChangeCallback(callback SerialChangeCallback) *Store {
	s.serialChangeCallback = callback
	return s
}

// Watch reloads the configuration file whenever it changes.
func (s *Store) Watch() {
	s.v.OnConfigChange(s.reload)
	s.v.WatchConfig()
}

func (s *Store) reload(event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}
	if err := s.v.ReadInConfig(); err != nil {
		s.logger.Warnw("Failed to reload configuration", "file", event.Name, "error", err)
		return
	}
	next, err := s.decode()
	if err != nil {
		s.logger.Warnw("Ignoring invalid configuration", "file", event.Name, "error", err)
		return
	}

	s.lock.Lock()
	previous := s.current
	s.current = next
	s.lock.Unlock()

	s.logger.Debugw("Configuration reloaded", "file", event.Name)
	if previous.Serial.Port == next.Serial.Port && previous.Serial.Baud == next.Serial.Baud {
		return
	}
	if next.Serial.Port == "" {
		s.logger.Infow("Configured port removed, keeping the current connection")
		return
	}
	s.logger.Infow("Serial settings changed", "port", next.Serial.Port, "baudRate", next.Serial.Baud)
	if s.serialChangeCallback != nil {
		s.serialChangeCallback(next.Serial.Port, next.Serial.Baud)
	}
}
