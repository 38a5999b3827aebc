package tc

import (
	"fmt"
	"math"
	"strings"
)

// Unit is the temperature scale used for display and for the device's unit flag.
type Unit byte

// All supported units. The numeric values match the device's unit flag.
const (
	Celsius Unit = iota
	Fahrenheit
)

// UnitsByName maps all supported units by their wire token.
var UnitsByName = map[string]Unit{
	"C": Celsius,
	"F": Fahrenheit,
}

// UnitByName returns the Unit with the given name. Both the wire tokens ("C", "F")
// and the long names ("celsius", "fahrenheit") are accepted.
func UnitByName(name string) (Unit, error) {
	sanitized := strings.ToUpper(strings.TrimSpace(name))
	switch sanitized {
	case "CELSIUS":
		return Celsius, nil
	case "FAHRENHEIT":
		return Fahrenheit, nil
	}
	result, ok := UnitsByName[sanitized]
	if !ok {
		return 0, fmt.Errorf("invalid unit %s", name)
	}
	return result, nil
}

// UnitByFlag converts the device's 0/1 unit flag.
func UnitByFlag(flag int) (Unit, error) {
	switch flag {
	case 0:
		return Celsius, nil
	case 1:
		return Fahrenheit, nil
	default:
		return 0, fmt.Errorf("invalid unit flag %d", flag)
	}
}

func (u Unit) String() string {
	for k, v := range UnitsByName {
		if v == u {
			return k
		}
	}
	return "UNKNOWN"
}

// Step is the Celsius equivalent of one displayed degree in this unit.
func (u Unit) Step() float64 {
	if u == Fahrenheit {
		return 5.0 / 9.0
	}
	return 1
}

// FromCelsius expresses the given Celsius value in this unit.
func (u Unit) FromCelsius(celsius float64) float64 {
	if u == Fahrenheit {
		return ToFahrenheit(celsius)
	}
	return celsius
}

// ToCelsius converts a value expressed in this unit to Celsius.
func (u Unit) ToCelsius(value float64) float64 {
	if u == Fahrenheit {
		return ToCelsius(value)
	}
	return value
}

func ToFahrenheit(celsius float64) float64 {
	return celsius*9.0/5.0 + 32.0
}

func ToCelsius(fahrenheit float64) float64 {
	return (fahrenheit - 32.0) * 5.0 / 9.0
}

// Reading is one decoded status line of the controller. CurrentC and TargetC are always in Celsius.
type Reading struct {
	CurrentC  float64
	Unit      Unit
	TargetC   float64
	HasTarget bool
}

func (r Reading) String() string {
	if !r.HasTarget {
		return fmt.Sprintf("%.2f°C (%s)", r.CurrentC, r.Unit)
	}
	return fmt.Sprintf("%.2f°C (%s) target %.2f°C", r.CurrentC, r.Unit, r.TargetC)
}

// CommandKind tags the variant of a Command.
type CommandKind byte

// All command kinds.
const (
	TargetCommand CommandKind = iota
	UnitCommand
)

// Command is an outbound command to the controller.
type Command struct {
	Kind    CommandKind
	TargetC float64
	Unit    Unit
}

// SetTargetC creates a command that sets the controller's target temperature in Celsius.
func SetTargetC(celsius float64) Command {
	return Command{Kind: TargetCommand, TargetC: celsius}
}

// SetUnit creates a command that switches the controller's display unit.
func SetUnit(unit Unit) Command {
	return Command{Kind: UnitCommand, Unit: unit}
}

func (c Command) String() string {
	switch c.Kind {
	case TargetCommand:
		return fmt.Sprintf("set target %v°C", c.TargetC)
	case UnitCommand:
		return fmt.Sprintf("set unit %s", c.Unit)
	default:
		return "invalid command"
	}
}

// Finite reports whether v is neither NaN nor infinite.
func Finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func (u Unit) MarshalText() ([]byte, error) {
	return []byte(u.String()), nil
}

func (u *Unit) UnmarshalText(text []byte) error {
	result, err := UnitByName(string(text))
	if err != nil {
		return err
	}
	*u = result
	return nil
}
