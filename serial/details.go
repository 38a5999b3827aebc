package serial

import (
	"fmt"

	"go.bug.st/serial/enumerator"
)

// PortDetails describes a serial port as reported by the operating system.
type PortDetails struct {
	Name         string
	IsUSB        bool
	VID          string
	PID          string
	SerialNumber string
	Product      string
}

func (d PortDetails) String() string {
	if !d.IsUSB {
		return d.Name
	}
	return fmt.Sprintf("%s [USB %s:%s %s %s]", d.Name, d.VID, d.PID, d.Product, d.SerialNumber)
}

// Details returns the detailed information the operating system provides about all serial ports.
func Details() ([]PortDetails, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("get detailed ports list: %w", err)
	}

	result := make([]PortDetails, 0, len(ports))
	for _, port := range ports {
		result = append(result, PortDetails{
			Name:         port.Name,
			IsUSB:        port.IsUSB,
			VID:          port.VID,
			PID:          port.PID,
			SerialNumber: port.SerialNumber,
			Product:      port.Product,
		})
	}
	return result, nil
}

// Describe returns the details of the given port, or just its name if the operating system knows
// nothing more about it.
func Describe(details []PortDetails, name string) PortDetails {
	for _, d := range details {
		if d.Name == name {
			return d
		}
	}
	return PortDetails{Name: name}
}
