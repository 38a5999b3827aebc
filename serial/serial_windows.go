//go:build windows

package serial

import "fmt"

// COM1 is skipped, it is usually the mainboard's legacy port
func candidates() ([]string, error) {
	result := make([]string, 0, 255)
	for i := 2; i <= 256; i++ {
		result = append(result, fmt.Sprintf("COM%d", i))
	}
	return result, nil
}

func FindDevicePortName(match string) (string, error) {
	// no hardware descriptions on windows
	return "", ErrNoDeviceFound
}
