//go:build darwin

package serial

import "path/filepath"

func candidates() ([]string, error) {
	return filepath.Glob("/dev/tty.*")
}

func FindDevicePortName(match string) (string, error) {
	// no hardware descriptions on darwin
	return "", ErrNoDeviceFound
}
