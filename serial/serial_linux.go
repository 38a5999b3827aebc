//go:build linux

package serial

import (
	"path/filepath"
	"strings"

	"github.com/hedhyw/Go-Serial-Detector/pkg/v1/serialdet"
)

// the pattern requires a letter after tty to exclude the controlling terminal /dev/tty
func candidates() ([]string, error) {
	return filepath.Glob("/dev/tty[A-Za-z]*")
}

// FindDevicePortName returns the first port whose hardware description contains the given text.
func FindDevicePortName(match string) (string, error) {
	devices, err := serialdet.List()
	if err != nil {
		return "", err
	}

	match = strings.ToLower(match)
	for _, device := range devices {
		description := strings.ToLower(device.Description())
		if strings.Contains(description, match) {
			return device.Path(), nil
		}
	}

	return "", ErrNoDeviceFound
}
