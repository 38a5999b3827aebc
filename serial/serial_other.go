//go:build !linux && !darwin && !windows

package serial

func candidates() ([]string, error) {
	return nil, ErrUnsupportedPlatform
}

func FindDevicePortName(match string) (string, error) {
	// no-op for other OSes
	return "", ErrNoDeviceFound
}
