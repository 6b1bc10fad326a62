//go:build !windows

package sysproxy

import (
	"errors"
	"runtime"
)

var errUnsupported = errors.New("system proxy control is not supported on " + runtime.GOOS)

func platformLoadSettings() (Settings, error) {
	return Settings{}, errUnsupported
}

func platformStoreSettings(Settings) error {
	return errUnsupported
}
