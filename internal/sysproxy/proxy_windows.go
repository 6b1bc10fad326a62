//go:build windows

package sysproxy

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/registry"
)

const internetSettingsKey = `Software\Microsoft\Windows\CurrentVersion\Internet Settings`

// InternetSetOption codes that make running programs reread the registry.
const (
	optionRefresh         = 37
	optionSettingsChanged = 39
)

var procInternetSetOption = windows.NewLazySystemDLL("wininet.dll").NewProc("InternetSetOptionW")

// stringValues maps registry value names onto Settings fields.
func stringValues(s *Settings) []struct {
	name string
	dst  *string
} {
	return []struct {
		name string
		dst  *string
	}{
		{"ProxyServer", &s.Server},
		{"ProxyOverride", &s.Bypass},
		{"AutoConfigURL", &s.PACURL},
	}
}

func platformLoadSettings() (Settings, error) {
	key, err := registry.OpenKey(registry.CURRENT_USER, internetSettingsKey, registry.QUERY_VALUE)
	if err != nil {
		return Settings{}, fmt.Errorf("open internet settings: %w", err)
	}
	defer key.Close()

	var s Settings
	enabled, _, err := key.GetIntegerValue("ProxyEnable")
	switch {
	case err == nil:
		s.Enabled = enabled != 0
	case !errors.Is(err, registry.ErrNotExist):
		return Settings{}, fmt.Errorf("read ProxyEnable: %w", err)
	}
	for _, v := range stringValues(&s) {
		raw, _, err := key.GetStringValue(v.name)
		if err != nil && !errors.Is(err, registry.ErrNotExist) {
			return Settings{}, fmt.Errorf("read %s: %w", v.name, err)
		}
		*v.dst = strings.TrimSpace(raw)
	}
	return s, nil
}

func platformStoreSettings(s Settings) error {
	key, err := registry.OpenKey(registry.CURRENT_USER, internetSettingsKey, registry.SET_VALUE)
	if err != nil {
		return fmt.Errorf("open internet settings for write: %w", err)
	}
	defer key.Close()

	var enabled uint32
	if s.Enabled {
		enabled = 1
	}
	if err := key.SetDWordValue("ProxyEnable", enabled); err != nil {
		return fmt.Errorf("write ProxyEnable: %w", err)
	}
	for _, v := range stringValues(&s) {
		value := strings.TrimSpace(*v.dst)
		if value == "" {
			err = key.DeleteValue(v.name)
			if errors.Is(err, registry.ErrNotExist) {
				err = nil
			}
		} else {
			err = key.SetStringValue(v.name, value)
		}
		if err != nil {
			return fmt.Errorf("write %s: %w", v.name, err)
		}
	}
	return notifyWinINet()
}

func notifyWinINet() error {
	for _, option := range []uintptr{optionSettingsChanged, optionRefresh} {
		if r, _, callErr := procInternetSetOption.Call(0, option, 0, 0); r == 0 {
			return fmt.Errorf("InternetSetOption(%d): %w", option, callErr)
		}
	}
	return nil
}
