package sysproxy

import "strings"

// Settings is the per-user proxy configuration of the operating system.
type Settings struct {
	Enabled bool
	Server  string
	Bypass  string
	// PACURL is an automatic configuration script, which takes precedence
	// over Server when set.
	PACURL string
}

// Change is the outcome of Enable.
type Change struct {
	Endpoint *InboundEndpoint
	// Applied is false when a manual proxy or PAC script was already set and
	// nothing was touched.
	Applied bool
	// Restore puts the settings seen before Enable back.
	Restore func() error
}

var (
	loadSettings  = platformLoadSettings
	storeSettings = platformStoreSettings
)

// Enable points the system proxy at the listener declared in the daemon
// config at configPath.
func Enable(configPath string) (*Change, error) {
	endpoint, err := DetectProxyEndpoint(configPath)
	if err != nil {
		return nil, err
	}
	current, err := loadSettings()
	if err != nil {
		return nil, err
	}
	next, apply := planEnable(current, *endpoint)
	change := &Change{Endpoint: endpoint, Applied: apply, Restore: func() error { return nil }}
	if !apply {
		return change, nil
	}
	if err := storeSettings(next); err != nil {
		return nil, err
	}
	change.Restore = func() error { return storeSettings(current) }
	return change, nil
}

// Disable switches the manual proxy off. Server and bypass list are kept so
// the user can turn it back on by hand.
func Disable() error {
	current, err := loadSettings()
	if err != nil {
		return err
	}
	if !current.Enabled {
		return nil
	}
	current.Enabled = false
	return storeSettings(current)
}

func planEnable(current Settings, endpoint InboundEndpoint) (Settings, bool) {
	if current.Enabled || strings.TrimSpace(current.PACURL) != "" {
		return current, false
	}
	return Settings{
		Enabled: true,
		Server:  endpoint.String(),
		Bypass:  mergeBypass(current.Bypass, RequiredBypassList),
	}, true
}
