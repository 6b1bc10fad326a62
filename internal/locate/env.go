package locate

import (
	"os"
	"path/filepath"
)

// Env is the process environment discovery depends on. Callers take a
// snapshot once with EnvFromOS and pass it around; discovery never reads the
// environment itself.
type Env struct {
	Home string
	// AppData is the roaming application data folder. Empty outside Windows,
	// in which case <Home>/AppData/Roaming is still probed.
	AppData string
	// ConfigPath is CLASH_CONFIG_PATH: a config file or a directory holding one.
	ConfigPath string
	// PartyDir is CLASH_PARTY_DIR: the mihomo-party data directory.
	PartyDir string
	// SystemDirs are probed for the daemon config only when no hint is given.
	SystemDirs []string
}

func EnvFromOS() Env {
	home, _ := os.UserHomeDir()
	return Env{
		Home:       home,
		AppData:    roamingAppData(),
		ConfigPath: os.Getenv("CLASH_CONFIG_PATH"),
		PartyDir:   os.Getenv("CLASH_PARTY_DIR"),
		SystemDirs: []string{"/etc/clash", "/etc/mihomo"},
	}
}

// Pinned reports whether an environment override short-circuits discovery.
func (e Env) Pinned() bool {
	return e.ConfigPath != "" || e.PartyDir != ""
}

// appDataDirs returns the roaming data roots, deduplicated.
func (e Env) appDataDirs() []string {
	var out []string
	if e.AppData != "" {
		out = append(out, e.AppData)
	}
	if e.Home != "" {
		roaming := filepath.Join(e.Home, "AppData", "Roaming")
		if roaming != e.AppData {
			out = append(out, roaming)
		}
	}
	return out
}

// scanRoots are the parents searched by the bounded directory walk.
func (e Env) scanRoots() []string {
	var out []string
	if e.Home != "" {
		out = append(out,
			filepath.Join(e.Home, "Library", "Application Support"),
			filepath.Join(e.Home, ".config"),
		)
	}
	return append(out, e.appDataDirs()...)
}
