package main

import (
	"fmt"
	"strings"

	"github.com/lkimju1/subsync/internal/applog"
	"github.com/lkimju1/subsync/internal/config"
	"github.com/lkimju1/subsync/internal/controller"
	"github.com/lkimju1/subsync/internal/locate"
	"github.com/urfave/cli/v2"
)

// session is the state every command starts from.
type session struct {
	confDir      string
	settingsPath string
	settings     *config.Settings
	env          locate.Env
	logger       *applog.Logger
}

func openSession(c *cli.Context) (*session, error) {
	confDir := strings.TrimSpace(c.String("conf-dir"))
	settingsPath := config.Path(confDir)
	settings, err := config.Load(settingsPath)
	if err != nil {
		return nil, err
	}
	level := c.String("log-level")
	if level == "" {
		level = settings.LogLevel
	}
	logger, err := applog.New(confDir, level)
	if err != nil {
		return nil, err
	}
	s := &session{
		confDir:      confDir,
		settingsPath: settingsPath,
		settings:     settings,
		env:          locate.EnvFromOS(),
		logger:       logger,
	}
	apiURL, secret := strings.TrimSpace(c.String("api-url")), c.String("secret")
	if apiURL != "" || secret != "" {
		settings.MergeCLI(apiURL, secret)
		if err := s.saveSettings(); err != nil {
			return nil, err
		}
	}
	logger.Printf("command=%s conf_dir=%s", c.Command.Name, confDir)
	return s, nil
}

func (s *session) close() {
	_ = s.logger.Close()
}

func (s *session) saveSettings() error {
	return config.Save(s.settingsPath, s.settings)
}

// daemonConfig resolves the daemon config. The --config flag wins over the
// cached path. An unpinned discovery result is cached for the next run.
func (s *session) daemonConfig(c *cli.Context) (locate.Found, bool) {
	hint := strings.TrimSpace(c.String("config"))
	if hint == "" {
		hint = s.settings.ClashConfigPath
	}
	found, ok := locate.Config(hint, s.env)
	if !ok {
		s.logger.Printf("daemon config not found (hint=%q)", hint)
		return locate.Found{}, false
	}
	if !s.env.Pinned() && found.Path != s.settings.ClashConfigPath {
		s.settings.ClashConfigPath = found.Path
		if err := s.saveSettings(); err != nil {
			s.logger.Printf("cache config path failed: %v", err)
		}
	}
	return found, true
}

func (s *session) profileList(c *cli.Context) (string, error) {
	if p := strings.TrimSpace(c.String("list")); p != "" {
		return p, nil
	}
	hint := ""
	if found, ok := s.daemonConfig(c); ok {
		hint = found.Path
	}
	found, ok := locate.ProfileList(hint, s.env)
	if !ok {
		return "", fmt.Errorf("mihomo-party profile list not found, pass --list or set CLASH_PARTY_DIR")
	}
	return found.Path, nil
}

func (s *session) controller() *controller.Client {
	return controller.New(s.settings.APIURL, s.settings.Secret)
}

// outputPaths fills base and out from flags and discovery.
func (s *session) outputPaths(c *cli.Context) (base, out string, err error) {
	base = strings.TrimSpace(c.String("base"))
	if base == "" {
		if found, ok := s.daemonConfig(c); ok {
			base = found.Path
		}
	}
	out = strings.TrimSpace(c.String("out"))
	if out == "" {
		out = base
	}
	if out == "" {
		return "", "", fmt.Errorf("no daemon config found, pass --out or --config")
	}
	return base, out, nil
}
