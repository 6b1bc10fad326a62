// Package sysproxy points the operating system proxy at the daemon's local
// listener.
package sysproxy

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const RequiredBypassList = "localhost;127.*;10.*;172.16.*;172.17.*;172.18.*;172.19.*;172.20.*;172.21.*;172.22.*;172.23.*;172.24.*;172.25.*;172.26.*;172.27.*;172.28.*;172.29.*;172.30.*;172.31.*;192.168.*;127.0.0.1"

type InboundEndpoint struct {
	Protocol string
	Host     string
	Port     int
}

func (e InboundEndpoint) String() string {
	return e.Host + ":" + strconv.Itoa(e.Port)
}

type listenConfig struct {
	MixedPort   int    `yaml:"mixed-port"`
	Port        int    `yaml:"port"`
	SocksPort   int    `yaml:"socks-port"`
	BindAddress string `yaml:"bind-address"`
}

// DetectProxyEndpoint reads the listener ports from a daemon config. The
// mixed port is preferred, then the http port, then the socks port.
func DetectProxyEndpoint(configPath string) (*InboundEndpoint, error) {
	b, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read daemon config: %w", err)
	}
	var cfg listenConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse daemon config: %w", err)
	}
	host := normalizeHost(cfg.BindAddress)
	for _, in := range []InboundEndpoint{
		{Protocol: "mixed", Port: cfg.MixedPort},
		{Protocol: "http", Port: cfg.Port},
		{Protocol: "socks", Port: cfg.SocksPort},
	} {
		if in.Port > 0 && in.Port <= 65535 {
			in.Host = host
			return &in, nil
		}
	}
	return nil, fmt.Errorf("daemon config has no listener port")
}

func normalizeHost(host string) string {
	host = strings.TrimSpace(host)
	switch host {
	case "", "*", "0.0.0.0", "::", "::0":
		return "127.0.0.1"
	default:
		return host
	}
}

func mergeBypass(existing, required string) string {
	seen := make(map[string]struct{})
	out := make([]string, 0)

	appendUnique := func(list string) {
		for _, item := range splitBypass(list) {
			key := strings.ToLower(item)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, item)
		}
	}
	appendUnique(existing)
	appendUnique(required)
	return strings.Join(out, ";")
}

func splitBypass(v string) []string {
	raw := strings.FieldsFunc(v, func(r rune) bool { return r == ';' || r == ',' })
	out := make([]string, 0, len(raw))
	for _, part := range raw {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
