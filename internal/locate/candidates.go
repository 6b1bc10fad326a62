package locate

import "path/filepath"

func configCandidates(env Env, hinted bool) []string {
	var out []string
	if env.Home != "" {
		h := env.Home
		out = append(out,
			filepath.Join(h, ".config", "clash", "config.yaml"),
			filepath.Join(h, ".config", "mihomo", "config.yaml"),
			filepath.Join(h, ".config", "clash.meta", "config.yaml"),
			filepath.Join(h, ".config", "mihomo-party", "work", "config.yaml"),
			filepath.Join(h, "Library", "Application Support", "mihomo-party", "work", "config.yaml"),
			filepath.Join(h, "Library", "Application Support", "Clash Verge", "mihomo-party", "work", "config.yaml"),
		)
	}
	for _, d := range env.appDataDirs() {
		out = append(out,
			filepath.Join(d, "mihomo-party", "work", "config.yaml"),
			filepath.Join(d, "Clash Verge", "mihomo-party", "work", "config.yaml"),
			filepath.Join(d, "clash", "config.yaml"),
		)
	}
	if !hinted {
		for _, d := range env.SystemDirs {
			out = append(out, filepath.Join(d, "config.yaml"))
		}
	}
	return out
}

func profileListCandidates(env Env, _ bool) []string {
	var out []string
	if env.Home != "" {
		h := env.Home
		out = append(out,
			filepath.Join(h, "Library", "Application Support", "mihomo-party", "profile.yaml"),
			filepath.Join(h, "Library", "Application Support", "Clash Verge", "mihomo-party", "profile.yaml"),
			filepath.Join(h, ".config", "mihomo-party", "profile.yaml"),
			filepath.Join(h, ".config", "clash-verge", "mihomo-party", "profile.yaml"),
		)
	}
	for _, d := range env.appDataDirs() {
		out = append(out,
			filepath.Join(d, "mihomo-party", "profile.yaml"),
			filepath.Join(d, "Clash Verge", "mihomo-party", "profile.yaml"),
		)
	}
	return out
}
