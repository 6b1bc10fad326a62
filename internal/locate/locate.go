// Package locate finds the daemon configuration file and the mihomo-party
// profile list across the install layouts used on macOS, Linux and Windows.
package locate

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lkimju1/subsync/internal/yamlnode"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

// MaxScanDepth bounds the directory walk below each scan root.
const MaxScanDepth = 3

// Found is a discovered file and the modification time used to rank it.
type Found struct {
	Path    string
	ModTime time.Time
}

var (
	skipDirs    = []string{".git", "node_modules", "cache", "caches", "tmp", "temp"}
	markerDirs  = []string{"mihomo-party", "clash-party", "clash-verge", "mihomo", "clash"}
	toolNames   = []string{"clash", "mihomo", "verge", "party"}
	configMarks = []string{"proxies", "proxy-providers", "proxy-groups", "external-controller", "mixed-port", "socks-port", "port"}
)

// target describes one kind of file to discover.
type target struct {
	names []string
	// hintFile accepts any file hint as is, not only the expected names.
	hintFile bool
	// inside lists paths probed relative to an env, hint or marker directory.
	inside    []string
	wellKnown func(Env, bool) []string
	accept    func(path string) bool
	// scanFilter is applied to walk results before accept.
	scanFilter func(path string) bool
}

var configTarget = target{
	names:      []string{"config.yaml", "config.yml"},
	hintFile:   true,
	inside:     []string{"config.yaml", "config.yml", filepath.Join("work", "config.yaml")},
	wellKnown:  configCandidates,
	accept:     LooksLikeDaemonConfig,
	scanFilter: mentionsTool,
}

var profileListTarget = target{
	names:     []string{"profile.yaml"},
	inside:    []string{"profile.yaml"},
	wellKnown: profileListCandidates,
	accept:    parsesAsYAML,
}

// Config locates the daemon configuration file. hint may be a file or a
// directory and is ignored when empty. Absence is not an error.
func Config(hint string, env Env) (Found, bool) {
	if env.ConfigPath != "" {
		if f, ok := fromOverride(env.ConfigPath, configTarget); ok {
			return f, true
		}
	}
	if env.PartyDir != "" {
		if f, ok := statFile(filepath.Join(env.PartyDir, "work", "config.yaml")); ok {
			return f, true
		}
	}
	return discover(hint, env, configTarget)
}

// ProfileList locates mihomo-party's profile.yaml. The hint is typically the
// daemon config path, whose install directory usually holds the list.
func ProfileList(hint string, env Env) (Found, bool) {
	if env.PartyDir != "" {
		if f, ok := fromOverride(env.PartyDir, profileListTarget); ok {
			return f, true
		}
	}
	return discover(hint, env, profileListTarget)
}

func discover(hint string, env Env, t target) (Found, bool) {
	if hint != "" {
		if f, ok := fromHint(hint, t); ok {
			return f, true
		}
	}
	for _, p := range t.wellKnown(env, hint != "") {
		if f, ok := statFile(p); ok && t.accept(p) {
			return f, true
		}
	}
	var found []Found
	for _, root := range env.scanRoots() {
		found = append(found, scan(root, t, true)...)
	}
	return newest(found)
}

// fromOverride resolves an environment override: a file is used as is, a
// directory is probed for the expected names and then walked.
func fromOverride(path string, t target) (Found, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return Found{}, false
	}
	if !info.IsDir() {
		return Found{Path: absPath(path), ModTime: info.ModTime()}, true
	}
	if f, ok := probeInside(path, t); ok {
		return f, true
	}
	return newest(scan(path, t, false))
}

func fromHint(hint string, t target) (Found, bool) {
	info, err := os.Stat(hint)
	if err != nil {
		return Found{}, false
	}
	dir := hint
	if !info.IsDir() {
		if t.hintFile || lo.Contains(t.names, filepath.Base(hint)) {
			return Found{Path: absPath(hint), ModTime: info.ModTime()}, true
		}
		dir = filepath.Dir(hint)
	}
	if f, ok := probeInside(dir, t); ok {
		return f, true
	}
	for anc := filepath.Dir(absPath(dir)); ; anc = filepath.Dir(anc) {
		if lo.Contains(markerDirs, strings.ToLower(filepath.Base(anc))) {
			if f, ok := probeInside(anc, t); ok {
				return f, true
			}
		}
		if filepath.Dir(anc) == anc {
			break
		}
	}
	if info.IsDir() {
		return newest(scan(hint, t, false))
	}
	return Found{}, false
}

func probeInside(dir string, t target) (Found, bool) {
	for _, rel := range t.inside {
		p := filepath.Join(dir, rel)
		if f, ok := statFile(p); ok && t.accept(p) {
			return f, true
		}
	}
	return Found{}, false
}

// scan walks root to MaxScanDepth in lexical order and returns every
// accepted candidate. filtered enables the path-name heuristic.
func scan(root string, t target, filtered bool) []Found {
	root = filepath.Clean(root)
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return nil
	}
	rootDepth := strings.Count(root, string(filepath.Separator))
	var out []Found
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() && path != root {
				return fs.SkipDir
			}
			return nil
		}
		depth := strings.Count(path, string(filepath.Separator)) - rootDepth
		if d.IsDir() {
			if path == root {
				return nil
			}
			if depth > MaxScanDepth || lo.Contains(skipDirs, strings.ToLower(d.Name())) {
				return fs.SkipDir
			}
			return nil
		}
		if !lo.Contains(t.names, d.Name()) {
			return nil
		}
		if filtered && t.scanFilter != nil && !t.scanFilter(path) {
			return nil
		}
		if f, ok := statFile(path); ok && t.accept(path) {
			out = append(out, f)
		}
		return nil
	})
	return out
}

// newest picks the latest modification time. Ties keep the earlier entry.
func newest(found []Found) (Found, bool) {
	if len(found) == 0 {
		return Found{}, false
	}
	best := found[0]
	for _, f := range found[1:] {
		if f.ModTime.After(best.ModTime) {
			best = f
		}
	}
	return best, true
}

func statFile(path string) (Found, bool) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return Found{}, false
	}
	return Found{Path: absPath(path), ModTime: info.ModTime()}, true
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}

// LooksLikeDaemonConfig reports whether path parses as a YAML mapping with at
// least one daemon-specific top-level key.
func LooksLikeDaemonConfig(path string) bool {
	root, ok := topLevel(path)
	if !ok {
		return false
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		if lo.Contains(configMarks, root.Content[i].Value) {
			return true
		}
	}
	return false
}

func parsesAsYAML(path string) bool {
	b, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	var doc yaml.Node
	return yaml.Unmarshal(b, &doc) == nil
}

func topLevel(path string) (*yaml.Node, bool) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	return yamlnode.ParseRoot(b)
}

func mentionsTool(path string) bool {
	lower := strings.ToLower(path)
	return lo.SomeBy(toolNames, func(n string) bool { return strings.Contains(lower, n) })
}
