package validate

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lkimju1/subsync/internal/confgen"
	"github.com/lkimju1/subsync/internal/sharelink"
	"github.com/lkimju1/subsync/internal/yamlnode"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

// Records checks decoded records before they are merged.
func Records(records []sharelink.Record) error {
	names := make(map[string]struct{}, len(records))
	for i, r := range records {
		idx := fmt.Sprintf("proxies[%d]", i)
		if strings.TrimSpace(r.Name()) == "" {
			return fmt.Errorf("%s.name is required", idx)
		}
		server, port := r.Address()
		if strings.TrimSpace(server) == "" {
			return fmt.Errorf("%s.server is required", idx)
		}
		if port == 0 {
			return fmt.Errorf("%s.port must be in 1-65535", idx)
		}
		if _, ok := names[r.Name()]; ok {
			return fmt.Errorf("duplicate proxy name: %s", r.Name())
		}
		names[r.Name()] = struct{}{}
	}
	return nil
}

// Report carries findings that do not block writing the document.
type Report struct {
	Proxies  int
	Warnings []string
}

// Document checks the structure of a synthesized config. Only the proxies
// list can fail the check. Group problems are warnings: members that are
// neither proxies, groups nor built-in targets may be served by proxy
// providers, and malformed groups are carried over from the base untouched.
func Document(b []byte) (Report, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return Report{}, fmt.Errorf("parse config: %w", err)
	}
	if len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return Report{}, fmt.Errorf("config top level must be a mapping")
	}
	root := doc.Content[0]

	known := make(map[string]struct{})
	proxies := yamlnode.Lookup(root, "proxies")
	if proxies == nil || proxies.Kind != yaml.SequenceNode {
		return Report{}, fmt.Errorf("proxies must be a list")
	}
	for i, p := range proxies.Content {
		idx := fmt.Sprintf("proxies[%d]", i)
		if p.Kind != yaml.MappingNode {
			return Report{}, fmt.Errorf("%s must be a mapping", idx)
		}
		for _, field := range []string{"name", "type", "server", "port"} {
			if v := yamlnode.Lookup(p, field); v == nil || v.Kind != yaml.ScalarNode || strings.TrimSpace(v.Value) == "" {
				return Report{}, fmt.Errorf("%s.%s is required", idx, field)
			}
		}
		name := yamlnode.Lookup(p, "name").Value
		if _, ok := known[name]; ok {
			return Report{}, fmt.Errorf("duplicate proxy name: %s", name)
		}
		known[name] = struct{}{}
	}
	report := Report{Proxies: len(proxies.Content)}

	groups := yamlnode.Lookup(root, "proxy-groups")
	if groups == nil {
		return report, nil
	}
	if groups.Kind != yaml.SequenceNode {
		report.Warnings = append(report.Warnings, "proxy-groups is not a list, left as is")
		return report, nil
	}
	named := make(map[*yaml.Node]string, len(groups.Content))
	for i, g := range groups.Content {
		if g.Kind != yaml.MappingNode {
			report.Warnings = append(report.Warnings, fmt.Sprintf("proxy-groups[%d] is not a mapping, left as is", i))
			continue
		}
		name := strings.TrimSpace(yamlnode.Scalar(g, "name"))
		if name == "" {
			report.Warnings = append(report.Warnings, fmt.Sprintf("proxy-groups[%d] has no name", i))
			continue
		}
		named[g] = name
		known[name] = struct{}{}
	}
	for _, g := range groups.Content {
		name, ok := named[g]
		if !ok {
			continue
		}
		members := yamlnode.Lookup(g, "proxies")
		if members == nil || members.Kind != yaml.SequenceNode {
			continue
		}
		for _, m := range members.Content {
			if _, ok := known[m.Value]; ok || lo.Contains(confgen.SpecialTargets, m.Value) {
				continue
			}
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("proxy group %q references unknown member %q", name, m.Value))
		}
	}
	return report, nil
}

// OutputPath ensures path can be written: it must not be a directory and its
// parent is created when missing.
func OutputPath(path string) error {
	if path == "" {
		return fmt.Errorf("output path is required")
	}
	if st, err := os.Stat(path); err == nil && st.IsDir() {
		return fmt.Errorf("output path points to directory: %s", path)
	}
	return os.MkdirAll(filepath.Dir(path), 0o755)
}
