package confgen

import (
	"fmt"
	"sort"

	"github.com/lkimju1/subsync/internal/yamlnode"
	"gopkg.in/yaml.v3"
)

// Provider is one entry of the top-level proxy-providers mapping.
type Provider struct {
	Name string
	Type string
	URL  string
	Path string
}

// Providers lists proxy-providers sorted by name. A document without the key
// yields an empty list.
func Providers(base []byte) ([]Provider, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(base, &doc); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	section := yamlnode.Lookup(yamlnode.Root(&doc), "proxy-providers")
	if section == nil || section.Kind != yaml.MappingNode {
		return nil, nil
	}
	out := make([]Provider, 0, len(section.Content)/2)
	for i := 0; i+1 < len(section.Content); i += 2 {
		p := Provider{Name: section.Content[i].Value}
		if body := section.Content[i+1]; body.Kind == yaml.MappingNode {
			p.Type = yamlnode.Scalar(body, "type")
			p.URL = yamlnode.Scalar(body, "url")
			p.Path = yamlnode.Scalar(body, "path")
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// CountProxies returns the length of the top-level proxies sequence and
// whether the document has one at all.
func CountProxies(base []byte) (int, bool) {
	root, ok := yamlnode.ParseRoot(base)
	if !ok {
		return 0, false
	}
	proxies := yamlnode.Lookup(root, "proxies")
	if proxies == nil || proxies.Kind != yaml.SequenceNode {
		return 0, false
	}
	return len(proxies.Content), true
}
