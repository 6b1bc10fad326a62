package confgen

import (
	"fmt"

	"github.com/lkimju1/subsync/internal/sharelink"
	"github.com/lkimju1/subsync/internal/yamlnode"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

// SpecialTargets are built-in policy names that may appear in any group.
var SpecialTargets = []string{"DIRECT", "REJECT", "REJECT-DROP", "PASS", "GLOBAL"}

type MergeOptions struct {
	// PruneStale drops existing non-structural members from rebuilt groups
	// instead of keeping them ahead of the new proxies.
	PruneStale bool
	// AllowLAN opens the daemon's listeners to the local network.
	AllowLAN bool
}

// Merge installs records as the document's proxies and appends their names to
// every proxy group that already lists concrete proxies. An unparsable base is
// treated as an empty mapping.
func Merge(base []byte, records []sharelink.Record, opts MergeOptions) ([]byte, error) {
	doc := ParseDocument(base)
	MergeNode(doc, records, opts)
	return Encode(doc)
}

// ParseDocument parses base into a document node whose root is a mapping.
func ParseDocument(base []byte) *yaml.Node {
	var doc yaml.Node
	if err := yaml.Unmarshal(base, &doc); err == nil && yamlnode.Root(&doc) != nil {
		return &doc
	}
	return &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{yamlnode.Mapping()}}
}

// MergeNode is Merge over an already parsed document. doc is modified in place.
func MergeNode(doc *yaml.Node, records []sharelink.Record, opts MergeOptions) {
	root := yamlnode.Root(doc)
	if root == nil {
		root = yamlnode.Mapping()
		*doc = yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{root}}
	}

	proxies := yamlnode.Sequence()
	names := make([]string, 0, len(records))
	for _, r := range records {
		proxies.Content = append(proxies.Content, r.Node())
		names = append(names, r.Name())
	}
	yamlnode.Set(root, "proxies", proxies)
	if opts.AllowLAN {
		yamlnode.Set(root, "allow-lan", yamlnode.Bool(true))
		yamlnode.Set(root, "bind-address", yamlnode.String("*"))
	}

	groups := yamlnode.Lookup(root, "proxy-groups")
	if groups == nil || groups.Kind != yaml.SequenceNode {
		return
	}
	structural := groupNames(groups)
	for _, name := range SpecialTargets {
		structural[name] = struct{}{}
	}
	for _, group := range groups.Content {
		if group.Kind != yaml.MappingNode {
			continue
		}
		members := yamlnode.Lookup(group, "proxies")
		if members == nil || members.Kind != yaml.SequenceNode {
			continue
		}
		if !hasLeafMember(members, structural) {
			continue
		}
		members.Content = rebuildMembers(members.Content, structural, names, opts)
	}
}

// Encode renders doc with the two-space indentation daemons ship with.
func Encode(doc *yaml.Node) ([]byte, error) {
	out, err := yamlnode.Encode(doc)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return out, nil
}

func rebuildMembers(existing []*yaml.Node, structural map[string]struct{}, names []string, opts MergeOptions) []*yaml.Node {
	seen := make(map[string]struct{}, len(existing)+len(names))
	out := make([]*yaml.Node, 0, len(existing)+len(names))
	for _, m := range existing {
		if m.Kind != yaml.ScalarNode {
			if !opts.PruneStale {
				out = append(out, m)
			}
			continue
		}
		if _, ok := structural[m.Value]; !ok && opts.PruneStale {
			continue
		}
		if _, dup := seen[m.Value]; dup {
			continue
		}
		seen[m.Value] = struct{}{}
		out = append(out, m)
	}
	for _, name := range names {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, yamlnode.String(name))
	}
	return out
}

func hasLeafMember(members *yaml.Node, structural map[string]struct{}) bool {
	return lo.SomeBy(members.Content, func(m *yaml.Node) bool {
		if m.Kind != yaml.ScalarNode {
			return false
		}
		_, ok := structural[m.Value]
		return !ok
	})
}

func groupNames(groups *yaml.Node) map[string]struct{} {
	out := make(map[string]struct{}, len(groups.Content))
	for _, group := range groups.Content {
		if group.Kind != yaml.MappingNode {
			continue
		}
		if name := yamlnode.Lookup(group, "name"); name != nil && name.Kind == yaml.ScalarNode {
			out[name.Value] = struct{}{}
		}
	}
	return out
}
