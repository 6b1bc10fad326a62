// Package profiles reads and updates the mihomo-party profile list
// (profile.yaml). Keys it does not know about are written back untouched.
package profiles

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/lkimju1/subsync/internal/yamlnode"
	"gopkg.in/yaml.v3"
)

var ErrProfileNotFound = errors.New("profile not found")

type Item struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	Type string `yaml:"type"`
	URL  string `yaml:"url,omitempty"`
	// Updated is a unix timestamp in milliseconds, zero when never updated.
	Updated int64 `yaml:"updated,omitempty"`
}

// UpdatedAt converts Updated to a time. ok is false when it was never set.
func (it Item) UpdatedAt() (time.Time, bool) {
	if it.Updated <= 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(it.Updated), true
}

type List struct {
	path string
	doc  *yaml.Node
}

func Load(path string) (*List, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile list: %w", err)
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("parse profile list: %w", err)
	}
	if len(doc.Content) == 0 {
		doc = yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{yamlnode.Mapping()}}
	}
	if doc.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("parse profile list: top level must be a mapping")
	}
	return &List{path: path, doc: &doc}, nil
}

func (l *List) Path() string { return l.path }

func (l *List) root() *yaml.Node { return l.doc.Content[0] }

// Current is the id of the active profile, if any.
func (l *List) Current() string {
	return yamlnode.Scalar(l.root(), "current")
}

// Items decodes the list entries. Malformed entries are skipped.
func (l *List) Items() []Item {
	seq := yamlnode.Lookup(l.root(), "items")
	if seq == nil || seq.Kind != yaml.SequenceNode {
		return nil
	}
	out := make([]Item, 0, len(seq.Content))
	for _, n := range seq.Content {
		var it Item
		if n.Kind != yaml.MappingNode || n.Decode(&it) != nil || it.ID == "" {
			continue
		}
		out = append(out, it)
	}
	return out
}

func (l *List) Find(id string) (Item, error) {
	for _, it := range l.Items() {
		if it.ID == id {
			return it, nil
		}
	}
	return Item{}, fmt.Errorf("%w: %s", ErrProfileNotFound, id)
}

// SetUpdated stamps the item's updated field with a millisecond timestamp.
func (l *List) SetUpdated(id string, ms int64) error {
	n := l.itemNode(id)
	if n == nil {
		return fmt.Errorf("%w: %s", ErrProfileNotFound, id)
	}
	yamlnode.Set(n, "updated", yamlnode.Int(ms))
	return nil
}

// Add appends a remote profile with a fresh id.
func (l *List) Add(name, url string) Item {
	it := Item{ID: uuid.NewString(), Name: name, Type: "remote", URL: url}
	var n yaml.Node
	// Item always encodes to a mapping.
	_ = n.Encode(it)
	seq := yamlnode.Lookup(l.root(), "items")
	if seq == nil || seq.Kind != yaml.SequenceNode {
		seq = yamlnode.Sequence()
		yamlnode.Set(l.root(), "items", seq)
	}
	seq.Content = append(seq.Content, &n)
	return it
}

// Save writes the list back atomically.
func (l *List) Save() error {
	out, err := yamlnode.Encode(l.doc)
	if err != nil {
		return fmt.Errorf("encode profile list: %w", err)
	}
	return WriteFileAtomic(l.path, out)
}

// ProfilePath is where mihomo-party keeps the body of profile id.
func ProfilePath(listPath, id string) string {
	return filepath.Join(filepath.Dir(listPath), "profiles", id+".yaml")
}

// WorkConfigPath is the generated runtime config next to the list.
func WorkConfigPath(listPath string) string {
	return filepath.Join(filepath.Dir(listPath), "work", "config.yaml")
}

// WriteFileAtomic writes through a temp file in the same directory.
func WriteFileAtomic(path string, content []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dir for %s: %w", path, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, content, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

func (l *List) itemNode(id string) *yaml.Node {
	seq := yamlnode.Lookup(l.root(), "items")
	if seq == nil || seq.Kind != yaml.SequenceNode {
		return nil
	}
	for _, n := range seq.Content {
		if n.Kind != yaml.MappingNode {
			continue
		}
		if v := yamlnode.Lookup(n, "id"); v != nil && v.Value == id {
			return n
		}
	}
	return nil
}
