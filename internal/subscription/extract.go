package subscription

import (
	"strings"
	"unicode/utf8"

	"github.com/lkimju1/subsync/internal/sharelink"
	"gopkg.in/yaml.v3"
)

// FullConfigKeys are the top-level keys that mark a payload as a complete
// daemon configuration rather than a list of share links.
var FullConfigKeys = []string{"proxies", "proxy-providers", "proxy-groups", "rules", "rule-providers"}

// ExtractLines returns the candidate share links contained in a payload.
// Payloads without any "://" are tried as base64 first. Only trimmed,
// non-empty lines that carry a scheme separator are returned.
func ExtractLines(payload []byte) []string {
	raw := strings.TrimSpace(strings.ToValidUTF8(string(payload), "\uFFFD"))
	raw = strings.TrimPrefix(raw, "\uFEFF")

	text := raw
	if !strings.Contains(raw, "://") {
		if decoded, ok := sharelink.DecodeBase64(raw); ok && utf8.Valid(decoded) && strings.Contains(string(decoded), "://") {
			text = string(decoded)
		}
	}

	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || !strings.Contains(line, "://") {
			continue
		}
		out = append(out, line)
	}
	return out
}

// LooksLikeFullConfig reports whether payload parses as a YAML mapping that
// carries any of FullConfigKeys. Malformed YAML is not a full config.
func LooksLikeFullConfig(payload []byte) bool {
	var doc yaml.Node
	if err := yaml.Unmarshal(payload, &doc); err != nil {
		return false
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return false
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return false
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		for _, key := range FullConfigKeys {
			if root.Content[i].Value == key {
				return true
			}
		}
	}
	return false
}

// Parse extracts and decodes every supported link in payload. Undecodable
// lines are dropped.
func Parse(payload []byte) []sharelink.Record {
	return sharelink.DecodeAll(ExtractLines(payload))
}
