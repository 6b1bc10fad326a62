package sharelink

import (
	"fmt"
	"strings"
)

// UniqueNames renames records whose display name was already used earlier in
// the batch to "name-2", "name-3", ... Records with unique names are returned
// unchanged.
func UniqueNames(records []Record) []Record {
	used := make(map[string]struct{}, len(records))
	for _, r := range records {
		used[r.Name()] = struct{}{}
	}
	seen := make(map[string]int, len(records))
	out := make([]Record, 0, len(records))
	for _, r := range records {
		name := r.Name()
		count := seen[name]
		seen[name] = count + 1
		if count == 0 {
			out = append(out, r)
			continue
		}
		out = append(out, Rename(r, nextFreeName(used, name, count+1)))
	}
	return out
}

func nextFreeName(used map[string]struct{}, base string, n int) string {
	base = strings.TrimSpace(base)
	for {
		candidate := fmt.Sprintf("%s-%d", base, n)
		if _, taken := used[candidate]; !taken {
			used[candidate] = struct{}{}
			return candidate
		}
		n++
	}
}
