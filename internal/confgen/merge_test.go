package confgen

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/lkimju1/subsync/internal/sharelink"
	"gopkg.in/yaml.v3"
)

const baseConfig = `mixed-port: 7890
custom-key:
  nested: [1, 2]
proxies:
  - name: Old
    type: ss
proxy-groups:
  - name: Main
    type: select
    proxies: [DIRECT, OldGroup, StaleProxy]
  - name: OldGroup
    type: select
    proxies: [Main, REJECT]
rules:
  - MATCH,Main
`

func ssRecord(name string) sharelink.Record {
	return &sharelink.Shadowsocks{
		Base:     sharelink.Base{DisplayName: name, Server: "example.com", Port: 8388},
		Cipher:   "aes-256-gcm",
		Password: "password",
	}
}

type mergedView struct {
	Proxies []struct {
		Name   string `yaml:"name"`
		Type   string `yaml:"type"`
		Server string `yaml:"server"`
		Port   int    `yaml:"port"`
	} `yaml:"proxies"`
	Groups []struct {
		Name    string   `yaml:"name"`
		Proxies []string `yaml:"proxies"`
	} `yaml:"proxy-groups"`
	Custom map[string][]int `yaml:"custom-key"`
}

func decodeView(t *testing.T, b []byte) mergedView {
	t.Helper()
	var v mergedView
	if err := yaml.Unmarshal(b, &v); err != nil {
		t.Fatalf("unmarshal merged: %v\n%s", err, b)
	}
	return v
}

func topKeys(t *testing.T, b []byte) []string {
	t.Helper()
	var doc yaml.Node
	if err := yaml.Unmarshal(b, &doc); err != nil {
		t.Fatal(err)
	}
	var keys []string
	root := doc.Content[0]
	for i := 0; i < len(root.Content); i += 2 {
		keys = append(keys, root.Content[i].Value)
	}
	return keys
}

func TestMergeKeepsStructureAndAppends(t *testing.T) {
	out, err := Merge([]byte(baseConfig), []sharelink.Record{ssRecord("A"), ssRecord("B")}, MergeOptions{})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	v := decodeView(t, out)

	if len(v.Proxies) != 2 || v.Proxies[0].Name != "A" || v.Proxies[1].Name != "B" {
		t.Fatalf("proxies not replaced: %+v", v.Proxies)
	}
	if v.Proxies[0].Server != "example.com" || v.Proxies[0].Port != 8388 || v.Proxies[0].Type != "ss" {
		t.Fatalf("unexpected proxy fields: %+v", v.Proxies[0])
	}
	wantMain := []string{"DIRECT", "OldGroup", "StaleProxy", "A", "B"}
	if !reflect.DeepEqual(v.Groups[0].Proxies, wantMain) {
		t.Fatalf("Main members = %v, want %v", v.Groups[0].Proxies, wantMain)
	}
	wantMeta := []string{"Main", "REJECT"}
	if !reflect.DeepEqual(v.Groups[1].Proxies, wantMeta) {
		t.Fatalf("meta group changed: %v", v.Groups[1].Proxies)
	}
	if !reflect.DeepEqual(v.Custom["nested"], []int{1, 2}) {
		t.Fatalf("unknown key lost: %+v", v.Custom)
	}
	wantKeys := []string{"mixed-port", "custom-key", "proxies", "proxy-groups", "rules"}
	if got := topKeys(t, out); !reflect.DeepEqual(got, wantKeys) {
		t.Fatalf("key order = %v, want %v", got, wantKeys)
	}
}

func TestMergePruneStale(t *testing.T) {
	out, err := Merge([]byte(baseConfig), []sharelink.Record{ssRecord("A"), ssRecord("B")}, MergeOptions{PruneStale: true})
	if err != nil {
		t.Fatal(err)
	}
	v := decodeView(t, out)
	want := []string{"DIRECT", "OldGroup", "A", "B"}
	if !reflect.DeepEqual(v.Groups[0].Proxies, want) {
		t.Fatalf("Main members = %v, want %v", v.Groups[0].Proxies, want)
	}
}

func TestMergeIsIdempotent(t *testing.T) {
	records := []sharelink.Record{ssRecord("A"), ssRecord("B")}
	for _, opts := range []MergeOptions{{}, {PruneStale: true}} {
		once, err := Merge([]byte(baseConfig), records, opts)
		if err != nil {
			t.Fatal(err)
		}
		twice, err := Merge(once, records, opts)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(once, twice) {
			t.Fatalf("second merge differs (prune=%v):\n%s\n---\n%s", opts.PruneStale, once, twice)
		}
	}
}

func TestMergeDoesNotDuplicateCollidingNames(t *testing.T) {
	out, err := Merge([]byte(baseConfig), []sharelink.Record{ssRecord("OldGroup"), ssRecord("A"), ssRecord("DIRECT")}, MergeOptions{})
	if err != nil {
		t.Fatal(err)
	}
	v := decodeView(t, out)
	want := []string{"DIRECT", "OldGroup", "StaleProxy", "A"}
	if !reflect.DeepEqual(v.Groups[0].Proxies, want) {
		t.Fatalf("Main members = %v, want %v", v.Groups[0].Proxies, want)
	}
}

func TestMergeUnparsableBase(t *testing.T) {
	for _, base := range []string{"", "proxies: [unterminated", "just a scalar", "- a\n- b\n"} {
		out, err := Merge([]byte(base), []sharelink.Record{ssRecord("A")}, MergeOptions{})
		if err != nil {
			t.Fatalf("merge %q: %v", base, err)
		}
		v := decodeView(t, out)
		if len(v.Proxies) != 1 || v.Proxies[0].Name != "A" {
			t.Fatalf("base %q: unexpected proxies %+v", base, v.Proxies)
		}
		if got := topKeys(t, out); !reflect.DeepEqual(got, []string{"proxies"}) {
			t.Fatalf("base %q: keys = %v", base, got)
		}
	}
}

func TestMergeWithoutGroups(t *testing.T) {
	out, err := Merge([]byte("port: 7890\n"), []sharelink.Record{ssRecord("A")}, MergeOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if got := topKeys(t, out); !reflect.DeepEqual(got, []string{"port", "proxies"}) {
		t.Fatalf("keys = %v", got)
	}
}

func TestMergeAllowLAN(t *testing.T) {
	out, err := Merge([]byte("mixed-port: 7890\nallow-lan: false\n"), []sharelink.Record{ssRecord("A")}, MergeOptions{AllowLAN: true})
	if err != nil {
		t.Fatal(err)
	}
	var v struct {
		AllowLAN bool   `yaml:"allow-lan"`
		Bind     string `yaml:"bind-address"`
	}
	if err := yaml.Unmarshal(out, &v); err != nil {
		t.Fatal(err)
	}
	if !v.AllowLAN || v.Bind != "*" {
		t.Fatalf("unexpected lan settings: %+v", v)
	}
	want := []string{"mixed-port", "allow-lan", "proxies", "bind-address"}
	if got := topKeys(t, out); !reflect.DeepEqual(got, want) {
		t.Fatalf("keys = %v, want %v", got, want)
	}
}
