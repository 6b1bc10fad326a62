package validate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lkimju1/subsync/internal/sharelink"
)

func trojan(name, server string, port uint16) sharelink.Record {
	return &sharelink.Trojan{
		Base:     sharelink.Base{DisplayName: name, Server: server, Port: port},
		Password: "secret",
	}
}

func TestRecords(t *testing.T) {
	if err := Records([]sharelink.Record{trojan("a", "h", 443), trojan("b", "h", 443)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cases := map[string][]sharelink.Record{
		"duplicate": {trojan("a", "h", 443), trojan("a", "h2", 443)},
		"no server": {trojan("a", " ", 443)},
		"zero port": {trojan("a", "h", 0)},
		"no name":   {trojan("", "h", 1)},
	}
	for name, records := range cases {
		if err := Records(records); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestDocumentSuccess(t *testing.T) {
	doc := `proxies:
  - {name: A, type: ss, server: h, port: 1}
proxy-groups:
  - name: Main
    proxies: [DIRECT, Auto, A, Gone]
  - name: Auto
    proxies: [A]
`
	report, err := Document([]byte(doc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Proxies != 1 {
		t.Fatalf("proxies = %d", report.Proxies)
	}
	if len(report.Warnings) != 1 || !strings.Contains(report.Warnings[0], `"Gone"`) {
		t.Fatalf("warnings = %v", report.Warnings)
	}
}

func TestDocumentMalformedGroupsAreWarnings(t *testing.T) {
	doc := `proxies:
  - {name: A, type: ss, server: h, port: 1}
proxy-groups:
  - {type: select, proxies: [A]}
  - just-a-string
  - name: Main
    proxies: [A, Missing]
`
	report, err := Document([]byte(doc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{
		"proxy-groups[0] has no name",
		"proxy-groups[1] is not a mapping, left as is",
		`proxy group "Main" references unknown member "Missing"`,
	}
	if strings.Join(report.Warnings, "\n") != strings.Join(want, "\n") {
		t.Fatalf("warnings = %q", report.Warnings)
	}

	report, err = Document([]byte("proxies: []\nproxy-groups: {a: b}\n"))
	if err != nil || len(report.Warnings) != 1 {
		t.Fatalf("report = %+v, err = %v", report, err)
	}
}

func TestDocumentErrors(t *testing.T) {
	cases := map[string]string{
		"not mapping":   "- a\n",
		"no proxies":    "port: 1\n",
		"missing port":  "proxies:\n  - {name: A, type: ss, server: h}\n",
		"dup proxy":     "proxies:\n  - {name: A, type: ss, server: h, port: 1}\n  - {name: A, type: ss, server: h, port: 2}\n",
		"bad yaml":      "proxies: [",
	}
	for name, doc := range cases {
		if _, err := Document([]byte(doc)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestOutputPath(t *testing.T) {
	tmp := t.TempDir()
	out := filepath.Join(tmp, "nested", "config.yaml")
	if err := OutputPath(out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st, err := os.Stat(filepath.Dir(out)); err != nil || !st.IsDir() {
		t.Fatalf("parent not created: %v", err)
	}
	if err := OutputPath(tmp); err == nil {
		t.Fatal("expected directory error")
	}
}
