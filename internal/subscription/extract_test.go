package subscription

import (
	"encoding/base64"
	"strings"
	"testing"
)

const (
	ssLine     = "ss://YWVzLTI1Ni1nY206cGFzc3dvcmQ=@example.com:8388#My%20Node"
	trojanLine = "trojan://pw@t.example:443#T"
)

func TestExtractLinesPlain(t *testing.T) {
	payload := "\r\n  " + ssLine + "\r\n\r\n" + trojanLine + "  \n"
	lines := ExtractLines([]byte(payload))
	if len(lines) != 2 || lines[0] != ssLine || lines[1] != trojanLine {
		t.Fatalf("unexpected lines: %#v", lines)
	}
}

func TestExtractLinesBase64(t *testing.T) {
	body := ssLine + "\n" + trojanLine + "\n"
	for name, enc := range map[string]*base64.Encoding{
		"std":     base64.StdEncoding,
		"url-raw": base64.RawURLEncoding,
	} {
		encoded := enc.EncodeToString([]byte(body))
		// Providers often wrap the blob at 76 columns.
		wrapped := strings.Join(chunk(encoded, 76), "\n")
		lines := ExtractLines([]byte(wrapped))
		if len(lines) != 2 || lines[1] != trojanLine {
			t.Fatalf("%s: unexpected lines: %#v", name, lines)
		}
	}
}

func TestExtractLinesGarbage(t *testing.T) {
	for _, payload := range [][]byte{
		[]byte("hello world, nothing to see"),
		{0xff, 0xfe, 0x00, 0x12, 0x80},
		[]byte(base64.StdEncoding.EncodeToString([]byte("no links here"))),
		nil,
	} {
		if lines := ExtractLines(payload); len(lines) != 0 {
			t.Fatalf("expected no lines for %q, got %#v", payload, lines)
		}
	}
}

func TestLooksLikeFullConfig(t *testing.T) {
	cases := []struct {
		name    string
		payload string
		want    bool
	}{
		{"rule-providers only", "rule-providers:\n  ads: {type: http}\n# " + ssLine + "\n", true},
		{"proxies", "mixed-port: 7890\nproxies: []\n", true},
		{"plain settings", "mixed-port: 7890\nmode: rule\n", false},
		{"link list", ssLine + "\n" + trojanLine + "\n", false},
		{"malformed", "proxies: [unclosed\n", false},
		{"sequence", "- proxies\n- rules\n", false},
		{"empty", "", false},
	}
	for _, tc := range cases {
		if got := LooksLikeFullConfig([]byte(tc.payload)); got != tc.want {
			t.Fatalf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestParseDropsUnsupported(t *testing.T) {
	payload := strings.Join([]string{ssLine, "hysteria2://x@h:1", trojanLine, "vless://@bad:1"}, "\n")
	records := Parse([]byte(payload))
	if len(records) != 2 {
		t.Fatalf("len=%d, want 2", len(records))
	}
	if records[0].Name() != "My Node" || records[1].Name() != "T" {
		t.Fatalf("unexpected names: %q %q", records[0].Name(), records[1].Name())
	}
}

func chunk(s string, n int) []string {
	var out []string
	for len(s) > n {
		out = append(out, s[:n])
		s = s[n:]
	}
	return append(out, s)
}
