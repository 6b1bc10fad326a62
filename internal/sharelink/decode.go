package sharelink

import (
	"encoding/base64"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// Decoder turns one share link into a record. ok is false when the line is
// not this decoder's scheme or violates its grammar.
type Decoder struct {
	Scheme string
	Decode func(line string) (Record, bool)
}

// Decoders is the attempt order used by Decode. The first success wins.
var Decoders = []Decoder{
	{Scheme: "ss", Decode: func(line string) (Record, bool) { return asRecord(DecodeShadowsocks(line)) }},
	{Scheme: "vmess", Decode: func(line string) (Record, bool) { return asRecord(DecodeVMess(line)) }},
	{Scheme: "vless", Decode: func(line string) (Record, bool) { return asRecord(DecodeVLess(line)) }},
	{Scheme: "trojan", Decode: func(line string) (Record, bool) { return asRecord(DecodeTrojan(line)) }},
}

// Decode runs the decoder chain on a single line.
func Decode(line string) (Record, bool) {
	line = strings.TrimSpace(line)
	for _, d := range Decoders {
		if r, ok := d.Decode(line); ok {
			return r, true
		}
	}
	return nil, false
}

// DecodeAll decodes every line it can and silently drops the rest.
func DecodeAll(lines []string) []Record {
	out := make([]Record, 0, len(lines))
	for _, line := range lines {
		if r, ok := Decode(line); ok {
			out = append(out, r)
		}
	}
	return out
}

// ParseBool accepts 1/true/yes/on and 0/false/no/off in any case. ok is false
// for anything else.
func ParseBool(s string) (value bool, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true, true
	case "0", "false", "no", "off":
		return false, true
	default:
		return false, false
	}
}

// DecodeBase64 accepts standard or URL-safe alphabets, with or without padding,
// and ignores embedded whitespace.
func DecodeBase64(s string) ([]byte, bool) {
	var b strings.Builder
	b.Grow(len(s) + 3)
	for _, r := range s {
		switch r {
		case ' ', '\t', '\r', '\n', '\v', '\f':
			continue
		case '-':
			b.WriteByte('+')
		case '_':
			b.WriteByte('/')
		default:
			b.WriteRune(r)
		}
	}
	for b.Len()%4 != 0 {
		b.WriteByte('=')
	}
	out, err := base64.StdEncoding.DecodeString(b.String())
	if err != nil {
		return nil, false
	}
	return out, true
}

func asRecord[T Record](r T, ok bool) (Record, bool) {
	if !ok {
		return nil, false
	}
	return r, true
}

// percentDecode decodes %XX escapes and leaves malformed ones untouched.
func percentDecode(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) {
			hi, okHi := unhex(s[i+1])
			lo, okLo := unhex(s[i+2])
			if okHi && okLo {
				out = append(out, hi<<4|lo)
				i += 2
				continue
			}
		}
		out = append(out, s[i])
	}
	return strings.ToValidUTF8(string(out), "\uFFFD")
}

func unhex(c byte) (byte, bool) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

// parseQuery splits a raw query on '&' only, so unescaped ';' inside values
// (common in SIP002 plugin strings) survive. Later duplicates win.
func parseQuery(raw string) map[string]string {
	params := make(map[string]string)
	for _, part := range strings.Split(raw, "&") {
		if part == "" {
			continue
		}
		k, v, _ := strings.Cut(part, "=")
		params[queryUnescape(k)] = queryUnescape(v)
	}
	return params
}

func queryUnescape(s string) string {
	if v, err := url.QueryUnescape(s); err == nil {
		return v
	}
	return percentDecode(strings.ReplaceAll(s, "+", " "))
}

// first returns the value of the first key present, in the given order.
func first(params map[string]string, keys ...string) (string, bool) {
	for _, k := range keys {
		if v, ok := params[k]; ok {
			return v, true
		}
	}
	return "", false
}

func splitHostPort(hostport string) (string, uint16, bool) {
	host, portStr, err := net.SplitHostPort(strings.TrimSpace(hostport))
	if err != nil || host == "" {
		return "", 0, false
	}
	port, ok := parsePort(portStr)
	if !ok {
		return "", 0, false
	}
	return host, port, true
}

func parsePort(s string) (uint16, bool) {
	p, err := strconv.ParseUint(strings.TrimSpace(s), 10, 16)
	if err != nil || p == 0 {
		return 0, false
	}
	return uint16(p), true
}

// SplitList splits a comma separated value, dropping blank items. It
// returns nil when nothing is left.
func SplitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func defaultName(name, server string, port uint16) string {
	if name != "" {
		return name
	}
	return net.JoinHostPort(server, strconv.Itoa(int(port)))
}
