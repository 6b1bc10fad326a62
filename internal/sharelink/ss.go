package sharelink

import (
	"strings"
	"unicode/utf8"
)

// DecodeShadowsocks parses SIP002 links (ss://userinfo@host:port/?plugin=...#name)
// and the legacy form where "method:password@host:port" is base64 encoded as a whole.
// userinfo itself may be literal "method:password" or its base64 encoding.
func DecodeShadowsocks(line string) (*Shadowsocks, bool) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(line), "ss://")
	if !ok || rest == "" {
		return nil, false
	}

	rest, frag, _ := strings.Cut(rest, "#")
	name := strings.TrimSpace(percentDecode(frag))

	var plugin string
	var pluginOpts []string
	rest, query, hasQuery := strings.Cut(rest, "?")
	if hasQuery {
		if v, ok := parseQuery(query)["plugin"]; ok {
			segs := strings.Split(v, ";")
			plugin = strings.TrimSpace(segs[0])
			if len(segs) > 1 {
				pluginOpts = segs[1:]
			}
		}
	}
	rest = strings.TrimSuffix(rest, "/")

	userinfo, hostport, ok := splitUserHost(rest)
	if !ok {
		decoded, ok := DecodeBase64(rest)
		if !ok || !utf8.Valid(decoded) {
			return nil, false
		}
		userinfo, hostport, ok = splitUserHost(string(decoded))
		if !ok {
			return nil, false
		}
	}

	method, password, ok := decodeUserinfo(userinfo)
	if !ok {
		return nil, false
	}
	server, port, ok := splitHostPort(hostport)
	if !ok {
		return nil, false
	}

	return &Shadowsocks{
		Base: Base{
			DisplayName: defaultName(name, server, port),
			Server:      server,
			Port:        port,
		},
		Cipher:     method,
		Password:   password,
		Plugin:     plugin,
		PluginOpts: pluginOpts,
	}, true
}

// splitUserHost splits on the last '@' so passwords containing '@' survive.
func splitUserHost(s string) (string, string, bool) {
	at := strings.LastIndex(s, "@")
	if at <= 0 || at == len(s)-1 {
		return "", "", false
	}
	return s[:at], s[at+1:], true
}

func decodeUserinfo(userinfo string) (string, string, bool) {
	plain := percentDecode(userinfo)
	if !strings.Contains(plain, ":") {
		decoded, ok := DecodeBase64(plain)
		if !ok || !utf8.Valid(decoded) {
			return "", "", false
		}
		plain = string(decoded)
	}
	method, password, ok := strings.Cut(plain, ":")
	if !ok {
		return "", "", false
	}
	method = strings.TrimSpace(method)
	if method == "" || password == "" {
		return "", "", false
	}
	return method, password, true
}
