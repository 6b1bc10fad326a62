package sharelink

import "strings"

// stdURI is the common shape of vless:// and trojan:// links:
// scheme://user@host:port[/path][?query][#fragment]
type stdURI struct {
	User   string
	Server string
	Port   uint16
	Name   string
	Params map[string]string
}

func parseStdURI(line, scheme string) (stdURI, bool) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(line), scheme+"://")
	if !ok {
		return stdURI{}, false
	}
	rest, frag, _ := strings.Cut(rest, "#")
	rest, query, _ := strings.Cut(rest, "?")

	user, hostpart, ok := splitUserHost(rest)
	if !ok {
		return stdURI{}, false
	}
	hostpart, _, _ = strings.Cut(hostpart, "/")
	server, port, ok := splitHostPort(hostpart)
	if !ok {
		return stdURI{}, false
	}
	user = percentDecode(user)
	if user == "" {
		return stdURI{}, false
	}
	return stdURI{
		User:   user,
		Server: server,
		Port:   port,
		Name:   defaultName(strings.TrimSpace(percentDecode(frag)), server, port),
		Params: parseQuery(query),
	}, true
}

// transportFromParams reads the ws/grpc options shared by vless and trojan.
func transportFromParams(params map[string]string) Transport {
	network, _ := first(params, "type", "network")
	service, _ := first(params, "serviceName", "service", "path")
	return buildTransport(network, params["path"], params["host"], service)
}

func boolParam(params map[string]string, keys ...string) bool {
	v, ok := first(params, keys...)
	if !ok {
		return false
	}
	b, _ := ParseBool(v)
	return b
}
