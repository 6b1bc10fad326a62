package sharelink

// DecodeTrojan parses trojan://password@host:port?sni=..#name links.
func DecodeTrojan(line string) (*Trojan, bool) {
	u, ok := parseStdURI(line, "trojan")
	if !ok {
		return nil, false
	}
	p := u.Params

	t := &Trojan{
		Base:           Base{DisplayName: u.Name, Server: u.Server, Port: u.Port},
		Password:       u.User,
		UDP:            boolParam(p, "udp"),
		SkipCertVerify: boolParam(p, "allowInsecure", "skip-cert-verify"),
		Transport:      transportFromParams(p),
	}
	t.SNI, _ = first(p, "sni", "peer")
	if alpn := p["alpn"]; alpn != "" {
		t.ALPN = SplitList(alpn)
	}
	return t, true
}
