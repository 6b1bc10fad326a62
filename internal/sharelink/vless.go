package sharelink

// DecodeVLess parses vless://uuid@host:port?type=..&security=..#name links.
// When security is "reality" the reality options are read from pbk/sid/spx/fp
// or their long aliases.
func DecodeVLess(line string) (*VLess, bool) {
	u, ok := parseStdURI(line, "vless")
	if !ok {
		return nil, false
	}
	p := u.Params

	v := &VLess{
		Base:       Base{DisplayName: u.Name, Server: u.Server, Port: u.Port},
		UUID:       u.User,
		UDP:        boolParam(p, "udp"),
		Flow:       p["flow"],
		Encryption: p["encryption"],
		Security:   p["security"],
		Transport:  transportFromParams(p),
	}
	if v.Security == "" {
		v.Security = "none"
	}
	v.ServerName, _ = first(p, "sni", "peer")
	if alpn := p["alpn"]; alpn != "" {
		v.ALPN = SplitList(alpn)
	}
	if v.Security == "reality" {
		r := &RealityOptions{Fingerprint: p["fp"]}
		r.PublicKey, _ = first(p, "pbk", "public-key")
		r.ShortID, _ = first(p, "sid", "short-id")
		r.SpiderX, _ = first(p, "spx", "spider-x")
		v.Reality = r
	}
	return v, true
}
