package v2raynimport

import (
	"database/sql"
	"net"
	"strconv"
	"strings"

	"github.com/lkimju1/subsync/internal/sharelink"
)

func toRecord(r profileRow) (sharelink.Record, bool) {
	server := str(r.Address)
	if server == "" || !r.Port.Valid || r.Port.Int64 <= 0 || r.Port.Int64 > 65535 {
		return nil, false
	}
	port := uint16(r.Port.Int64)
	base := sharelink.Base{DisplayName: str(r.Remarks), Server: server, Port: port}
	if base.DisplayName == "" {
		base.DisplayName = net.JoinHostPort(server, strconv.Itoa(int(port)))
	}
	secret := str(r.ID)
	if secret == "" {
		return nil, false
	}
	tls := str(r.StreamSecurity)
	alpn := sharelink.SplitList(str(r.Alpn))

	switch r.ConfigType {
	case configTypeShadowsocks:
		method := str(r.Security)
		if method == "" {
			return nil, false
		}
		return &sharelink.Shadowsocks{Base: base, Cipher: method, Password: secret}, true

	case configTypeVMess:
		v := &sharelink.VMess{
			Base:      base,
			UUID:      secret,
			Cipher:    str(r.Security),
			TLS:       tls != "" && tls != "none",
			ALPN:      alpn,
			Transport: transport(r),
		}
		if v.Cipher == "" {
			v.Cipher = "auto"
		}
		if r.AlterID.Valid && r.AlterID.Int64 >= 0 && r.AlterID.Int64 <= 65535 {
			aid := uint16(r.AlterID.Int64)
			v.AlterID = &aid
		}
		if v.TLS {
			v.ServerName = str(r.Sni)
		}
		return v, true

	case configTypeVLess:
		v := &sharelink.VLess{
			Base:       base,
			UUID:       secret,
			Flow:       str(r.Flow),
			Encryption: str(r.Security),
			Security:   tls,
			ServerName: str(r.Sni),
			ALPN:       alpn,
			Transport:  transport(r),
		}
		if v.Security == "" {
			v.Security = "none"
		}
		if v.Security == "reality" {
			v.Reality = &sharelink.RealityOptions{
				PublicKey:   str(r.PublicKey),
				ShortID:     str(r.ShortID),
				SpiderX:     str(r.SpiderX),
				Fingerprint: str(r.Fingerprint),
			}
		}
		return v, true

	case configTypeTrojan:
		insecure, _ := sharelink.ParseBool(str(r.AllowInsecure))
		return &sharelink.Trojan{
			Base:           base,
			Password:       secret,
			SkipCertVerify: insecure,
			SNI:            str(r.Sni),
			ALPN:           alpn,
			Transport:      transport(r),
		}, true
	}
	return nil, false
}

// transport maps v2rayN's stream fields. For grpc the service name lives in Path.
func transport(r profileRow) sharelink.Transport {
	t := sharelink.Transport{Network: str(r.Network)}
	switch t.Network {
	case "tcp":
		t.Network = ""
	case "ws":
		t.WS = &sharelink.WSOptions{Path: str(r.Path), Host: str(r.RequestHost)}
	case "grpc":
		t.GRPC = &sharelink.GRPCOptions{ServiceName: str(r.Path)}
	}
	return t
}

func str(v sql.NullString) string {
	if !v.Valid {
		return ""
	}
	return strings.TrimSpace(v.String)
}
