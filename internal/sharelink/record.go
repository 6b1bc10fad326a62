package sharelink

import (
	"strings"

	"github.com/lkimju1/subsync/internal/yamlnode"
	"gopkg.in/yaml.v3"
)

type Kind string

const (
	KindShadowsocks Kind = "ss"
	KindVMess       Kind = "vmess"
	KindVLess       Kind = "vless"
	KindTrojan      Kind = "trojan"
)

// Record is one decoded proxy. Implementations are immutable after decoding;
// Node renders the proxy entry in the daemon's native field order.
type Record interface {
	Name() string
	Kind() Kind
	Address() (string, uint16)
	Node() *yaml.Node
}

// Base carries the fields every proxy has.
type Base struct {
	DisplayName string
	Server      string
	Port        uint16
}

func (b Base) Name() string { return b.DisplayName }

func (b Base) Address() (string, uint16) { return b.Server, b.Port }

type WSOptions struct {
	Path string
	Host string
}

type GRPCOptions struct {
	ServiceName string
}

// Transport is the network selector plus the options block matching it.
// At most one of WS and GRPC is set.
type Transport struct {
	Network string
	WS      *WSOptions
	GRPC    *GRPCOptions
}

type RealityOptions struct {
	PublicKey   string
	ShortID     string
	SpiderX     string
	Fingerprint string
}

type Shadowsocks struct {
	Base
	Cipher   string
	Password string
	Plugin   string
	// PluginOpts are the raw ';'-separated segments following the plugin name.
	PluginOpts []string
}

func (*Shadowsocks) Kind() Kind { return KindShadowsocks }

func (s *Shadowsocks) Node() *yaml.Node {
	m := s.head(KindShadowsocks)
	putString(m, "cipher", s.Cipher)
	putString(m, "password", s.Password)
	if s.Plugin != "" {
		putString(m, "plugin", s.Plugin)
	}
	if len(s.PluginOpts) > 0 {
		yamlnode.Append(m, "plugin-opts", pluginOptsNode(s.PluginOpts))
	}
	return m
}

type VMess struct {
	Base
	UUID       string
	Cipher     string
	AlterID    *uint16
	TLS        bool
	ServerName string
	ALPN       []string
	Transport  Transport
}

func (*VMess) Kind() Kind { return KindVMess }

func (v *VMess) Node() *yaml.Node {
	m := v.head(KindVMess)
	putString(m, "uuid", v.UUID)
	putString(m, "cipher", v.Cipher)
	if v.AlterID != nil {
		putInt(m, "alterId", int(*v.AlterID))
	}
	if v.Transport.Network != "" {
		putString(m, "network", v.Transport.Network)
	}
	if v.TLS {
		putBool(m, "tls", true)
	}
	if v.ServerName != "" {
		putString(m, "servername", v.ServerName)
	}
	putALPN(m, v.ALPN)
	putTransport(m, v.Transport)
	return m
}

type VLess struct {
	Base
	UUID       string
	UDP        bool
	Flow       string
	Encryption string
	// Security is the raw security parameter; anything but "none" enables TLS.
	Security   string
	ServerName string
	ALPN       []string
	Reality    *RealityOptions
	Transport  Transport
}

func (*VLess) Kind() Kind { return KindVLess }

func (v *VLess) Node() *yaml.Node {
	m := v.head(KindVLess)
	putString(m, "uuid", v.UUID)
	putBool(m, "udp", v.UDP)
	if v.Transport.Network != "" {
		putString(m, "network", v.Transport.Network)
	}
	if v.Flow != "" {
		putString(m, "flow", v.Flow)
	}
	if v.Encryption != "" {
		putString(m, "encryption", v.Encryption)
	}
	if v.Security != "" && v.Security != "none" {
		putBool(m, "tls", true)
	}
	if v.ServerName != "" {
		putString(m, "servername", v.ServerName)
	}
	putALPN(m, v.ALPN)
	if v.Reality != nil {
		r := yamlnode.Mapping()
		if v.Reality.PublicKey != "" {
			putString(r, "public-key", v.Reality.PublicKey)
		}
		if v.Reality.ShortID != "" {
			putString(r, "short-id", v.Reality.ShortID)
		}
		if v.Reality.SpiderX != "" {
			putString(r, "spider-x", v.Reality.SpiderX)
		}
		if v.Reality.Fingerprint != "" {
			putString(r, "fingerprint", v.Reality.Fingerprint)
		}
		if len(r.Content) > 0 {
			yamlnode.Append(m, "reality-opts", r)
		}
	}
	putTransport(m, v.Transport)
	return m
}

type Trojan struct {
	Base
	Password       string
	UDP            bool
	SkipCertVerify bool
	SNI            string
	ALPN           []string
	Transport      Transport
}

func (*Trojan) Kind() Kind { return KindTrojan }

func (t *Trojan) Node() *yaml.Node {
	m := t.head(KindTrojan)
	putString(m, "password", t.Password)
	putBool(m, "udp", t.UDP)
	if t.SkipCertVerify {
		putBool(m, "skip-cert-verify", true)
	}
	if t.Transport.Network != "" {
		putString(m, "network", t.Transport.Network)
	}
	if t.SNI != "" {
		putString(m, "sni", t.SNI)
	}
	putALPN(m, t.ALPN)
	putTransport(m, t.Transport)
	return m
}

// MarshalYAML lets records be encoded directly with yaml.Marshal.
func (s *Shadowsocks) MarshalYAML() (any, error) { return s.Node(), nil }
func (v *VMess) MarshalYAML() (any, error) { return v.Node(), nil }
func (v *VLess) MarshalYAML() (any, error) { return v.Node(), nil }
func (t *Trojan) MarshalYAML() (any, error) { return t.Node(), nil }

// Rename returns a copy of r carrying a different display name.
func Rename(r Record, name string) Record {
	switch v := r.(type) {
	case *Shadowsocks:
		cp := *v
		cp.DisplayName = name
		return &cp
	case *VMess:
		cp := *v
		cp.DisplayName = name
		return &cp
	case *VLess:
		cp := *v
		cp.DisplayName = name
		return &cp
	case *Trojan:
		cp := *v
		cp.DisplayName = name
		return &cp
	default:
		return r
	}
}

func (b Base) head(kind Kind) *yaml.Node {
	m := yamlnode.Mapping()
	putString(m, "name", b.DisplayName)
	putString(m, "type", string(kind))
	putString(m, "server", b.Server)
	putInt(m, "port", int(b.Port))
	return m
}

func putTransport(m *yaml.Node, t Transport) {
	switch {
	case t.WS != nil:
		ws := yamlnode.Mapping()
		if t.WS.Path != "" {
			putString(ws, "path", t.WS.Path)
		}
		if t.WS.Host != "" {
			headers := yamlnode.Mapping()
			putString(headers, "Host", t.WS.Host)
			yamlnode.Append(ws, "headers", headers)
		}
		if len(ws.Content) > 0 {
			yamlnode.Append(m, "ws-opts", ws)
		}
	case t.GRPC != nil:
		if t.GRPC.ServiceName != "" {
			grpc := yamlnode.Mapping()
			putString(grpc, "grpc-service-name", t.GRPC.ServiceName)
			yamlnode.Append(m, "grpc-opts", grpc)
		}
	}
}

func putALPN(m *yaml.Node, alpn []string) {
	if len(alpn) == 0 {
		return
	}
	seq := yamlnode.Sequence()
	for _, a := range alpn {
		seq.Content = append(seq.Content, yamlnode.String(a))
	}
	yamlnode.Append(m, "alpn", seq)
}

// pluginOptsNode renders "k=v" segments as k: v and bare segments as k: true,
// keeping their order.
func pluginOptsNode(opts []string) *yaml.Node {
	m := yamlnode.Mapping()
	for _, opt := range opts {
		if opt == "" {
			continue
		}
		k, v, ok := strings.Cut(opt, "=")
		if !ok {
			putBool(m, opt, true)
			continue
		}
		putString(m, k, v)
	}
	return m
}

func putString(m *yaml.Node, key, v string) {
	yamlnode.Append(m, key, yamlnode.String(v))
}

func putInt(m *yaml.Node, key string, v int) {
	yamlnode.Append(m, key, yamlnode.Int(int64(v)))
}

func putBool(m *yaml.Node, key string, v bool) {
	yamlnode.Append(m, key, yamlnode.Bool(v))
}
