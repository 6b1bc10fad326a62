package sharelink

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// DecodeVMess parses vmess://<base64 JSON> links in the v2rayN share format.
func DecodeVMess(line string) (*VMess, bool) {
	payload, ok := strings.CutPrefix(strings.TrimSpace(line), "vmess://")
	if !ok || payload == "" {
		return nil, false
	}
	raw, ok := DecodeBase64(payload)
	if !ok {
		return nil, false
	}
	fields, ok := vmessFields(raw)
	if !ok {
		return nil, false
	}

	server := strings.TrimSpace(fields.get("add"))
	uuid := strings.TrimSpace(fields.get("id"))
	port, ok := parsePort(fields.get("port"))
	if !ok || server == "" || uuid == "" {
		return nil, false
	}

	v := &VMess{
		Base: Base{
			DisplayName: defaultName(strings.TrimSpace(fields.get("ps")), server, port),
			Server:      server,
			Port:        port,
		},
		UUID:   uuid,
		Cipher: fields.get("scy"),
	}
	if v.Cipher == "" {
		v.Cipher = "auto"
	}
	if aid, err := strconv.ParseUint(strings.TrimSpace(fields.get("aid")), 10, 16); err == nil {
		a := uint16(aid)
		v.AlterID = &a
	}
	tls := strings.TrimSpace(fields.get("tls"))
	v.TLS = tls != "" && tls != "none"

	v.ServerName = fields.get("sni")
	if v.ServerName == "" && v.TLS {
		v.ServerName = fields.get("host")
	}
	if alpn := fields.get("alpn"); alpn != "" {
		v.ALPN = SplitList(alpn)
	}

	network, _ := fields.first("net", "network")
	v.Transport = buildTransport(network, fields.get("path"), fields.get("host"), fields.get("path"))
	return v, true
}

type jsonFields map[string]string

// vmessFields flattens the JSON object to strings; numbers keep their literal
// text and any other value type is treated as absent.
func vmessFields(raw []byte) (jsonFields, bool) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, false
	}
	out := make(jsonFields, len(obj))
	for k, v := range obj {
		switch val := v.(type) {
		case string:
			out[k] = val
		case json.Number:
			out[k] = val.String()
		}
	}
	return out, true
}

func (f jsonFields) get(key string) string { return f[key] }

func (f jsonFields) first(keys ...string) (string, bool) { return first(f, keys...) }

// buildTransport fills the options block matching network. Unknown networks
// keep the selector and carry no options.
func buildTransport(network, wsPath, wsHost, grpcService string) Transport {
	t := Transport{Network: strings.TrimSpace(network)}
	switch t.Network {
	case "ws":
		t.WS = &WSOptions{Path: wsPath, Host: wsHost}
	case "grpc":
		t.GRPC = &GRPCOptions{ServiceName: grpcService}
	}
	return t
}
