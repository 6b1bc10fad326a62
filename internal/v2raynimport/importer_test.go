package v2raynimport

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/lkimju1/subsync/internal/sharelink"
)

const createProfileItem = `CREATE TABLE ProfileItem (
	IndexId TEXT PRIMARY KEY, ConfigType INTEGER, Address TEXT, Port INTEGER, Id TEXT,
	AlterId INTEGER, Security TEXT, Network TEXT, Remarks TEXT, RequestHost TEXT, Path TEXT,
	StreamSecurity TEXT, AllowInsecure TEXT, Sni TEXT, Alpn TEXT, Fingerprint TEXT,
	PublicKey TEXT, ShortId TEXT, SpiderX TEXT, Flow TEXT, Subid TEXT)`

type row struct {
	id, address, uuid, security, network, remarks, host, path, stream, insecure, sni, alpn string
	fp, pbk, sid, spx, flow, sub                                                           string
	configType, port, alterID                                                              int
}

func newHome(t *testing.T, rows []row) string {
	t.Helper()
	home := t.TempDir()
	dbPath := DBPath(home)
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		t.Fatal(err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	if _, err := db.Exec(createProfileItem); err != nil {
		t.Fatalf("create table: %v", err)
	}
	for _, r := range rows {
		_, err := db.Exec(`INSERT INTO ProfileItem VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
			r.id, r.configType, r.address, r.port, r.uuid, r.alterID, r.security, r.network, r.remarks,
			r.host, r.path, r.stream, r.insecure, r.sni, r.alpn, r.fp, r.pbk, r.sid, r.spx, r.flow, r.sub)
		if err != nil {
			t.Fatalf("insert %s: %v", r.id, err)
		}
	}
	return home
}

func TestLoadFromHome(t *testing.T) {
	home := newHome(t, []row{
		{id: "a1", configType: configTypeShadowsocks, address: "ss.example.com", port: 8388, uuid: "pw", security: "aes-256-gcm", remarks: "SS"},
		{id: "a2", configType: configTypeVMess, address: "vm.example.com", port: 443, uuid: "uuid-1", alterID: 0, network: "ws", host: "cdn.example.com", path: "/ws", stream: "tls", sni: "sni.example.com"},
		{id: "a3", configType: configTypeVLess, address: "vl.example.com", port: 443, uuid: "uuid-2", security: "none", network: "grpc", path: "svc", stream: "reality", pbk: "PBK", sid: "ab", fp: "chrome", flow: "xtls-rprx-vision", remarks: "VL"},
		{id: "a4", configType: configTypeTrojan, address: "tj.example.com", port: 443, uuid: "secret", insecure: "true", network: "tcp", alpn: "h2, http/1.1", remarks: "TJ"},
		{id: "a5", configType: 2, address: "custom", port: 1, uuid: "x", remarks: "custom core"},
		{id: "a6", configType: configTypeTrojan, address: "", port: 443, uuid: "secret"},
	})
	if err := os.WriteFile(filepath.Join(home, "guiConfigs", "guiNConfig.json"), []byte(`{"IndexId":"a3"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := LoadFromHome(home, "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.ActiveID != "a3" || res.Skipped != 2 || len(res.Records) != 4 {
		t.Fatalf("unexpected result: active=%q skipped=%d records=%d", res.ActiveID, res.Skipped, len(res.Records))
	}

	ss, ok := res.Records[0].(*sharelink.Shadowsocks)
	if !ok || ss.Cipher != "aes-256-gcm" || ss.Password != "pw" || ss.Name() != "SS" {
		t.Fatalf("unexpected ss record: %#v", res.Records[0])
	}

	vm, ok := res.Records[1].(*sharelink.VMess)
	if !ok || !vm.TLS || vm.Cipher != "auto" || vm.ServerName != "sni.example.com" {
		t.Fatalf("unexpected vmess record: %#v", res.Records[1])
	}
	if vm.Name() != "vm.example.com:443" || vm.AlterID == nil || *vm.AlterID != 0 {
		t.Fatalf("unexpected vmess name/alterId: %#v", vm)
	}
	if vm.Transport.WS == nil || vm.Transport.WS.Path != "/ws" || vm.Transport.WS.Host != "cdn.example.com" {
		t.Fatalf("unexpected vmess transport: %#v", vm.Transport)
	}

	vl, ok := res.Records[2].(*sharelink.VLess)
	if !ok || vl.Reality == nil || vl.Reality.PublicKey != "PBK" || vl.Reality.Fingerprint != "chrome" {
		t.Fatalf("unexpected vless record: %#v", res.Records[2])
	}
	if vl.Transport.GRPC == nil || vl.Transport.GRPC.ServiceName != "svc" || vl.Flow != "xtls-rprx-vision" {
		t.Fatalf("unexpected vless transport: %#v", vl)
	}

	tj, ok := res.Records[3].(*sharelink.Trojan)
	if !ok || !tj.SkipCertVerify || tj.Transport.Network != "" || len(tj.ALPN) != 2 {
		t.Fatalf("unexpected trojan record: %#v", res.Records[3])
	}
}

func TestLoadFilterBySubscription(t *testing.T) {
	home := newHome(t, []row{
		{id: "b1", configType: configTypeTrojan, address: "a.example.com", port: 443, uuid: "p", sub: "s1"},
		{id: "b2", configType: configTypeTrojan, address: "b.example.com", port: 443, uuid: "p", sub: "s2"},
	})
	res, err := LoadFromHome(home, "s2")
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Records) != 1 {
		t.Fatalf("records = %d", len(res.Records))
	}
	if server, _ := res.Records[0].Address(); server != "b.example.com" {
		t.Fatalf("server = %s", server)
	}
}

func TestLoadFromHomeMissingDB(t *testing.T) {
	if _, err := LoadFromHome(t.TempDir(), ""); err == nil {
		t.Fatal("expected missing db error")
	}
}

func TestLoadEmptyDB(t *testing.T) {
	home := newHome(t, nil)
	if _, err := LoadFromHome(home, ""); err == nil {
		t.Fatal("expected error for empty profile table")
	}
}
