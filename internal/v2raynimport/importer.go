// Package v2raynimport reads the proxy profiles of a local v2rayN install so
// they can be merged like subscription links.
package v2raynimport

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/lkimju1/subsync/internal/sharelink"

	_ "modernc.org/sqlite"
)

// v2rayN EConfigType values.
const (
	configTypeVMess       = 1
	configTypeShadowsocks = 3
	configTypeVLess       = 5
	configTypeTrojan      = 6
)

type guiConfig struct {
	IndexID string `json:"IndexId"`
}

type profileRow struct {
	IndexID        string
	ConfigType     int
	Address        sql.NullString
	Port           sql.NullInt64
	ID             sql.NullString
	AlterID        sql.NullInt64
	Security       sql.NullString
	Network        sql.NullString
	Remarks        sql.NullString
	RequestHost    sql.NullString
	Path           sql.NullString
	StreamSecurity sql.NullString
	AllowInsecure  sql.NullString
	Sni            sql.NullString
	Alpn           sql.NullString
	Fingerprint    sql.NullString
	PublicKey      sql.NullString
	ShortID        sql.NullString
	SpiderX        sql.NullString
	Flow           sql.NullString
	SubID          sql.NullString
}

// Result is the import outcome.
type Result struct {
	Records []sharelink.Record
	// ActiveID is the IndexId selected in v2rayN, if known.
	ActiveID string
	// Skipped counts rows of unsupported types or with missing fields.
	Skipped int
}

// DBPath is where v2rayN keeps its profile database.
func DBPath(home string) string {
	return filepath.Join(filepath.Clean(home), "guiConfigs", "guiNDB.db")
}

// LoadFromHome converts the ProfileItem rows of the v2rayN install at home.
// subID restricts the import to one subscription group when non-empty.
func LoadFromHome(home, subID string) (*Result, error) {
	dbPath := DBPath(home)
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("v2rayN db not found: %s: %w", dbPath, err)
	}
	res, err := LoadDB(dbPath, subID)
	if err != nil {
		return nil, err
	}
	guiPath := filepath.Join(filepath.Clean(home), "guiConfigs", "guiNConfig.json")
	if gui, err := readGuiConfig(guiPath); err == nil {
		res.ActiveID = strings.TrimSpace(gui.IndexID)
	}
	return res, nil
}

func LoadDB(dbPath, subID string) (*Result, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open v2rayN db: %w", err)
	}
	defer db.Close()

	rows, err := readProfiles(db)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no profiles found in v2rayN db")
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].IndexID < rows[j].IndexID })

	res := &Result{}
	for _, r := range rows {
		if subID != "" && strings.TrimSpace(r.SubID.String) != subID {
			continue
		}
		rec, ok := toRecord(r)
		if !ok {
			res.Skipped++
			continue
		}
		res.Records = append(res.Records, rec)
	}
	return res, nil
}

func readGuiConfig(path string) (*guiConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read gui config: %w", err)
	}
	var cfg guiConfig
	if err := json.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse gui config: %w", err)
	}
	return &cfg, nil
}

func readProfiles(db *sql.DB) ([]profileRow, error) {
	rows, err := db.Query(`SELECT IndexId, ConfigType, Address, Port, Id, AlterId, Security, Network,
		Remarks, RequestHost, Path, StreamSecurity, AllowInsecure, Sni, Alpn, Fingerprint,
		PublicKey, ShortId, SpiderX, Flow, Subid FROM ProfileItem`)
	if err != nil {
		return nil, fmt.Errorf("query ProfileItem: %w", err)
	}
	defer rows.Close()
	out := make([]profileRow, 0)
	for rows.Next() {
		var r profileRow
		if err := rows.Scan(&r.IndexID, &r.ConfigType, &r.Address, &r.Port, &r.ID, &r.AlterID,
			&r.Security, &r.Network, &r.Remarks, &r.RequestHost, &r.Path, &r.StreamSecurity,
			&r.AllowInsecure, &r.Sni, &r.Alpn, &r.Fingerprint, &r.PublicKey, &r.ShortID,
			&r.SpiderX, &r.Flow, &r.SubID); err != nil {
			return nil, fmt.Errorf("scan ProfileItem: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
