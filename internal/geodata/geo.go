// Package geodata keeps the daemon's geo databases next to its config fresh
// and looks up server countries.
package geodata

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oschwald/maxminddb-golang"
	"gopkg.in/yaml.v3"
)

const (
	MaxAge          = 30 * 24 * time.Hour
	downloadTimeout = 90 * time.Second
	releaseBase     = "https://github.com/MetaCubeX/meta-rules-dat/releases/download/latest/"
)

// File is one geo database the daemon loads from its home directory.
type File struct {
	Name string
	URL  string
	// MMDB files are verified as MaxMind databases before they replace the old copy.
	MMDB bool
}

// DefaultFiles mirrors the daemon's geox-url defaults.
var DefaultFiles = []File{
	{Name: "Country.mmdb", URL: releaseBase + "country.mmdb", MMDB: true},
	{Name: "GeoSite.dat", URL: releaseBase + "geosite.dat"},
	{Name: "GeoIP.dat", URL: releaseBase + "geoip.dat"},
}

var downloadGeoFile = defaultDownloadGeoFile

// FilesFromConfig applies the geox-url overrides of the daemon config at
// configPath to DefaultFiles. A missing or unreadable config keeps defaults.
func FilesFromConfig(configPath string) []File {
	files := append([]File(nil), DefaultFiles...)
	b, err := os.ReadFile(configPath)
	if err != nil {
		return files
	}
	var cfg struct {
		GeoxURL map[string]string `yaml:"geox-url"`
	}
	if yaml.Unmarshal(b, &cfg) != nil {
		return files
	}
	keys := map[string]string{"Country.mmdb": "mmdb", "GeoSite.dat": "geosite", "GeoIP.dat": "geoip"}
	for i := range files {
		if u := strings.TrimSpace(cfg.GeoxURL[keys[files[i].Name]]); u != "" {
			files[i].URL = u
		}
	}
	return files
}

// Ensure downloads every file in dir that is missing or older than MaxAge.
// It returns the names that were refreshed.
func Ensure(dir string, files []File, now time.Time) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create geodata dir: %w", err)
	}

	var refreshed []string
	for _, f := range files {
		target := filepath.Join(dir, f.Name)
		need, err := needsRefresh(target, now, MaxAge)
		if err != nil {
			return refreshed, fmt.Errorf("check %s: %w", target, err)
		}
		if !need {
			continue
		}
		if err := fetchInto(f, target); err != nil {
			return refreshed, fmt.Errorf("download %s: %w", f.Name, err)
		}
		refreshed = append(refreshed, f.Name)
	}
	return refreshed, nil
}

// Age reports how old each present file in dir is.
func Age(dir string, files []File, now time.Time) map[string]time.Duration {
	out := make(map[string]time.Duration, len(files))
	for _, f := range files {
		if st, err := os.Stat(filepath.Join(dir, f.Name)); err == nil && !st.IsDir() {
			out[f.Name] = now.Sub(st.ModTime())
		}
	}
	return out
}

func fetchInto(f File, target string) error {
	tmp := target + ".tmp"
	if err := downloadGeoFile(f.URL, tmp); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if f.MMDB {
		if err := verifyMMDB(tmp); err != nil {
			_ = os.Remove(tmp)
			return err
		}
	}
	return os.Rename(tmp, target)
}

func verifyMMDB(path string) error {
	db, err := maxminddb.Open(path)
	if err != nil {
		return fmt.Errorf("open mmdb: %w", err)
	}
	defer db.Close()
	if err := db.Verify(); err != nil {
		return fmt.Errorf("verify mmdb: %w", err)
	}
	return nil
}

func needsRefresh(path string, now time.Time, maxAge time.Duration) (bool, error) {
	st, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return true, nil
		}
		return false, err
	}
	if st.IsDir() {
		return false, fmt.Errorf("expected file but got directory: %s", path)
	}
	return now.Sub(st.ModTime()) > maxAge, nil
}

func defaultDownloadGeoFile(url, target string) error {
	client := &http.Client{Timeout: downloadTimeout}
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	f, err := os.Create(target)
	if err != nil {
		return err
	}
	_, copyErr := io.Copy(f, resp.Body)
	closeErr := f.Close()
	if copyErr != nil {
		return copyErr
	}
	return closeErr
}
