package geodata

import (
	"fmt"
	"net"
	"strings"

	"github.com/lkimju1/subsync/internal/sharelink"
	"github.com/oschwald/geoip2-golang"
)

// CountryDB resolves ISO country codes for literal server addresses.
type CountryDB struct {
	reader *geoip2.Reader
}

func OpenCountryDB(path string) (*CountryDB, error) {
	r, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open country db: %w", err)
	}
	return &CountryDB{reader: r}, nil
}

func (db *CountryDB) Close() error {
	if db == nil || db.reader == nil {
		return nil
	}
	return db.reader.Close()
}

// Country returns the ISO code for host when it is an IP literal known to
// the database. Hostnames are not resolved.
func (db *CountryDB) Country(host string) (string, bool) {
	ip := net.ParseIP(strings.Trim(host, "[]"))
	if ip == nil || db == nil || db.reader == nil {
		return "", false
	}
	rec, err := db.reader.Country(ip)
	if err != nil || rec.Country.IsoCode == "" {
		return "", false
	}
	return rec.Country.IsoCode, true
}

// CountryLookup resolves a server address to an ISO country code.
// *CountryDB is the production implementation.
type CountryLookup interface {
	Country(host string) (string, bool)
}

// TagCountries prefixes the names of records whose server has a known
// country with "[CC] ". Names that already carry the tag are left as is.
func TagCountries(records []sharelink.Record, db CountryLookup) []sharelink.Record {
	out := make([]sharelink.Record, 0, len(records))
	for _, r := range records {
		if db == nil {
			out = append(out, r)
			continue
		}
		server, _ := r.Address()
		code, ok := db.Country(server)
		tag := "[" + code + "] "
		if !ok || strings.HasPrefix(r.Name(), tag) {
			out = append(out, r)
			continue
		}
		out = append(out, sharelink.Rename(r, tag+r.Name()))
	}
	return out
}
