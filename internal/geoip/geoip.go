// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package geoip tags inbox submissions with the sender's country using a
// MaxMind GeoLite2-Country database.
package geoip

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/netip"
	"os"
	"sync"
	"time"

	"github.com/oschwald/maxminddb-golang"
)

// CountryLocal is returned for private and loopback addresses.
const CountryLocal = "LOCAL"

// Locator resolves an IP address to a 2-letter country code. It returns ""
// when the country is unknown.
type Locator interface {
	LookupCountry(ip string) string
}

var privatePrefixes = []netip.Prefix{
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("172.16.0.0/12"),
	netip.MustParsePrefix("192.168.0.0/16"),
	netip.MustParsePrefix("fc00::/7"),
	netip.MustParsePrefix("fe80::/10"),
}

// Lookup is a Locator backed by a database file that can be swapped on disk
// and picked up with Reload.
type Lookup struct {
	mu      sync.RWMutex
	db      *maxminddb.Reader
	path    string
	modTime time.Time
}

type countryRecord struct {
	Country struct {
		ISOCode string `maxminddb:"iso_code"`
	} `maxminddb:"country"`
}

// Open loads the database at path. An empty path gives a Lookup that only
// recognises local addresses.
func Open(path string) (*Lookup, error) {
	l := &Lookup{path: path}
	if path == "" {
		return l, nil
	}
	if err := l.load(); err != nil {
		return l, err
	}
	return l, nil
}

// load opens the database if the file changed since the last load.
// The caller holds the write lock or owns l exclusively.
func (l *Lookup) load() error {
	info, err := os.Stat(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("GeoIP database not found: %s", l.path)
		}
		return fmt.Errorf("GeoIP database stat error: %w", err)
	}
	if l.db != nil && info.ModTime().Equal(l.modTime) {
		return nil
	}

	db, err := maxminddb.Open(l.path)
	if err != nil {
		return fmt.Errorf("failed to open GeoIP database: %w", err)
	}
	if l.db != nil {
		_ = l.db.Close()
	}
	l.db = db
	l.modTime = info.ModTime()
	return nil
}

// Reload picks up a replaced database file. The old database stays in use
// when the new one cannot be opened.
func (l *Lookup) Reload(context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.path == "" {
		return nil
	}
	return l.load()
}

// Enabled reports whether a database is loaded.
func (l *Lookup) Enabled() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.db != nil
}

// LookupCountry returns the ISO code for ip, CountryLocal for private
// addresses and "" when unknown.
func (l *Lookup) LookupCountry(ip string) string {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return ""
	}
	addr = addr.Unmap()
	if IsLocal(addr) {
		return CountryLocal
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.db == nil {
		return ""
	}
	var rec countryRecord
	if err := l.db.Lookup(net.IP(addr.AsSlice()), &rec); err != nil {
		return ""
	}
	return rec.Country.ISOCode
}

// Close releases the database.
func (l *Lookup) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.db == nil {
		return nil
	}
	err := l.db.Close()
	l.db = nil
	return err
}

// IsLocal reports whether addr is loopback or in a private range.
func IsLocal(addr netip.Addr) bool {
	if addr.IsLoopback() {
		return true
	}
	for _, p := range privatePrefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

var countryNames = map[string]string{
	CountryLocal: "Local Network",
	"US":         "United States",
	"GB":         "United Kingdom",
	"DE":         "Germany",
	"FR":         "France",
	"ES":         "Spain",
	"IT":         "Italy",
	"NL":         "Netherlands",
	"PL":         "Poland",
	"UA":         "Ukraine",
	"CA":         "Canada",
	"BR":         "Brazil",
	"AU":         "Australia",
	"JP":         "Japan",
	"IN":         "India",
	"SG":         "Singapore",
	"ZA":         "South Africa",
	"NG":         "Nigeria",
	"KE":         "Kenya",
	"AE":         "United Arab Emirates",
	"TR":         "Turkey",
	"IE":         "Ireland",
}

// CountryName returns a display name for a country code, falling back to
// the code itself.
func CountryName(code string) string {
	if name, ok := countryNames[code]; ok {
		return name
	}
	if code == "" {
		return "Unknown"
	}
	return code
}
