package datasets

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/9seconds/geotally/tallylib"
	"github.com/oschwald/geoip2-golang"
)

type geolite2Dataset struct {
	db     *geoip2.Reader
	dbLock sync.RWMutex
}

func (g *geolite2Dataset) Name() string {
	return NameGeolite2
}

func (g *geolite2Dataset) Lookup(_ context.Context, ip net.IP) (tallylib.DatasetLookupResult, error) {
	g.dbLock.RLock()
	defer g.dbLock.RUnlock()

	rv := tallylib.DatasetLookupResult{}

	if g.db == nil {
		return rv, ErrDatabaseIsNotReadyYet
	}

	record, err := g.db.Country(ip)
	if err != nil {
		return rv, fmt.Errorf("cannot lookup this ip address: %w", err)
	}

	rv.CountryName = record.Country.Names["en"]
	rv.CountryCode = record.Country.IsoCode

	if rv.CountryName == "" && rv.CountryCode == "" {
		return rv, tallylib.ErrNoMatch
	}

	return rv, nil
}

func (g *geolite2Dataset) Close() error {
	g.dbLock.Lock()
	defer g.dbLock.Unlock()

	if g.db == nil {
		return nil
	}

	err := g.db.Close()
	g.db = nil

	return err
}

// NewGeolite2 opens a MaxMind GeoLite2 Country (or City) database.
//
//   Identifier: geolite2
//   Website: https://dev.maxmind.com/geoip/geolite2-free-geolocation-data
func NewGeolite2(path string) (tallylib.Dataset, error) {
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open geolite2 database %s: %w", path, err)
	}

	return &geolite2Dataset{db: db}, nil
}
