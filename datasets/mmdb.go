package datasets

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/9seconds/geotally/tallylib"
	"github.com/oschwald/maxminddb-golang"
)

type mmdbLookupResult struct {
	Country struct {
		IsoCode string `maxminddb:"iso_code"`
		Names   struct {
			En string `maxminddb:"en"`
		} `maxminddb:"names"`
	} `maxminddb:"country"`
}

type mmdbDataset struct {
	dbReader     *maxminddb.Reader
	dbReaderLock sync.RWMutex
}

func (m *mmdbDataset) Name() string {
	return NameMMDB
}

func (m *mmdbDataset) Lookup(_ context.Context, ip net.IP) (tallylib.DatasetLookupResult, error) {
	m.dbReaderLock.RLock()
	defer m.dbReaderLock.RUnlock()

	rv := tallylib.DatasetLookupResult{}

	if m.dbReader == nil {
		return rv, ErrDatabaseIsNotReadyYet
	}

	record := mmdbLookupResult{}

	_, ok, err := m.dbReader.LookupNetwork(ip, &record)

	switch {
	case err != nil:
		return rv, fmt.Errorf("cannot lookup this ip address: %w", err)
	case !ok:
		return rv, tallylib.ErrNoMatch
	}

	rv.CountryName = record.Country.Names.En
	rv.CountryCode = record.Country.IsoCode

	if rv.CountryName == "" && rv.CountryCode == "" {
		return rv, tallylib.ErrNoMatch
	}

	return rv, nil
}

func (m *mmdbDataset) Close() error {
	m.dbReaderLock.Lock()
	defer m.dbReaderLock.Unlock()

	if m.dbReader == nil {
		return nil
	}

	err := m.dbReader.Close()
	m.dbReader = nil

	return err
}

// NewMMDB opens any MaxMind DB file which has a country record, for
// example DB-IP lite or GeoLite2 City databases.
//
//   Identifier: mmdb
//   Format: https://maxmind.github.io/MaxMind-DB/
func NewMMDB(path string) (tallylib.Dataset, error) {
	reader, err := maxminddb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot initialize a reader of maxminddb: %w", err)
	}

	return &mmdbDataset{dbReader: reader}, nil
}
