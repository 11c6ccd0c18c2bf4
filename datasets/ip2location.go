package datasets

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"

	"github.com/9seconds/geotally/tallylib"
	"github.com/ip2location/ip2location-go/v9"
)

type ip2locationDataset struct {
	db     *ip2location.DB
	dbLock sync.Mutex
}

func (i *ip2locationDataset) Name() string {
	return NameIP2Location
}

func (i *ip2locationDataset) Lookup(_ context.Context, ip net.IP) (tallylib.DatasetLookupResult, error) {
	i.dbLock.Lock()
	defer i.dbLock.Unlock()

	rv := tallylib.DatasetLookupResult{}

	if i.db == nil {
		return rv, ErrDatabaseIsNotReadyYet
	}

	record, err := i.db.Get_country_long(ip.String())
	if err != nil {
		return rv, fmt.Errorf("cannot lookup this ip address: %w", err)
	}

	rv.CountryName = ip2locationValue(record.Country_long)
	rv.CountryCode = ip2locationValue(record.Country_short)

	if rv.CountryName == "" && rv.CountryCode == "" {
		return rv, tallylib.ErrNoMatch
	}

	return rv, nil
}

func (i *ip2locationDataset) Close() error {
	i.dbLock.Lock()
	defer i.dbLock.Unlock()

	if i.db != nil {
		i.db.Close()
		i.db = nil
	}

	return nil
}

// ip2location puts "-" into fields which have no data and an error
// message into fields it cannot fill at all.
func ip2locationValue(value string) string {
	value = strings.TrimSpace(value)

	if value == "-" || strings.HasSuffix(value, ".") {
		return ""
	}

	return value
}

// NewIP2Location opens a BIN database from IP2Location, for example
// IP2LOCATION-LITE-DB1.BIN.
//
//   Identifier: ip2location
//   Website: https://lite.ip2location.com
func NewIP2Location(path string) (tallylib.Dataset, error) {
	db, err := ip2location.OpenDB(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open ip2location database %s: %w", path, err)
	}

	return &ip2locationDataset{db: db}, nil
}
