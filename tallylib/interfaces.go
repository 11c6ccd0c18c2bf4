package tallylib

import (
	"context"
	"net"
	"net/http"
)

// Dataset is a local geolocation database. Lookup has to return
// ErrNoMatch (possibly wrapped) if there is no record for the address.
type Dataset interface {
	Name() string
	Lookup(context.Context, net.IP) (DatasetLookupResult, error)
	Close() error
}

// Logger is an interface which is used by Resolver and Fetcher to
// report non-fatal problems.
type Logger interface {
	LookupError(ip net.IP, name string, err error)
	ConversionError(ip net.IP, country string)
	UpdateInfo(name string, msg string)
	UpdateError(name string, err error)
}

// HTTPClient is a minimal interface of http.Client which is used to
// download datasets.
type HTTPClient interface {
	Do(*http.Request) (*http.Response, error)
}

// Downloader fetches a dataset into a given directory. FileName is a
// path of the database file relative to that directory.
type Downloader interface {
	Name() string
	FileName() string
	Download(ctx context.Context, dir string) error
}
