package datasets

import (
	"fmt"
	"strings"

	"github.com/9seconds/geotally/tallylib"
	"github.com/spf13/afero"
)

// Open opens a dataset of a given kind. An empty kind means geolite2.
func Open(kind, path string) (tallylib.Dataset, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", NameGeolite2:
		return NewGeolite2(path)
	case NameMMDB:
		return NewMMDB(path)
	case NameIP2Location:
		return NewIP2Location(path)
	case NameCSV:
		return NewCSV(afero.NewOsFs(), path)
	}

	return nil, fmt.Errorf("%q: %w", kind, ErrUnknownKind)
}
