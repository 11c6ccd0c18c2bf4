package datasets

const (
	// NameGeolite2 is an identifier of MaxMind GeoLite2 Country
	// databases read with geoip2-golang.
	NameGeolite2 = "geolite2"

	// NameMMDB is an identifier of arbitrary MaxMind DB files which
	// have a country record.
	NameMMDB = "mmdb"

	// NameIP2Location is an identifier of IP2Location BIN files.
	NameIP2Location = "ip2location"

	// NameCSV is an identifier of plain CSV range databases.
	NameCSV = "csv"
)

// Kinds lists every supported dataset kind.
var Kinds = []string{NameGeolite2, NameMMDB, NameIP2Location, NameCSV}
