package tallylib

import (
	"fmt"
	"net"
	"strings"
)

// DatasetLookupResult is a raw answer of the dataset. CountryName is a
// human readable name of the country, CountryCode is an optional ISO
// 3166-1 alpha-2 code if dataset has one.
type DatasetLookupResult struct {
	CountryName string
	CountryCode string
}

// Status describes what has happened with an address during
// resolving.
type Status uint8

const (
	StatusResolved Status = iota
	StatusNoMatch
	StatusInvalidAddress
	StatusUnconvertible
)

func (s Status) String() string {
	switch s {
	case StatusResolved:
		return "resolved"
	case StatusNoMatch:
		return "no_match"
	case StatusInvalidAddress:
		return "invalid_address"
	case StatusUnconvertible:
		return "unconvertible"
	}

	return "unknown"
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Resolution is a result of resolving a single address. Only resolved
// ones have Code.
type Resolution struct {
	Address string `json:"address"`
	IP      net.IP `json:"ip"`
	Country string `json:"country"`
	Code    string `json:"alpha3_code"`
	Status  Status `json:"status"`
}

// OK reports if address contributes to the tally.
func (r *Resolution) OK() bool {
	return r.Status == StatusResolved
}

// ConversionPolicy defines what Resolver does if dataset knows the
// country but Normalizer cannot map it to alpha-3 code.
type ConversionPolicy uint8

const (
	// ConversionDrop excludes such address exactly as if dataset had
	// no match for it.
	ConversionDrop ConversionPolicy = iota

	// ConversionFail aborts resolving with ErrCannotConvert.
	ConversionFail
)

func (c ConversionPolicy) String() string {
	if c == ConversionFail {
		return "fail"
	}

	return "drop"
}

func (c *ConversionPolicy) UnmarshalText(text []byte) error {
	value, err := ParseConversionPolicy(string(text))
	if err != nil {
		return err
	}

	*c = value

	return nil
}

// ParseConversionPolicy parses a name of the policy. Empty string is
// ConversionDrop.
func ParseConversionPolicy(name string) (ConversionPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "drop":
		return ConversionDrop, nil
	case "fail", "error":
		return ConversionFail, nil
	}

	return ConversionDrop, fmt.Errorf("unknown conversion policy %s", name)
}
