package datasets

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"

	"github.com/9seconds/geotally/tallylib"
	"github.com/EvilSuperstars/go-cidrman"
	"github.com/asergeyev/nradix"
	"github.com/spf13/afero"
)

// ErrIncorrectRecord is returned for CSV rows which cannot be parsed.
var ErrIncorrectRecord = errors.New("incorrect record")

type csvDataset struct {
	tree     *nradix.Tree
	treeLock sync.RWMutex
}

func (c *csvDataset) Name() string {
	return NameCSV
}

func (c *csvDataset) Lookup(_ context.Context, ip net.IP) (tallylib.DatasetLookupResult, error) {
	c.treeLock.RLock()
	defer c.treeLock.RUnlock()

	if c.tree == nil {
		return tallylib.DatasetLookupResult{}, ErrDatabaseIsNotReadyYet
	}

	key := ip.String() + "/128"
	if ip.To4() != nil {
		key = ip.To4().String() + "/32"
	}

	value, err := c.tree.FindCIDR(key)
	if err != nil {
		return tallylib.DatasetLookupResult{}, fmt.Errorf("cannot lookup this ip address: %w", err)
	}

	if result, ok := value.(tallylib.DatasetLookupResult); ok {
		return result, nil
	}

	return tallylib.DatasetLookupResult{}, tallylib.ErrNoMatch
}

func (c *csvDataset) Close() error {
	c.treeLock.Lock()
	defer c.treeLock.Unlock()

	c.tree = nil

	return nil
}

// NewCSV loads a CSV range database from a file.
//
//   Identifier: csv
//
// Rows are either "network,country" with IPv4 or IPv6 CIDR or
// "start_ip,end_ip,country" with IPv4 range. Country is a name or an
// ISO alpha-2 code. Lines started with # are comments. If networks
// overlap exactly, the first row wins.
func NewCSV(fs afero.Fs, path string) (tallylib.Dataset, error) {
	fp, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open csv database %s: %w", path, err)
	}

	defer fp.Close()

	return ReadCSV(fp)
}

// ReadCSV builds a CSV range database from a reader.
func ReadCSV(r io.Reader) (tallylib.Dataset, error) {
	reader := csv.NewReader(r)
	reader.Comment = '#'
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	tree := nradix.NewTree(0)
	line := 0

	for {
		row, err := reader.Read()

		switch {
		case errors.Is(err, io.EOF):
			return &csvDataset{tree: tree}, nil
		case err != nil:
			return nil, fmt.Errorf("cannot read csv record: %w", err)
		}

		line++

		networks, result, err := parseCSVRecord(row)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", line, err)
		}

		for _, network := range networks {
			if err := tree.AddCIDR(network, result); err != nil && !errors.Is(err, nradix.ErrNodeBusy) {
				return nil, fmt.Errorf("record %d: cannot add %s: %w", line, network, err)
			}
		}
	}
}

func parseCSVRecord(row []string) ([]string, tallylib.DatasetLookupResult, error) {
	result := tallylib.DatasetLookupResult{}

	for i := range row {
		row[i] = strings.TrimSpace(row[i])
	}

	var (
		networks []string
		err      error
	)

	switch len(row) {
	case 2:
		networks, err = parseCSVNetwork(row[0])
		result = csvCountry(row[1])
	case 3:
		networks, err = parseCSVRange(row[0], row[1])
		result = csvCountry(row[2])
	default:
		return nil, result, fmt.Errorf("unexpected number of fields %d: %w", len(row), ErrIncorrectRecord)
	}

	if err != nil {
		return nil, result, err
	}

	if result.CountryName == "" && result.CountryCode == "" {
		return nil, result, fmt.Errorf("empty country: %w", ErrIncorrectRecord)
	}

	return networks, result, nil
}

func parseCSVNetwork(network string) ([]string, error) {
	_, ipnet, err := net.ParseCIDR(network)
	if err != nil {
		return nil, fmt.Errorf("incorrect network %s: %w", network, ErrIncorrectRecord)
	}

	return []string{ipnet.String()}, nil
}

func parseCSVRange(start, finish string) (networks []string, err error) {
	startIP := net.ParseIP(start)
	finishIP := net.ParseIP(finish)

	if startIP == nil || startIP.To4() == nil || finishIP == nil || finishIP.To4() == nil {
		return nil, fmt.Errorf("incorrect ipv4 range %s-%s: %w", start, finish, ErrIncorrectRecord)
	}

	if bytes.Compare(startIP.To4(), finishIP.To4()) > 0 {
		return nil, fmt.Errorf("range %s-%s is reversed: %w", start, finish, ErrIncorrectRecord)
	}

	defer func() {
		if rec := recover(); rec != nil {
			networks = nil
			err = fmt.Errorf("incorrect ipv4 range %s-%s (%v): %w", start, finish, rec, ErrIncorrectRecord)
		}
	}()

	networks, err = cidrman.IPRangeToCIDRs(startIP.To4().String(), finishIP.To4().String())
	if err != nil {
		return nil, fmt.Errorf("incorrect ipv4 range %s-%s (%v): %w", start, finish, err, ErrIncorrectRecord)
	}

	return networks, nil
}

// Two letter values are treated as ISO alpha-2 codes.
func csvCountry(value string) tallylib.DatasetLookupResult {
	if len(value) == 2 {
		return tallylib.DatasetLookupResult{CountryCode: strings.ToUpper(value)}
	}

	return tallylib.DatasetLookupResult{CountryName: value}
}
