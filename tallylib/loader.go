package tallylib

import (
	"bufio"
	"fmt"
	"io"

	"github.com/spf13/afero"
)

// LoadAddresses reads a newline-delimited list of addresses from a
// file. Please see ReadAddresses for a format.
//
// If file does not exist, returned error matches os.ErrNotExist.
func LoadAddresses(fs afero.Fs, path string) ([]string, error) {
	fp, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open address list %s: %w", path, err)
	}

	defer fp.Close()

	return ReadAddresses(fp)
}

// ReadAddresses returns lines of the reader as is: trailing newlines
// and whitespaces are kept, empty lines are kept too. Resolver is
// responsible for cleaning them up.
func ReadAddresses(r io.Reader) ([]string, error) {
	reader := bufio.NewReader(r)
	rv := []string{}

	for {
		line, err := reader.ReadString('\n')

		switch {
		case err == nil:
			rv = append(rv, line)
		case err == io.EOF:
			if line != "" {
				rv = append(rv, line)
			}

			return rv, nil
		default:
			return nil, fmt.Errorf("cannot read address list: %w", err)
		}
	}
}
