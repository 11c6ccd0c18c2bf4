package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/9seconds/geotally/tallylib"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

func runTally(ctx context.Context, conf *config, w io.Writer, quiet bool) error {
	p, err := newPipeline(afero.NewOsFs(), conf, newLogger())
	if err != nil {
		return err
	}

	if err := p.Open(conf.GetDataset()); err != nil {
		return err
	}

	defer p.Close()

	result, err := p.Run(ctx)
	if err != nil {
		return err
	}

	if !quiet {
		printResolutions(w, result.Resolutions)
	}

	printTable(w, result.Table)

	return nil
}

// printResolutions writes a line per address. Blank lines of the input
// are not addresses and are skipped.
func printResolutions(w io.Writer, resolutions []tallylib.Resolution) {
	for _, v := range resolutions {
		address := strings.TrimSpace(v.Address)

		switch {
		case address == "":
			continue
		case v.Status == tallylib.StatusResolved, v.Status == tallylib.StatusUnconvertible:
			fmt.Fprintf(w, "%s is from %s\n", address, v.Country)
		default:
			if v.Status == tallylib.StatusInvalidAddress {
				log.Debug().Str("address", address).Msg("Incorrect IP address")
			}

			fmt.Fprintf(w, "%s does not have a match in Geolite DB\n", address)
		}
	}
}

func printTable(w io.Writer, table tallylib.FrequencyTable) {
	for _, v := range table.Sorted() {
		fmt.Fprintf(w, "%s %d\n", v.Alpha3, v.Count)
	}
}
