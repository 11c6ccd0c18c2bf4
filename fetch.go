package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/9seconds/geotally/tallylib"
)

func runFetch(ctx context.Context, conf *config, w io.Writer) error {
	fetcher, err := makeFetcher(conf, newLogger())
	if err != nil {
		return err
	}

	path, err := fetcher.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("cannot fetch dataset: %w", err)
	}

	fmt.Fprintln(w, path)

	return nil
}

// runUpdater fetches a dataset right away and then periodically until
// the context is closed. The callback is called when a path to the
// dataset changes, i.e. it has new content.
func runUpdater(ctx context.Context, fetcher *tallylib.Fetcher, every time.Duration, lastPath string, callback func(string)) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		if path, err := fetcher.Fetch(ctx); err == nil && path != lastPath {
			lastPath = path
			callback(path)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
