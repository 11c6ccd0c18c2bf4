package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/9seconds/geotally/datasets"
	"github.com/9seconds/geotally/tallylib"
	"github.com/spf13/afero"
)

func makeRootContext() (context.Context, context.CancelFunc) {
	rootCtx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)

	go func() {
		for range sigChan {
			cancel()
		}
	}()

	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	return rootCtx, cancel
}

func makeDataset(conf *config, path string) (tallylib.Dataset, error) {
	dataset, err := datasets.Open(conf.GetDatasetKind(), path)
	if err != nil {
		return nil, fmt.Errorf("cannot open dataset: %w", err)
	}

	if conf.GetCacheSize() == 0 {
		return dataset, nil
	}

	cached, err := tallylib.NewCachingDataset(dataset, conf.GetCacheSize(), conf.GetCacheTTL())
	if err != nil {
		dataset.Close()

		return nil, fmt.Errorf("cannot create a cache for dataset: %w", err)
	}

	return cached, nil
}

func makeHTTPClient(conf *config) tallylib.HTTPClient {
	httpClient := &http.Client{
		Timeout: conf.GetHTTPTimeout(),
	}

	return tallylib.NewHTTPClient(httpClient,
		"geotally/"+version,
		conf.GetRateLimitInterval(),
		conf.GetRateLimitBurst(),
		3,
		conf.GetHTTPTimeout(),
		conf.GetUpdateEvery())
}

// canFetch tells if a downloader could be created without asking for
// credentials.
func canFetch(conf *config) bool {
	return conf.GetSource() == SourceDBIP || conf.GetLicenseKey() != ""
}

func makeFetcher(conf *config, logger tallylib.Logger) (*tallylib.Fetcher, error) {
	var downloader tallylib.Downloader

	switch conf.GetSource() {
	case SourceDBIP:
		downloader = datasets.NewDBIPDownloader(makeHTTPClient(conf))
	default:
		maxmind, err := datasets.NewMaxmindDownloader(makeHTTPClient(conf),
			conf.GetLicenseKey(),
			conf.GetEdition())
		if err != nil {
			return nil, fmt.Errorf("cannot create a downloader: %w", err)
		}

		downloader = maxmind
	}

	return tallylib.NewFetcher(conf.GetRootDirectory(), downloader, logger)
}

func loadBoundaries(fs afero.Fs, conf *config) ([]tallylib.Boundary, error) {
	if conf.GetBoundaries() == "" {
		return tallylib.DefaultBoundaries(), nil
	}

	return tallylib.LoadBoundaries(fs, conf.GetBoundaries())
}

// openOutput returns stdout for an empty path.
func openOutput(fs afero.Fs, path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopWriteCloser{os.Stdout}, nil
	}

	fp, err := fs.Create(path)
	if err != nil {
		return nil, fmt.Errorf("cannot create output file %s: %w", path, err)
	}

	return fp, nil
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error {
	return nil
}
