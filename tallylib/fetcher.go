package tallylib

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Fetcher keeps a single actual copy of a downloaded dataset in its
// root directory.
type Fetcher struct {
	dir        fsDir
	downloader Downloader
	logger     Logger
	usageStats *UsageStats
}

// Current returns a path to the dataset file from the latest
// successful fetch.
func (f *Fetcher) Current() (string, error) {
	target, err := f.dir.TargetDir()
	if err != nil {
		return "", fmt.Errorf("dataset %s was not fetched yet: %w", f.downloader.Name(), err)
	}

	return filepath.Join(target, f.downloader.FileName()), nil
}

// Fetch downloads a fresh copy of the dataset and returns a path to
// the database file. If the content has not changed, the current target
// directory is kept.
func (f *Fetcher) Fetch(ctx context.Context) (string, error) {
	path, err := f.fetch(ctx)
	if err != nil {
		f.logger.UpdateError(f.downloader.Name(), err)

		return "", err
	}

	f.usageStats.Updated()

	return path, nil
}

// UsageStats returns statistics on dataset updates.
func (f *Fetcher) UsageStats() *UsageStats {
	return f.usageStats
}

func (f *Fetcher) fetch(ctx context.Context) (string, error) {
	tmpDir, err := f.dir.TempDir()
	if err != nil {
		return "", fmt.Errorf("cannot create a temporary directory: %w", err)
	}

	defer os.RemoveAll(tmpDir) // nolint: errcheck

	if err := f.downloader.Download(ctx, tmpDir); err != nil {
		return "", fmt.Errorf("cannot download to tmp directory: %w", err)
	}

	if _, err := os.Stat(filepath.Join(tmpDir, f.downloader.FileName())); err != nil {
		return "", fmt.Errorf("downloader has not produced %s: %w", f.downloader.FileName(), err)
	}

	target, changed, err := f.dir.Promote(tmpDir)
	if err != nil {
		return "", fmt.Errorf("cannot promote tmp directory: %w", err)
	}

	if err := f.dir.Cleanup(target); err != nil {
		return "", fmt.Errorf("cannot cleanup stale directories: %w", err)
	}

	if changed {
		f.logger.UpdateInfo(f.downloader.Name(), "dataset has been updated")
	} else {
		f.logger.UpdateInfo(f.downloader.Name(), "dataset is up to date")
	}

	return filepath.Join(target, f.downloader.FileName()), nil
}

// NewFetcher creates a fetcher which stores datasets in rootDir. The
// directory is created if it does not exist.
func NewFetcher(rootDir string, downloader Downloader, logger Logger) (*Fetcher, error) {
	if err := os.MkdirAll(rootDir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create root directory %s: %w", rootDir, err)
	}

	return &Fetcher{
		dir:        fsDir{root: rootDir},
		downloader: downloader,
		logger:     logger,
		usageStats: &UsageStats{Name: downloader.Name()},
	}, nil
}

// IsNotFetched tells if an error means there is no fetched dataset
// yet.
func IsNotFetched(err error) bool {
	return errors.Is(err, errNoTargetDir)
}
