package tallylib

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
)

const (
	// FsTargetDirPrefix marks an active directory with a downloaded
	// dataset. Its suffix is a checksum of directory contents so the
	// same download always ends up in the same directory.
	//
	// Everything else in a fetcher root directory is garbage and can
	// be removed at any moment.
	FsTargetDirPrefix = "target_"

	// FsTempDirPrefix is a prefix of directories a download goes into
	// before it gets promoted to a target one.
	FsTempDirPrefix = "tmp_"
)

var errNoTargetDir = errors.New("cannot find a target dir")

type fsDir struct {
	root string
}

func (f fsDir) TempDir() (string, error) {
	return ioutil.TempDir(f.root, FsTempDirPrefix)
}

func (f fsDir) TargetDir() (string, error) {
	infos, err := ioutil.ReadDir(f.root)
	if err != nil {
		return "", fmt.Errorf("cannot read dir %s: %w", f.root, err)
	}

	for _, v := range infos {
		if v.IsDir() && strings.HasPrefix(v.Name(), FsTargetDirPrefix) {
			return filepath.Join(f.root, v.Name()), nil
		}
	}

	return "", errNoTargetDir
}

// Promote moves a directory into a content-addressed target one. It
// returns a target path and a flag if anything has changed.
func (f fsDir) Promote(dir string) (string, bool, error) {
	checksum, err := dirChecksum(dir)
	if err != nil {
		return "", false, fmt.Errorf("cannot make a checksum: %w", err)
	}

	target := filepath.Join(f.root, FsTargetDirPrefix+checksum)

	if _, err := os.Stat(target); err == nil {
		return target, false, nil
	}

	if err := os.Rename(dir, target); err != nil {
		return "", false, fmt.Errorf("cannot rename %s to %s: %w", dir, target, err)
	}

	return target, true, nil
}

// Cleanup removes everything from the root directory except of given
// paths.
func (f fsDir) Cleanup(keep ...string) error {
	infos, err := ioutil.ReadDir(f.root)
	if err != nil {
		return fmt.Errorf("cannot read dir %s: %w", f.root, err)
	}

	toKeep := make(map[string]bool, len(keep))

	for _, v := range keep {
		toKeep[filepath.Clean(v)] = true
	}

	for _, v := range infos {
		fullPath := filepath.Join(f.root, v.Name())

		if toKeep[fullPath] {
			continue
		}

		if err := os.RemoveAll(fullPath); err != nil {
			return fmt.Errorf("cannot remove %s: %w", fullPath, err)
		}
	}

	return nil
}

func dirChecksum(dir string) (string, error) {
	hasher := sha256.New()
	nameSign := []byte{0}
	contentSign := []byte{1}

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		switch {
		case err != nil:
			return err
		case info.IsDir():
			return nil
		}

		relPath, err := filepath.Rel(dir, path)
		if err != nil {
			return fmt.Errorf("cannot build a relative path of %s to %s: %w", path, dir, err)
		}

		hasher.Write(nameSign)                            // nolint: errcheck
		io.WriteString(hasher, filepath.ToSlash(relPath)) // nolint: errcheck
		hasher.Write(contentSign)                         // nolint: errcheck

		fp, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("cannot open a file %s: %w", path, err)
		}

		defer fp.Close()

		if _, err := io.Copy(hasher, fp); err != nil {
			return fmt.Errorf("cannot read a file %s: %w", path, err)
		}

		return nil
	})
	if err != nil {
		return "", fmt.Errorf("cannot traverse directory %s: %w", dir, err)
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}
