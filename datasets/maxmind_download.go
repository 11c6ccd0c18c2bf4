package datasets

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/9seconds/geotally/tallylib"
)

// DefaultMaxmindEdition is a free country database from MaxMind.
const DefaultMaxmindEdition = "GeoLite2-Country"

const maxmindArchiveName = "archive.tar.gz"

var maxmindChecksumRegexp = regexp.MustCompile(`^(?i)[a-f0-9]{64}$`)

// MaxmindDownloader downloads GeoLite2 databases from MaxMind.
type MaxmindDownloader struct {
	httpClient tallylib.HTTPClient
	licenseKey string
	edition    string
	baseURL    string
}

func (m *MaxmindDownloader) Name() string {
	return "maxmind_" + strings.ToLower(m.edition)
}

func (m *MaxmindDownloader) FileName() string {
	return m.edition + ".mmdb"
}

func (m *MaxmindDownloader) Download(ctx context.Context, dir string) error {
	expectedChecksum, err := m.downloadChecksum(ctx)
	if err != nil {
		return fmt.Errorf("cannot download a checksum: %w", err)
	}

	archivePath := filepath.Join(dir, maxmindArchiveName)

	defer os.Remove(archivePath) // nolint: errcheck

	actualChecksum, err := m.downloadArchive(ctx, archivePath)
	if err != nil {
		return fmt.Errorf("cannot download an archive: %w", err)
	}

	if !strings.EqualFold(expectedChecksum, actualChecksum) {
		return fmt.Errorf("checksum mismatch. expected=%s, actual=%s",
			expectedChecksum,
			actualChecksum)
	}

	if err := m.extractArchive(archivePath, filepath.Join(dir, m.FileName())); err != nil {
		return fmt.Errorf("cannot extract archive: %w", err)
	}

	return nil
}

func (m *MaxmindDownloader) downloadChecksum(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.buildURL("tar.gz.sha256"), nil)
	if err != nil {
		return "", fmt.Errorf("cannot build a request: %w", err)
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("cannot fetch checksum page: %w", err)
	}

	defer flushResponse(resp.Body)

	data, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("cannot read body of the response: %w", err)
	}

	fields := bytes.Fields(data)
	if len(fields) == 0 || !maxmindChecksumRegexp.Match(fields[0]) {
		return "", fmt.Errorf("incorrect checksum format: %q", data)
	}

	return string(fields[0]), nil
}

func (m *MaxmindDownloader) downloadArchive(ctx context.Context, path string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.buildURL("tar.gz"), nil)
	if err != nil {
		return "", fmt.Errorf("cannot build a request: %w", err)
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("cannot download an archive: %w", err)
	}

	defer flushResponse(resp.Body)

	archiveFile, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("cannot create an archive file: %w", err)
	}

	defer archiveFile.Close()

	hasher := sha256.New()

	if _, err := io.Copy(io.MultiWriter(hasher, archiveFile), resp.Body); err != nil {
		return "", fmt.Errorf("cannot copy response into a file: %w", err)
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

func (m *MaxmindDownloader) extractArchive(archivePath, databasePath string) error {
	archiveFile, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("cannot open archive: %w", err)
	}

	defer archiveFile.Close()

	ungzipReader, err := gzip.NewReader(archiveFile)
	if err != nil {
		return fmt.Errorf("cannot create a gzip reader: %w", err)
	}

	defer ungzipReader.Close()

	tarReader := tar.NewReader(ungzipReader)

	for {
		header, err := tarReader.Next()

		switch {
		case errors.Is(err, io.EOF):
			return ErrNoFile
		case err != nil:
			return fmt.Errorf("cannot extract a header: %w", err)
		case header.Typeflag != tar.TypeReg:
			continue
		case strings.EqualFold(filepath.Ext(header.Name), ".mmdb"):
			return copyToFile(databasePath, tarReader)
		}
	}
}

func (m *MaxmindDownloader) buildURL(suffix string) string {
	queryValues := url.Values{}

	queryValues.Set("edition_id", m.edition)
	queryValues.Set("suffix", suffix)
	queryValues.Set("license_key", m.licenseKey)

	return m.baseURL + "?" + queryValues.Encode()
}

func copyToFile(path string, src io.Reader) error {
	fp, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot create a file for a database: %w", err)
	}

	if _, err := io.Copy(fp, src); err != nil {
		fp.Close()

		return fmt.Errorf("cannot copy into a database file: %w", err)
	}

	return fp.Close()
}

func flushResponse(body io.ReadCloser) {
	io.Copy(ioutil.Discard, body) // nolint: errcheck
	body.Close()
}

// NewMaxmindDownloader returns a downloader of lite databases from
// MaxMind. A license key is required. An empty edition means
// GeoLite2-Country.
//
//   Website: https://maxmind.com
func NewMaxmindDownloader(httpClient tallylib.HTTPClient, licenseKey, edition string) (*MaxmindDownloader, error) {
	if licenseKey == "" {
		return nil, ErrAuthTokenIsRequired
	}

	if edition == "" {
		edition = DefaultMaxmindEdition
	}

	return &MaxmindDownloader{
		httpClient: httpClient,
		licenseKey: licenseKey,
		edition:    edition,
		baseURL:    "https://download.maxmind.com/app/geoip_download",
	}, nil
}
