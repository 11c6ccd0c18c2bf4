package datasets

import (
	"compress/gzip"
	"context"
	"crypto/sha1" // nolint: gosec
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/9seconds/geotally/tallylib"
	"github.com/PuerkitoBio/goquery"
)

const (
	// NameDBIPLite is a name of the DB-IP lite downloader.
	NameDBIPLite = "dbip_lite"

	dbipLiteFileName = "dbip-country-lite.mmdb"
)

var (
	errDBIPNothingOnPage = errors.New("could not find anything on a page")

	dbipLiteURLRegexp      = regexp.MustCompile(`^https?://download\.db-ip\.com/free/dbip-country-lite-.*?\.mmdb\.gz$`)
	dbipLiteChecksumRegexp = regexp.MustCompile(`(?i)^[0-9a-f]{40}$`)
)

// DBIPDownloader downloads a free country database from DB-IP. The
// result is MMDB file which could be opened with geolite2 or mmdb
// dataset kinds.
type DBIPDownloader struct {
	httpClient tallylib.HTTPClient
	pageURL    string
}

func (d *DBIPDownloader) Name() string {
	return NameDBIPLite
}

func (d *DBIPDownloader) FileName() string {
	return dbipLiteFileName
}

func (d *DBIPDownloader) Download(ctx context.Context, dir string) error {
	fileURL, checksum, err := d.getFileData(ctx)
	if err != nil {
		return fmt.Errorf("cannot parse download page: %w", err)
	}

	if err := d.downloadFile(ctx, fileURL, checksum, filepath.Join(dir, d.FileName())); err != nil {
		return fmt.Errorf("cannot download a file: %w", err)
	}

	return nil
}

func (d *DBIPDownloader) getFileData(ctx context.Context) (string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.pageURL, nil)
	if err != nil {
		return "", "", fmt.Errorf("cannot build a request: %w", err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("cannot request a download page: %w", err)
	}

	defer flushResponse(resp.Body)

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", "", fmt.Errorf("cannot parse html: %w", err)
	}

	fileURL, checksum := "", ""

	doc.Find("div.card").EachWithBreak(func(_ int, card *goquery.Selection) bool {
		card.Find("a.free_download_link[href]").EachWithBreak(func(_ int, link *goquery.Selection) bool {
			href, _ := link.Attr("href")
			if dbipLiteURLRegexp.MatchString(href) {
				fileURL = href
			}

			return fileURL == ""
		})

		if fileURL == "" {
			return true
		}

		card.Find("dd.small").EachWithBreak(func(_ int, dd *goquery.Selection) bool {
			text := strings.TrimSpace(dd.Text())
			if dbipLiteChecksumRegexp.MatchString(text) {
				checksum = text
			}

			return checksum == ""
		})

		if checksum == "" {
			fileURL = ""
		}

		return fileURL == ""
	})

	if fileURL == "" {
		return "", "", errDBIPNothingOnPage
	}

	return fileURL, checksum, nil
}

func (d *DBIPDownloader) downloadFile(ctx context.Context, fileURL, checksum, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return fmt.Errorf("cannot build a request: %w", err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("cannot download a file: %w", err)
	}

	defer flushResponse(resp.Body)

	fileReader, err := gzip.NewReader(resp.Body)
	if err != nil {
		return fmt.Errorf("cannot create a gzip reader: %w", err)
	}

	defer fileReader.Close()

	fp, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot open a target file: %w", err)
	}

	defer fp.Close()

	hasher := sha1.New() // nolint: gosec

	if _, err := io.Copy(io.MultiWriter(hasher, fp), fileReader); err != nil {
		return fmt.Errorf("cannot save a file on filesystem: %w", err)
	}

	if actual := hex.EncodeToString(hasher.Sum(nil)); !strings.EqualFold(actual, checksum) {
		return fmt.Errorf("checksum mismatch. expected=%s, actual=%s", checksum, actual)
	}

	return nil
}

// NewDBIPDownloader returns a downloader of a lite country database
// from DB-IP. It does not need any credentials.
//
//   Website: https://db-ip.com
func NewDBIPDownloader(httpClient tallylib.HTTPClient) *DBIPDownloader {
	return &DBIPDownloader{
		httpClient: httpClient,
		pageURL:    "https://db-ip.com/db/download/ip-to-country-lite",
	}
}
