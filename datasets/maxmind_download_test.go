package datasets_test

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io/ioutil"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/9seconds/geotally/datasets"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/suite"
)

const (
	maxmindChecksumURL = "https://download.maxmind.com/app/geoip_download?edition_id=GeoLite2-Country&license_key=apikey&suffix=tar.gz.sha256"
	maxmindArchiveURL  = "https://download.maxmind.com/app/geoip_download?edition_id=GeoLite2-Country&license_key=apikey&suffix=tar.gz"
)

type MaxmindDownloaderTestSuite struct {
	MockedDownloaderTestSuite

	d *datasets.MaxmindDownloader
}

func (suite *MaxmindDownloaderTestSuite) SetupTest() {
	suite.MockedDownloaderTestSuite.SetupTest()

	d, err := datasets.NewMaxmindDownloader(suite.http, "apikey", "")

	suite.Require().NoError(err)

	suite.d = d
}

func (suite *MaxmindDownloaderTestSuite) MakeArchive(name, content string) ([]byte, string) {
	buf := &bytes.Buffer{}
	w := gzip.NewWriter(buf)
	tarFile := tar.NewWriter(w)

	tarFile.WriteHeader(&tar.Header{ // nolint: errcheck
		Typeflag: tar.TypeDir,
		Name:     "GeoLite2-Country_20201110/",
		Mode:     0o755,
		ModTime:  time.Now(),
	})
	tarFile.WriteHeader(&tar.Header{ // nolint: errcheck
		Typeflag: tar.TypeReg,
		Name:     "GeoLite2-Country_20201110/" + name,
		Mode:     0o644,
		ModTime:  time.Now(),
		Size:     int64(len(content)),
	})
	tarFile.Write([]byte(content)) // nolint: errcheck
	tarFile.Close()
	w.Close()

	hashed := sha256.Sum256(buf.Bytes())

	return buf.Bytes(), hex.EncodeToString(hashed[:])
}

func (suite *MaxmindDownloaderTestSuite) TestNoLicenseKey() {
	_, err := datasets.NewMaxmindDownloader(suite.http, "", "")

	suite.ErrorIs(err, datasets.ErrAuthTokenIsRequired)
}

func (suite *MaxmindDownloaderTestSuite) TestNames() {
	suite.Equal("maxmind_geolite2-country", suite.d.Name())
	suite.Equal("GeoLite2-Country.mmdb", suite.d.FileName())
}

func (suite *MaxmindDownloaderTestSuite) TestCancelledContext() {
	ctx, cancel := context.WithCancel(context.Background())

	cancel()

	suite.Error(suite.d.Download(ctx, suite.tmpDir))
}

func (suite *MaxmindDownloaderTestSuite) TestChecksumBadStatus() {
	httpmock.RegisterResponder(http.MethodGet, maxmindChecksumURL,
		httpmock.NewStringResponder(http.StatusUnauthorized, "Invalid license key"))

	suite.Error(suite.d.Download(context.Background(), suite.tmpDir))
}

func (suite *MaxmindDownloaderTestSuite) TestChecksumBadFormat() {
	httpmock.RegisterResponder(http.MethodGet, maxmindChecksumURL,
		httpmock.NewStringResponder(http.StatusOK, "???"))

	suite.Error(suite.d.Download(context.Background(), suite.tmpDir))
}

func (suite *MaxmindDownloaderTestSuite) TestArchiveBadStatus() {
	httpmock.RegisterResponder(http.MethodGet, maxmindChecksumURL,
		httpmock.NewStringResponder(http.StatusOK,
			"2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824  GeoLite2-Country.tar.gz"))
	httpmock.RegisterResponder(http.MethodGet, maxmindArchiveURL,
		httpmock.NewStringResponder(http.StatusInternalServerError, ""))

	suite.Error(suite.d.Download(context.Background(), suite.tmpDir))
}

func (suite *MaxmindDownloaderTestSuite) TestChecksumMismatch() {
	archive, _ := suite.MakeArchive("GeoLite2-Country.mmdb", "hello")

	httpmock.RegisterResponder(http.MethodGet, maxmindChecksumURL,
		httpmock.NewStringResponder(http.StatusOK,
			"2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824  GeoLite2-Country.tar.gz"))
	httpmock.RegisterResponder(http.MethodGet, maxmindArchiveURL,
		httpmock.NewBytesResponder(http.StatusOK, archive))

	suite.Error(suite.d.Download(context.Background(), suite.tmpDir))
}

func (suite *MaxmindDownloaderTestSuite) TestNotGzip() {
	hashed := sha256.Sum256([]byte("hello"))

	httpmock.RegisterResponder(http.MethodGet, maxmindChecksumURL,
		httpmock.NewStringResponder(http.StatusOK,
			hex.EncodeToString(hashed[:])+"  GeoLite2-Country.tar.gz"))
	httpmock.RegisterResponder(http.MethodGet, maxmindArchiveURL,
		httpmock.NewStringResponder(http.StatusOK, "hello"))

	suite.Error(suite.d.Download(context.Background(), suite.tmpDir))
}

func (suite *MaxmindDownloaderTestSuite) TestNoDatabaseInArchive() {
	archive, checksum := suite.MakeArchive("COPYRIGHT.txt", "hello")

	httpmock.RegisterResponder(http.MethodGet, maxmindChecksumURL,
		httpmock.NewStringResponder(http.StatusOK, checksum+"  GeoLite2-Country.tar.gz"))
	httpmock.RegisterResponder(http.MethodGet, maxmindArchiveURL,
		httpmock.NewBytesResponder(http.StatusOK, archive))

	suite.ErrorIs(suite.d.Download(context.Background(), suite.tmpDir), datasets.ErrNoFile)
}

func (suite *MaxmindDownloaderTestSuite) TestOk() {
	archive, checksum := suite.MakeArchive("GeoLite2-Country.mmdb", "hello")

	httpmock.RegisterResponder(http.MethodGet, maxmindChecksumURL,
		httpmock.NewStringResponder(http.StatusOK, checksum+"  GeoLite2-Country.tar.gz"))
	httpmock.RegisterResponder(http.MethodGet, maxmindArchiveURL,
		httpmock.NewBytesResponder(http.StatusOK, archive))

	suite.NoError(suite.d.Download(context.Background(), suite.tmpDir))

	data, err := ioutil.ReadFile(filepath.Join(suite.tmpDir, "GeoLite2-Country.mmdb"))

	suite.NoError(err)
	suite.Equal("hello", string(data))

	_, err = os.Stat(filepath.Join(suite.tmpDir, "archive.tar.gz"))

	suite.True(os.IsNotExist(err))
}

func TestMaxmindDownloader(t *testing.T) {
	suite.Run(t, &MaxmindDownloaderTestSuite{})
}
