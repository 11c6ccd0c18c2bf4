package datasets_test

import (
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/9seconds/geotally/tallylib"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/suite"
)

const testMaxmindDatabase = "Country-Test.mmdb"

type DatasetTestSuite struct {
	suite.Suite
}

// GetTestdataPath returns a path to a file in testdata.
func (suite *DatasetTestSuite) GetTestdataPath(name string) string {
	path := filepath.Join("..", "testdata", name)

	_, err := os.Stat(path)

	suite.Require().NoError(err)

	return path
}

type MockedDownloaderTestSuite struct {
	suite.Suite

	http   tallylib.HTTPClient
	tmpDir string
}

func (suite *MockedDownloaderTestSuite) SetupSuite() {
	httpmock.Activate()
}

func (suite *MockedDownloaderTestSuite) TearDownSuite() {
	httpmock.DeactivateAndReset()
}

func (suite *MockedDownloaderTestSuite) SetupTest() {
	suite.http = tallylib.NewHTTPClient(&http.Client{},
		"test-agent",
		time.Millisecond,
		100,
		100,
		time.Minute,
		time.Minute)
	suite.tmpDir = suite.T().TempDir()
}

func (suite *MockedDownloaderTestSuite) TearDownTest() {
	httpmock.Reset()
}
