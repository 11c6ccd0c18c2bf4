package main

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/9seconds/geotally/tallylib"
	"github.com/stretchr/testify/suite"
)

type ConfigTestSuite struct {
	suite.Suite

	dir string
}

func (suite *ConfigTestSuite) SetupTest() {
	suite.dir = suite.T().TempDir()
}

func (suite *ConfigTestSuite) Setenv(key, value string) {
	suite.Require().NoError(os.Setenv(key, value))

	suite.T().Cleanup(func() {
		os.Unsetenv(key)
	})
}

func (suite *ConfigTestSuite) WriteConfig(name, content string) string {
	path := filepath.Join(suite.dir, name)

	suite.Require().NoError(ioutil.WriteFile(path, []byte(content), 0o644))

	return path
}

func (suite *ConfigTestSuite) TestDefaults() {
	conf, err := parseConfig("", nil)

	suite.Require().NoError(err)
	suite.Equal(DefaultInput, conf.GetInput())
	suite.Equal(DefaultDataset, conf.GetDataset())
	suite.Equal("geolite2", conf.GetDatasetKind())
	suite.Equal(tallylib.RendererText, conf.GetFormat())
	suite.Equal(DefaultListen, conf.GetListen())
	suite.False(conf.TrustProxyHeaders)
	suite.Equal(tallylib.ConversionDrop, conf.GetConversionPolicy())
	suite.Equal(tallylib.DefaultWorkerPoolSize, conf.GetWorkerPoolSize())
	suite.EqualValues(0, conf.GetCacheSize())
	suite.Equal(DefaultCacheTTL, conf.GetCacheTTL())
	suite.Equal(DefaultUpdateEvery, conf.GetUpdateEvery())
	suite.Equal(DefaultHTTPTimeout, conf.GetHTTPTimeout())
	suite.Equal(DefaultRateLimitInterval, conf.GetRateLimitInterval())
	suite.Equal(DefaultRateLimitBurst, conf.GetRateLimitBurst())
	suite.Equal("GeoLite2-Country", conf.GetEdition())
	suite.Equal(SourceMaxmind, conf.GetSource())
	suite.False(canFetch(conf))
	suite.True(filepath.IsAbs(conf.GetRootDirectory()))
}

func (suite *ConfigTestSuite) TestHJSON() {
	path := suite.WriteConfig("config.hjson", `{
    # comments are allowed
    input: /var/log/ips.txt
    dataset_kind: csv
    worker_pool_size: 8
    conversion_policy: fail
    cache_size: 100
    cache_ttl: 5m
    listen: 0.0.0.0:9000
    trust_proxy_headers: true
}`)

	conf, err := parseConfig(path, nil)

	suite.Require().NoError(err)
	suite.Equal("/var/log/ips.txt", conf.GetInput())
	suite.Equal("csv", conf.GetDatasetKind())
	suite.Equal(8, conf.GetWorkerPoolSize())
	suite.Equal(tallylib.ConversionFail, conf.GetConversionPolicy())
	suite.EqualValues(100, conf.GetCacheSize())
	suite.Equal(5*time.Minute, conf.GetCacheTTL())
	suite.Equal("0.0.0.0:9000", conf.GetListen())
	suite.True(conf.TrustProxyHeaders)
}

func (suite *ConfigTestSuite) TestTOML() {
	path := suite.WriteConfig("config.toml", `
input = "ips.txt"
dataset = "db.bin"
dataset_kind = "ip2location"
update_every = "6h"
format = "csv"
`)

	conf, err := parseConfig(path, nil)

	suite.Require().NoError(err)
	suite.Equal("ips.txt", conf.GetInput())
	suite.Equal("db.bin", conf.GetDataset())
	suite.Equal("ip2location", conf.GetDatasetKind())
	suite.Equal(6*time.Hour, conf.GetUpdateEvery())
	suite.Equal("csv", conf.GetFormat())
}

func (suite *ConfigTestSuite) TestEnvironmentAndOverride() {
	path := suite.WriteConfig("config.hjson", `{
    input: from_file.txt
    dataset: from_file.mmdb
}`)

	suite.Setenv("GEOTALLY_INPUT", "from_env.txt")
	suite.Setenv("GEOTALLY_HTTP_TIMEOUT", "3s")

	conf, err := parseConfig(path, func(c *config) {
		c.Dataset = "from_flag.mmdb"
	})

	suite.Require().NoError(err)
	suite.Equal("from_env.txt", conf.GetInput())
	suite.Equal("from_flag.mmdb", conf.GetDataset())
	suite.Equal(3*time.Second, conf.GetHTTPTimeout())
}

func (suite *ConfigTestSuite) TestInvalid() {
	testData := map[string]string{
		"listen.hjson":   "listen: localhost",
		"kind.hjson":     "dataset_kind: sypex",
		"format.hjson":   "format: svg",
		"policy.hjson":   "conversion_policy: guess",
		"source.hjson":   "source: ftp",
		"duration.hjson": "cache_ttl: 5",
		"broken.toml":    `input = `,
		"broken.hjson":   `{`,
	}

	for name, content := range testData {
		_, err := parseConfig(suite.WriteConfig(name, content), nil)

		suite.Error(err, name)
	}
}

func (suite *ConfigTestSuite) TestAbsentFile() {
	_, err := parseConfig(filepath.Join(suite.dir, "absent.hjson"), nil)

	suite.Error(err)
}

func TestConfig(t *testing.T) {
	suite.Run(t, &ConfigTestSuite{})
}
