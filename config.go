package main

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/9seconds/geotally/datasets"
	"github.com/9seconds/geotally/tallylib"
	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v6"
	"github.com/hjson/hjson-go"
)

const (
	DefaultInput             = "ip_list.txt"
	DefaultDataset           = "GeoLite2-Country.mmdb"
	DefaultListen            = "127.0.0.1:8080"
	DefaultHTTPTimeout       = 10 * time.Second
	DefaultUpdateEvery       = 24 * time.Hour
	DefaultRateLimitInterval = 100 * time.Millisecond
	DefaultRateLimitBurst    = 10
	DefaultCacheTTL          = time.Hour
)

const (
	SourceMaxmind = "maxmind"
	SourceDBIP    = "dbip"
)

type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(b []byte) error {
	dur, err := time.ParseDuration(strings.TrimSpace(string(b)))
	if err != nil {
		return fmt.Errorf("cannot parse duration: %w", err)
	}

	d.Duration = dur

	return nil
}

func (d *duration) UnmarshalJSON(b []byte) error {
	var v interface{}

	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("cannot unmarshal duration: %w", err)
	}

	vv, ok := v.(string)
	if !ok {
		return fmt.Errorf("incorrect duration: %v", v)
	}

	return d.UnmarshalText([]byte(vv))
}

type config struct {
	Input            string `json:"input" toml:"input" env:"GEOTALLY_INPUT"`
	Dataset          string `json:"dataset" toml:"dataset" env:"GEOTALLY_DATASET"`
	DatasetKind      string `json:"dataset_kind" toml:"dataset_kind" env:"GEOTALLY_DATASET_KIND"`
	Boundaries       string `json:"boundaries" toml:"boundaries" env:"GEOTALLY_BOUNDARIES"`
	Format           string `json:"format" toml:"format" env:"GEOTALLY_FORMAT"`
	Output           string `json:"output" toml:"output" env:"GEOTALLY_OUTPUT"`
	ConversionPolicy string `json:"conversion_policy" toml:"conversion_policy" env:"GEOTALLY_CONVERSION_POLICY"`
	WorkerPoolSize   uint   `json:"worker_pool_size" toml:"worker_pool_size" env:"GEOTALLY_WORKER_POOL_SIZE"`

	CacheSize uint     `json:"cache_size" toml:"cache_size" env:"GEOTALLY_CACHE_SIZE"`
	CacheTTL  duration `json:"cache_ttl" toml:"cache_ttl" env:"GEOTALLY_CACHE_TTL"`

	Listen            string `json:"listen" toml:"listen" env:"GEOTALLY_LISTEN"`
	BasicAuthUser     string `json:"basic_auth_user" toml:"basic_auth_user" env:"GEOTALLY_BASIC_AUTH_USER"`
	BasicAuthPassword string `json:"basic_auth_password" toml:"basic_auth_password" env:"GEOTALLY_BASIC_AUTH_PASSWORD"`
	TrustProxyHeaders bool   `json:"trust_proxy_headers" toml:"trust_proxy_headers" env:"GEOTALLY_TRUST_PROXY_HEADERS"`

	RootDirectory     string   `json:"root_directory" toml:"root_directory" env:"GEOTALLY_ROOT_DIRECTORY"`
	Source            string   `json:"source" toml:"source" env:"GEOTALLY_SOURCE"`
	LicenseKey        string   `json:"license_key" toml:"license_key" env:"GEOTALLY_LICENSE_KEY"`
	Edition           string   `json:"edition" toml:"edition" env:"GEOTALLY_EDITION"`
	UpdateEvery       duration `json:"update_every" toml:"update_every" env:"GEOTALLY_UPDATE_EVERY"`
	HTTPTimeout       duration `json:"http_timeout" toml:"http_timeout" env:"GEOTALLY_HTTP_TIMEOUT"`
	RateLimitInterval duration `json:"rate_limit_interval" toml:"rate_limit_interval" env:"GEOTALLY_RATE_LIMIT_INTERVAL"`
	RateLimitBurst    uint     `json:"rate_limit_burst" toml:"rate_limit_burst" env:"GEOTALLY_RATE_LIMIT_BURST"`
}

func (c *config) GetInput() string {
	if c.Input != "" {
		return c.Input
	}

	return DefaultInput
}

func (c *config) GetDataset() string {
	if c.Dataset != "" {
		return c.Dataset
	}

	return DefaultDataset
}

func (c *config) GetDatasetKind() string {
	if c.DatasetKind != "" {
		return strings.ToLower(c.DatasetKind)
	}

	return datasets.NameGeolite2
}

func (c *config) GetBoundaries() string {
	return c.Boundaries
}

func (c *config) GetFormat() string {
	if c.Format != "" {
		return strings.ToLower(c.Format)
	}

	return tallylib.RendererText
}

func (c *config) GetOutput() string {
	return c.Output
}

func (c *config) GetConversionPolicy() tallylib.ConversionPolicy {
	policy, _ := tallylib.ParseConversionPolicy(c.ConversionPolicy)

	return policy
}

func (c *config) GetWorkerPoolSize() int {
	if c.WorkerPoolSize == 0 {
		return tallylib.DefaultWorkerPoolSize
	}

	return int(c.WorkerPoolSize)
}

func (c *config) GetCacheSize() uint {
	return c.CacheSize
}

func (c *config) GetCacheTTL() time.Duration {
	if c.CacheTTL.Duration == 0 {
		return DefaultCacheTTL
	}

	return c.CacheTTL.Duration
}

func (c *config) GetListen() string {
	if c.Listen != "" {
		return c.Listen
	}

	return DefaultListen
}

func (c *config) GetRootDirectory() string {
	if c.RootDirectory != "" {
		return c.RootDirectory
	}

	return filepath.Join(os.TempDir(), "geotally")
}

func (c *config) GetSource() string {
	if c.Source != "" {
		return strings.ToLower(c.Source)
	}

	return SourceMaxmind
}

func (c *config) GetLicenseKey() string {
	return c.LicenseKey
}

func (c *config) GetEdition() string {
	if c.Edition != "" {
		return c.Edition
	}

	return datasets.DefaultMaxmindEdition
}

func (c *config) GetUpdateEvery() time.Duration {
	if c.UpdateEvery.Duration == 0 {
		return DefaultUpdateEvery
	}

	return c.UpdateEvery.Duration
}

func (c *config) GetHTTPTimeout() time.Duration {
	if c.HTTPTimeout.Duration == 0 {
		return DefaultHTTPTimeout
	}

	return c.HTTPTimeout.Duration
}

func (c *config) GetRateLimitInterval() time.Duration {
	if c.RateLimitInterval.Duration == 0 {
		return DefaultRateLimitInterval
	}

	return c.RateLimitInterval.Duration
}

func (c *config) GetRateLimitBurst() int {
	if c.RateLimitBurst == 0 {
		return DefaultRateLimitBurst
	}

	return int(c.RateLimitBurst)
}

func (c *config) validate() error {
	if _, _, err := net.SplitHostPort(c.GetListen()); err != nil {
		return fmt.Errorf("incorrect host:port for listen: %w", err)
	}

	if !stringIn(c.GetDatasetKind(), datasets.Kinds) {
		return fmt.Errorf("unsupported dataset kind %s", c.GetDatasetKind())
	}

	if !stringIn(c.GetSource(), []string{SourceMaxmind, SourceDBIP}) {
		return fmt.Errorf("unsupported dataset source %s", c.GetSource())
	}

	if _, err := tallylib.NewRenderer(c.GetFormat()); err != nil {
		return fmt.Errorf("incorrect format: %w", err)
	}

	if _, err := tallylib.ParseConversionPolicy(c.ConversionPolicy); err != nil {
		return fmt.Errorf("incorrect conversion policy: %w", err)
	}

	rootDir, err := filepath.Abs(c.GetRootDirectory())
	if err != nil {
		return fmt.Errorf("incorrect root directory: %w", err)
	}

	c.RootDirectory = rootDir

	return nil
}

// parseConfig reads a config file and applies environment variables
// and then override on top of it. An empty path means defaults.
func parseConfig(path string, override func(*config)) (*config, error) {
	conf := &config{}

	if path != "" {
		content, err := ioutil.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("cannot read file: %w", err)
		}

		if strings.EqualFold(filepath.Ext(path), ".toml") {
			if _, err := toml.Decode(string(content), conf); err != nil {
				return nil, fmt.Errorf("cannot parse toml: %w", err)
			}
		} else if err := decodeHJSON(content, conf); err != nil {
			return nil, err
		}
	}

	if err := env.Parse(conf); err != nil {
		return nil, fmt.Errorf("cannot parse environment variables: %w", err)
	}

	if override != nil {
		override(conf)
	}

	if err := conf.validate(); err != nil {
		return nil, err
	}

	return conf, nil
}

func decodeHJSON(content []byte, conf *config) error {
	rawMap := map[string]interface{}{}

	if err := hjson.Unmarshal(content, &rawMap); err != nil {
		return fmt.Errorf("cannot parse hjson: %w", err)
	}

	rawBytes, err := json.Marshal(rawMap)
	if err != nil {
		return fmt.Errorf("cannot convert hjson: %w", err)
	}

	if err := json.Unmarshal(rawBytes, conf); err != nil {
		return fmt.Errorf("incorrect config structure: %w", err)
	}

	return nil
}

func stringIn(value string, values []string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}

	return false
}
