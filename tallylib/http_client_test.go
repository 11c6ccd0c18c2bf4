package tallylib_test

import (
	"context"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/9seconds/geotally/tallylib"
	"github.com/mccutchen/go-httpbin/httpbin"
	"github.com/stretchr/testify/suite"
)

type HTTPClientTestSuite struct {
	suite.Suite

	httpbinEndpoint *httptest.Server
	c               tallylib.HTTPClient
}

func (suite *HTTPClientTestSuite) SetupSuite() {
	suite.httpbinEndpoint = httptest.NewServer(httpbin.NewHTTPBin().Handler())
}

func (suite *HTTPClientTestSuite) TearDownSuite() {
	suite.httpbinEndpoint.Close()
}

func (suite *HTTPClientTestSuite) SetupTest() {
	suite.c = tallylib.NewHTTPClient(suite.httpbinEndpoint.Client(),
		"geotally-test",
		100*time.Millisecond,
		1,
		3,
		time.Minute,
		time.Minute)
}

func (suite *HTTPClientTestSuite) TestRateLimiter() {
	now := time.Now()
	wg := &sync.WaitGroup{}
	mutex := &sync.Mutex{}

	for i := 0; i < 8; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			req, _ := http.NewRequest(http.MethodGet, suite.httpbinEndpoint.URL+"/get", nil)
			resp, err := suite.c.Do(req)

			mutex.Lock()
			defer mutex.Unlock()

			if suite.NoError(err) {
				suite.Equal(http.StatusOK, resp.StatusCode)
				resp.Body.Close()
			}
		}()
	}

	wg.Wait()

	suite.True(time.Since(now) > 600*time.Millisecond)
}

func (suite *HTTPClientTestSuite) TestUserAgent() {
	req, _ := http.NewRequest(http.MethodGet, suite.httpbinEndpoint.URL+"/user-agent", nil)
	resp, err := suite.c.Do(req)

	suite.Require().NoError(err)

	defer resp.Body.Close()

	suite.Contains(resp.Header.Get("Content-Type"), "application/json")

	body, err := ioutil.ReadAll(resp.Body)

	suite.NoError(err)
	suite.Contains(string(body), "geotally-test")
}

func (suite *HTTPClientTestSuite) TestBadStatus() {
	req, _ := http.NewRequest(http.MethodGet, suite.httpbinEndpoint.URL+"/status/500", nil)
	_, err := suite.c.Do(req)

	suite.Error(err)
}

func (suite *HTTPClientTestSuite) TestCannotDial() {
	req, _ := http.NewRequest(http.MethodGet, suite.httpbinEndpoint.URL+"1/get", nil)
	_, err := suite.c.Do(req)

	suite.Error(err)
}

func (suite *HTTPClientTestSuite) TestCircuitBreakerOpens() {
	for i := 0; i < 4; i++ {
		req, _ := http.NewRequest(http.MethodGet, suite.httpbinEndpoint.URL+"/status/503", nil)
		suite.c.Do(req) // nolint: errcheck
	}

	req, _ := http.NewRequest(http.MethodGet, suite.httpbinEndpoint.URL+"/get", nil)
	_, err := suite.c.Do(req)

	suite.ErrorIs(err, tallylib.ErrCircuitBreakerOpened)
}

func (suite *HTTPClientTestSuite) TestClientErrorsDoNotOpenCircuitBreaker() {
	for i := 0; i < 6; i++ {
		req, _ := http.NewRequest(http.MethodGet, suite.httpbinEndpoint.URL+"/status/404", nil)
		_, err := suite.c.Do(req)

		suite.Error(err)
		suite.NotErrorIs(err, tallylib.ErrCircuitBreakerOpened)
	}

	req, _ := http.NewRequest(http.MethodGet, suite.httpbinEndpoint.URL+"/get", nil)
	resp, err := suite.c.Do(req)

	suite.Require().NoError(err)
	resp.Body.Close()
}

func (suite *HTTPClientTestSuite) TestCircuitBreakerIsPerHost() {
	brokenEndpoint := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer brokenEndpoint.Close()

	for i := 0; i < 4; i++ {
		req, _ := http.NewRequest(http.MethodGet, brokenEndpoint.URL, nil)
		suite.c.Do(req) // nolint: errcheck
	}

	req, _ := http.NewRequest(http.MethodGet, brokenEndpoint.URL, nil)
	_, err := suite.c.Do(req)

	suite.ErrorIs(err, tallylib.ErrCircuitBreakerOpened)

	req, _ = http.NewRequest(http.MethodGet, suite.httpbinEndpoint.URL+"/get", nil)
	resp, err := suite.c.Do(req)

	suite.Require().NoError(err)
	resp.Body.Close()
}

func (suite *HTTPClientTestSuite) TestCancelledContext() {
	ctx, cancel := context.WithCancel(context.Background())

	cancel()

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, suite.httpbinEndpoint.URL+"/get", nil)
	_, err := suite.c.Do(req)

	suite.Error(err)
}

func TestHTTPClient(t *testing.T) {
	suite.Run(t, &HTTPClientTestSuite{})
}
