package tallylib_test

import (
	"context"
	"net"
	"sync"

	"github.com/9seconds/geotally/tallylib"
	"github.com/stretchr/testify/mock"
)

type DatasetMock struct {
	mock.Mock
}

func (m *DatasetMock) Lookup(ctx context.Context, ip net.IP) (tallylib.DatasetLookupResult, error) {
	args := m.Called(ctx, ip)

	return args.Get(0).(tallylib.DatasetLookupResult), args.Error(1)
}

func (m *DatasetMock) Name() string {
	return m.Called().String(0)
}

func (m *DatasetMock) Close() error {
	return m.Called().Error(0)
}

type LoggerMock struct {
	mock.Mock
}

func (m *LoggerMock) LookupError(ip net.IP, name string, err error) {
	m.Called(ip, name, err)
}

func (m *LoggerMock) ConversionError(ip net.IP, country string) {
	m.Called(ip, country)
}

func (m *LoggerMock) UpdateInfo(name, msg string) {
	m.Called(name, msg)
}

func (m *LoggerMock) UpdateError(name string, err error) {
	m.Called(name, err)
}

// staticDataset answers from a map. Addresses which are absent in
// the map have no match.
type staticDataset struct {
	data map[string]tallylib.DatasetLookupResult
	errs map[string]error

	mutex sync.Mutex
	calls int
}

func (s *staticDataset) Name() string {
	return "static"
}

func (s *staticDataset) Lookup(_ context.Context, ip net.IP) (tallylib.DatasetLookupResult, error) {
	s.mutex.Lock()
	s.calls++
	s.mutex.Unlock()

	if err, ok := s.errs[ip.String()]; ok {
		return tallylib.DatasetLookupResult{}, err
	}

	if res, ok := s.data[ip.String()]; ok {
		return res, nil
	}

	return tallylib.DatasetLookupResult{}, tallylib.ErrNoMatch
}

func (s *staticDataset) Close() error {
	return nil
}

func (s *staticDataset) Calls() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.calls
}
