package main

import (
	"context"
	"io/ioutil"
	"path/filepath"

	"github.com/9seconds/geotally/api"
	"github.com/9seconds/geotally/tallylib"
	"github.com/spf13/afero"
)

func (suite *CommandsTestSuite) MakeService() *tallyService {
	p, err := newPipeline(afero.NewOsFs(), suite.conf, newLogger())

	suite.Require().NoError(err)
	suite.Require().NoError(p.Open(suite.conf.GetDataset()))
	suite.T().Cleanup(p.Close)

	return &tallyService{
		pipeline: p,
		state:    &api.State{},
	}
}

func (suite *CommandsTestSuite) Published(service *tallyService) tallylib.FrequencyTable {
	snapshot, ok := service.state.Get()

	suite.Require().True(ok)

	return snapshot.Table
}

func (suite *CommandsTestSuite) TestServiceRefresh() {
	service := suite.MakeService()

	_, ok := service.state.Get()

	suite.False(ok)
	suite.NoError(service.Refresh(context.Background()))

	snapshot, ok := service.state.Get()

	suite.True(ok)
	suite.Equal(tallylib.FrequencyTable{"USA": 2, "AUS": 1}, snapshot.Table)
	suite.Equal(6, snapshot.Addresses)
	suite.False(snapshot.UpdatedAt.IsZero())
}

func (suite *CommandsTestSuite) TestServiceReopen() {
	service := suite.MakeService()
	path := filepath.Join(suite.dir, "db2.csv")

	suite.Require().NoError(ioutil.WriteFile(path, []byte("8.8.8.0/24,Germany\n"), 0o644))
	suite.NoError(service.Reopen(context.Background(), path))
	suite.Equal(tallylib.FrequencyTable{"DEU": 2}, suite.Published(service))
	suite.Equal(path, service.pipeline.DatasetPath())
}

func (suite *CommandsTestSuite) TestServiceReopenBrokenDataset() {
	service := suite.MakeService()

	suite.NoError(service.Refresh(context.Background()))
	suite.Error(service.Reopen(context.Background(), filepath.Join(suite.dir, "absent.csv")))
	suite.Equal(tallylib.FrequencyTable{"USA": 2, "AUS": 1}, suite.Published(service))
	suite.Equal(suite.conf.GetDataset(), service.pipeline.DatasetPath())
}

func (suite *CommandsTestSuite) TestServiceFileChanged() {
	service := suite.MakeService()
	ctx := context.Background()

	datasetPath, err := filepath.Abs(suite.conf.GetDataset())

	suite.Require().NoError(err)
	suite.Require().NoError(ioutil.WriteFile(datasetPath, []byte("8.8.8.0/24,Germany\n"), 0o644))

	service.FileChanged(ctx, datasetPath)
	suite.Equal(tallylib.FrequencyTable{"DEU": 2}, suite.Published(service))

	inputPath, err := filepath.Abs(suite.conf.GetInput())

	suite.Require().NoError(err)
	suite.Require().NoError(ioutil.WriteFile(inputPath, []byte("8.8.8.1\n8.8.8.2\n8.8.8.3\n"), 0o644))

	service.FileChanged(ctx, inputPath)
	suite.Equal(tallylib.FrequencyTable{"DEU": 3}, suite.Published(service))
}
