package tallylib

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"
)

type FsDirTestSuite struct {
	suite.Suite

	dir fsDir
}

func (suite *FsDirTestSuite) SetupTest() {
	suite.dir = fsDir{root: suite.T().TempDir()}
}

func (suite *FsDirTestSuite) MakeDir(content string) string {
	dir, err := suite.dir.TempDir()

	suite.Require().NoError(err)
	suite.Require().NoError(ioutil.WriteFile(filepath.Join(dir, "db.mmdb"), []byte(content), 0o644))

	return dir
}

func (suite *FsDirTestSuite) TestNoTargetDir() {
	_, err := suite.dir.TargetDir()

	suite.ErrorIs(err, errNoTargetDir)
}

func (suite *FsDirTestSuite) TestTempDirPrefix() {
	dir := suite.MakeDir("x")

	suite.True(strings.HasPrefix(filepath.Base(dir), FsTempDirPrefix))
}

func (suite *FsDirTestSuite) TestPromote() {
	dir := suite.MakeDir("content")

	target, changed, err := suite.dir.Promote(dir)

	suite.NoError(err)
	suite.True(changed)
	suite.True(strings.HasPrefix(filepath.Base(target), FsTargetDirPrefix))

	current, err := suite.dir.TargetDir()

	suite.NoError(err)
	suite.Equal(target, current)

	_, err = os.Stat(dir)

	suite.True(os.IsNotExist(err))
}

func (suite *FsDirTestSuite) TestPromoteSameContent() {
	target1, changed, err := suite.dir.Promote(suite.MakeDir("content"))

	suite.NoError(err)
	suite.True(changed)

	target2, changed, err := suite.dir.Promote(suite.MakeDir("content"))

	suite.NoError(err)
	suite.False(changed)
	suite.Equal(target1, target2)
}

func (suite *FsDirTestSuite) TestPromoteDifferentContent() {
	target1, _, err := suite.dir.Promote(suite.MakeDir("content1"))

	suite.NoError(err)

	target2, changed, err := suite.dir.Promote(suite.MakeDir("content2"))

	suite.NoError(err)
	suite.True(changed)
	suite.NotEqual(target1, target2)
}

func (suite *FsDirTestSuite) TestCleanup() {
	target, _, err := suite.dir.Promote(suite.MakeDir("content"))

	suite.Require().NoError(err)

	suite.MakeDir("garbage")
	suite.Require().NoError(ioutil.WriteFile(filepath.Join(suite.dir.root, "stale"), nil, 0o644))

	suite.NoError(suite.dir.Cleanup(target))

	infos, err := ioutil.ReadDir(suite.dir.root)

	suite.NoError(err)
	suite.Len(infos, 1)
	suite.Equal(filepath.Base(target), infos[0].Name())
}

func TestFsDir(t *testing.T) {
	suite.Run(t, &FsDirTestSuite{})
}
