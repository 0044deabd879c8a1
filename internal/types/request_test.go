package types

import (
	"testing"
	"time"

	"github.com/rxtech-lab/argo-core/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type RequestTestSuite struct {
	suite.Suite
}

func TestRequestSuite(t *testing.T) {
	suite.Run(t, new(RequestTestSuite))
}

func (suite *RequestTestSuite) validRequest() RunRequest {
	return RunRequest{
		Strategy:  "SmaCross",
		Symbol:    "EURUSD",
		StartDate: "2023-01-01",
		EndDate:   "2023-02-01",
		Params:    map[string]any{"pfast": 10, "pslow": 30},
	}
}

func (suite *RequestTestSuite) TestValidRequest() {
	req := suite.validRequest()
	suite.NoError(req.Validate())

	start, end, err := req.Range()
	suite.NoError(err)
	suite.Equal(time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), start)
	suite.Equal(time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC), end)
	suite.Equal(DefaultInitialCash, req.Cash())
}

func (suite *RequestTestSuite) TestBadDateString() {
	req := suite.validRequest()
	req.StartDate = "01/01/2023"

	err := req.Validate()
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidDate))
	suite.Equal(errors.KindConfiguration, errors.KindOf(err))
}

func (suite *RequestTestSuite) TestStartMustPrecedeEnd() {
	req := suite.validRequest()
	req.StartDate = "2023-02-01"

	err := req.Validate()
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidDateRange))
}

func (suite *RequestTestSuite) TestMissingStrategy() {
	req := suite.validRequest()
	req.Strategy = ""

	err := req.Validate()
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidParameter))
}

func (suite *RequestTestSuite) TestNegativeCash() {
	req := suite.validRequest()
	req.InitialCash = -5
	suite.Error(req.Validate())

	req.InitialCash = 2500
	suite.NoError(req.Validate())
	suite.Equal(2500.0, req.Cash())
}
