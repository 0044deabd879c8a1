package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-core/internal/backtest/engine"
	"github.com/rxtech-lab/argo-core/internal/datasource"
	"github.com/rxtech-lab/argo-core/internal/logger"
	"github.com/rxtech-lab/argo-core/internal/strategy"
	"github.com/rxtech-lab/argo-core/internal/task"
	"github.com/rxtech-lab/argo-core/internal/types"
	"github.com/rxtech-lab/argo-core/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type ServerTestSuite struct {
	suite.Suite
	manager *task.Manager
	server  *httptest.Server
}

func TestServerSuite(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
}

func (suite *ServerTestSuite) SetupTest() {
	backtest, err := engine.New(engine.Config{Source: datasource.NewGenerator(), Logger: logger.NewNop()})
	suite.Require().NoError(err)

	suite.manager, err = task.NewManager(backtest, task.NewMemoryStore(), task.Config{Workers: 1, Logger: logger.NewNop()})
	suite.Require().NoError(err)
	suite.manager.Start(context.Background())

	api, err := NewServer(suite.manager, nil, logger.NewNop())
	suite.Require().NoError(err)

	suite.server = httptest.NewServer(api.Handler())
}

func (suite *ServerTestSuite) TearDownTest() {
	suite.server.Close()
	suite.Require().NoError(suite.manager.Shutdown(context.Background()))
}

func (suite *ServerTestSuite) do(method, path string, body any) (*http.Response, []byte) {
	resp, raw, err := suite.send(method, path, body)
	suite.Require().NoError(err)

	return resp, raw
}

func (suite *ServerTestSuite) send(method, path string, body any) (*http.Response, []byte, error) {
	var reader *bytes.Reader

	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			return nil, nil, err
		}

		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, suite.server.URL+path, reader)
	if err != nil {
		return nil, nil, err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, nil, err
	}

	return resp, buf.Bytes(), nil
}

func (suite *ServerTestSuite) TestRootAndHealth() {
	resp, body := suite.do(http.MethodGet, "/", nil)
	suite.Equal(http.StatusOK, resp.StatusCode)
	suite.Contains(string(body), `"status":"running"`)

	resp, body = suite.do(http.MethodGet, "/health", nil)
	suite.Equal(http.StatusOK, resp.StatusCode)
	suite.JSONEq(`{"status":"ok"}`, string(body))
}

func (suite *ServerTestSuite) TestSubmitAndPoll() {
	resp, body := suite.do(http.MethodPost, "/api/v1/backtest/run", types.RunRequest{
		Strategy:  strategy.SmaCrossName,
		Symbol:    "EURUSD",
		StartDate: "2024-01-01",
		EndDate:   "2024-01-08",
		Params:    map[string]any{"pfast": 5, "pslow": 20},
	})
	suite.Require().Equal(http.StatusAccepted, resp.StatusCode, string(body))

	var submitted SubmitResponse
	suite.Require().NoError(json.Unmarshal(body, &submitted))
	suite.Equal("submitted", submitted.Status)
	suite.NotEmpty(submitted.TaskID)

	var status types.TaskStatus

	suite.Require().Eventually(func() bool {
		resp, body, err := suite.send(http.MethodGet, "/api/v1/backtest/status/"+submitted.TaskID, nil)
		if err != nil || resp.StatusCode != http.StatusOK {
			return false
		}

		if err := json.Unmarshal(body, &status); err != nil {
			return false
		}

		return status.State.IsDone()
	}, 10*time.Second, 10*time.Millisecond)

	suite.Equal(types.TaskStateSuccess, status.State, status.Error)
	suite.Require().NotNil(status.Result)
	suite.Equal(7*24, status.Result.Bars)
	suite.Equal(types.DefaultInitialCash, status.Result.InitialCash)
	suite.NotEmpty(status.Result.ChartSeries)
}

func (suite *ServerTestSuite) TestSubmitErrors() {
	testCases := []struct {
		name   string
		body   any
		status int
		code   errors.ErrorCode
	}{
		{name: "malformed json", body: "{", status: http.StatusBadRequest, code: errors.ErrCodeInvalidParameter},
		{name: "unknown field", body: `{"strategy":"sma_cross","bogus":1}`, status: http.StatusBadRequest, code: errors.ErrCodeInvalidParameter},
		{name: "missing fields", body: types.RunRequest{Strategy: strategy.SmaCrossName}, status: http.StatusBadRequest, code: errors.ErrCodeInvalidParameter},
		{
			name:   "bad date",
			body:   types.RunRequest{Strategy: strategy.SmaCrossName, Symbol: "EURUSD", StartDate: "01-01-2024", EndDate: "2024-02-01"},
			status: http.StatusBadRequest,
			code:   errors.ErrCodeInvalidDate,
		},
		{
			name:   "unknown strategy",
			body:   types.RunRequest{Strategy: "rsi", Symbol: "EURUSD", StartDate: "2024-01-01", EndDate: "2024-02-01"},
			status: http.StatusBadRequest,
			code:   errors.ErrCodeUnknownStrategy,
		},
	}

	for _, tc := range testCases {
		suite.Run(tc.name, func() {
			resp, body := suite.do(http.MethodPost, "/api/v1/backtest/run", tc.body)
			suite.Equal(tc.status, resp.StatusCode)

			var out errorResponse
			suite.Require().NoError(json.Unmarshal(body, &out))
			suite.Equal(tc.code, out.Code)
			suite.NotEmpty(out.Error)
		})
	}
}

func (suite *ServerTestSuite) TestUnknownTask() {
	resp, body := suite.do(http.MethodGet, "/api/v1/backtest/status/nope", nil)
	suite.Equal(http.StatusNotFound, resp.StatusCode)
	suite.Contains(string(body), "nope")

	resp, _ = suite.do(http.MethodGet, "/api/v1/unknown", nil)
	suite.Equal(http.StatusNotFound, resp.StatusCode)

	resp, _ = suite.do(http.MethodGet, "/api/v1/backtest/run", nil)
	suite.Equal(http.StatusMethodNotAllowed, resp.StatusCode)
}

func (suite *ServerTestSuite) TestStrategies() {
	resp, body := suite.do(http.MethodGet, "/api/v1/backtest/strategies", nil)
	suite.Equal(http.StatusOK, resp.StatusCode)

	var out []StrategyInfo
	suite.Require().NoError(json.Unmarshal(body, &out))
	suite.Require().Len(out, 1)
	suite.Equal(strategy.SmaCrossName, out[0].Name)
	suite.NotEmpty(out[0].Description)
	suite.NotNil(out[0].Params)
}

type busyTasks struct{}

func (busyTasks) Submit(context.Context, types.RunRequest) (types.TaskStatus, error) {
	return types.TaskStatus{}, errors.New(errors.ErrCodeTaskQueueFull, "task queue is full")
}

func (busyTasks) Get(context.Context, string) (types.TaskStatus, error) {
	return types.TaskStatus{}, errors.New(errors.ErrCodeTaskStoreFailed, "database is locked")
}

func (suite *ServerTestSuite) TestServiceErrors() {
	api, err := NewServer(busyTasks{}, nil, logger.NewNop())
	suite.Require().NoError(err)

	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/backtest/run", bytes.NewReader([]byte(`{}`))))
	suite.Equal(http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/backtest/status/x", nil))
	suite.Equal(http.StatusInternalServerError, rec.Code)
	suite.Contains(rec.Body.String(), "database is locked")
}

func (suite *ServerTestSuite) TestStartAndStop() {
	api, err := NewServer(suite.manager, strategy.DefaultRegistry(), logger.NewNop())
	suite.Require().NoError(err)
	suite.Empty(api.Address())

	suite.Require().NoError(api.Start("127.0.0.1:0"))

	resp, err := http.Get("http://" + api.Address() + "/health")
	suite.Require().NoError(err)
	resp.Body.Close()
	suite.Equal(http.StatusOK, resp.StatusCode)

	suite.NoError(api.Stop(context.Background()))

	_, err = NewServer(nil, nil, logger.NewNop())
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}
