package stream

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rxtech-lab/argo-core/internal/types"
	"github.com/rxtech-lab/argo-core/mocks"
	"github.com/rxtech-lab/argo-core/pkg/errors"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

// fakeClock advances instantly and records every wait.
type fakeClock struct {
	mu    sync.Mutex
	now   time.Time
	waits []time.Duration
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.waits = append(c.waits, d)
	c.now = c.now.Add(d)
	ch := make(chan time.Time, 1)
	ch <- c.now

	return ch
}

// stuckClock never fires.
type stuckClock struct{}

func (stuckClock) Now() time.Time                       { return time.Time{} }
func (stuckClock) After(time.Duration) <-chan time.Time { return make(chan time.Time) }

type StreamTestSuite struct {
	suite.Suite
	ctrl  *gomock.Controller
	start time.Time
}

func TestStreamSuite(t *testing.T) {
	suite.Run(t, new(StreamTestSuite))
}

func (suite *StreamTestSuite) SetupTest() {
	suite.ctrl = gomock.NewController(suite.T())
	suite.start = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
}

func (suite *StreamTestSuite) TearDownTest() {
	suite.ctrl.Finish()
}

func (suite *StreamTestSuite) bar(minute int, price float64) types.Bar {
	return types.Bar{
		Symbol: "BTCUSDT",
		Time:   suite.start.Add(time.Duration(minute) * time.Minute),
		Open:   price,
		High:   price + 1,
		Low:    price - 1,
		Close:  price,
		Volume: 1,
	}
}

func (suite *StreamTestSuite) drain(s Stream) []types.Bar {
	var out []types.Bar

	for {
		bar, err := s.Next(context.Background())
		if stderrors.Is(err, ErrEndOfStream) {
			return out
		}

		suite.Require().NoError(err)
		out = append(out, bar)
	}
}

func (suite *StreamTestSuite) TestHistoricalReplaysIdentically() {
	bars := []types.Bar{suite.bar(0, 10), suite.bar(1, 11), suite.bar(2, 12)}

	h, err := NewHistorical(bars)
	suite.Require().NoError(err)
	suite.Equal(3, h.Len())

	first := suite.drain(h)
	suite.Equal(bars, first)

	// exhausted stream keeps signalling the end
	_, err = h.Next(context.Background())
	suite.ErrorIs(err, ErrEndOfStream)

	h.Reset()
	suite.Equal(first, suite.drain(h))

	fresh, err := NewHistorical(bars)
	suite.Require().NoError(err)
	suite.Equal(first, suite.drain(fresh))
}

func (suite *StreamTestSuite) TestHistoricalRejectsUnorderedBars() {
	_, err := NewHistorical([]types.Bar{suite.bar(1, 10), suite.bar(1, 11)})
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeUnorderedBars))

	bad := suite.bar(0, 10)
	bad.High = 5
	_, err = NewHistorical([]types.Bar{bad})
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidBar))
}

func (suite *StreamTestSuite) TestHistoricalHonoursContext() {
	h, err := NewHistorical([]types.Bar{suite.bar(0, 10)})
	suite.Require().NoError(err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = h.Next(ctx)
	suite.ErrorIs(err, context.Canceled)
}

func (suite *StreamTestSuite) TestLiveDeduplicatesByTimestamp() {
	fetcher := mocks.NewMockFetcher(suite.ctrl)
	clock := &fakeClock{}

	gomock.InOrder(
		fetcher.EXPECT().FetchLatest(gomock.Any(), "BTCUSDT").Return([]types.Bar{suite.bar(0, 10), suite.bar(1, 11)}, nil),
		fetcher.EXPECT().FetchLatest(gomock.Any(), "BTCUSDT").Return([]types.Bar{suite.bar(0, 10), suite.bar(1, 11)}, nil),
		fetcher.EXPECT().FetchLatest(gomock.Any(), "BTCUSDT").Return([]types.Bar{suite.bar(1, 11), suite.bar(2, 12)}, nil),
	)

	live, err := NewLive(fetcher, LiveConfig{Symbol: "BTCUSDT", Clock: clock})
	suite.Require().NoError(err)

	bar, err := live.Next(context.Background())
	suite.NoError(err)
	suite.Equal(suite.bar(1, 11), bar)

	// the second poll has nothing new, so the stream waits instead of ending
	bar, err = live.Next(context.Background())
	suite.NoError(err)
	suite.Equal(suite.bar(2, 12), bar)
	suite.Equal([]time.Duration{DefaultPollInterval}, clock.waits)
}

func (suite *StreamTestSuite) TestLiveRetriesTransientFailures() {
	fetcher := mocks.NewMockFetcher(suite.ctrl)
	clock := &fakeClock{}
	boom := stderrors.New("connection reset")

	gomock.InOrder(
		fetcher.EXPECT().FetchLatest(gomock.Any(), "BTCUSDT").Return(nil, boom),
		fetcher.EXPECT().FetchLatest(gomock.Any(), "BTCUSDT").Return(nil, boom),
		fetcher.EXPECT().FetchLatest(gomock.Any(), "BTCUSDT").Return([]types.Bar{suite.bar(0, 10)}, nil),
	)

	live, err := NewLive(fetcher, LiveConfig{Symbol: "BTCUSDT", Clock: clock, MaxRetries: 3})
	suite.Require().NoError(err)

	bar, err := live.Next(context.Background())
	suite.NoError(err)
	suite.Equal(suite.bar(0, 10), bar)
	suite.Equal([]time.Duration{5 * time.Second, 5 * time.Second}, clock.waits)
}

func (suite *StreamTestSuite) TestLiveFailsAfterMaxRetries() {
	fetcher := mocks.NewMockFetcher(suite.ctrl)
	clock := &fakeClock{}
	boom := stderrors.New("503 service unavailable")

	// initial attempt plus two retries
	fetcher.EXPECT().FetchLatest(gomock.Any(), "BTCUSDT").Return(nil, boom).Times(3)

	live, err := NewLive(fetcher, LiveConfig{Symbol: "BTCUSDT", Clock: clock, MaxRetries: 2})
	suite.Require().NoError(err)

	_, err = live.Next(context.Background())
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeStreamExhausted))
	suite.Equal(errors.KindFatal, errors.KindOf(err))
	suite.ErrorIs(err, boom)

	// failed streams stay failed without polling again
	_, again := live.Next(context.Background())
	suite.Equal(err, again)
}

func (suite *StreamTestSuite) TestLiveResetsFailureBudgetAfterSuccess() {
	fetcher := mocks.NewMockFetcher(suite.ctrl)
	clock := &fakeClock{}
	boom := stderrors.New("timeout")

	gomock.InOrder(
		fetcher.EXPECT().FetchLatest(gomock.Any(), "BTCUSDT").Return(nil, boom),
		fetcher.EXPECT().FetchLatest(gomock.Any(), "BTCUSDT").Return([]types.Bar{suite.bar(0, 10)}, nil),
		fetcher.EXPECT().FetchLatest(gomock.Any(), "BTCUSDT").Return(nil, boom),
		fetcher.EXPECT().FetchLatest(gomock.Any(), "BTCUSDT").Return([]types.Bar{suite.bar(1, 11)}, nil),
	)

	live, err := NewLive(fetcher, LiveConfig{Symbol: "BTCUSDT", Clock: clock, MaxRetries: 1})
	suite.Require().NoError(err)

	_, err = live.Next(context.Background())
	suite.NoError(err)
	_, err = live.Next(context.Background())
	suite.NoError(err)
}

func (suite *StreamTestSuite) TestLiveCustomBackOff() {
	fetcher := mocks.NewMockFetcher(suite.ctrl)
	clock := &fakeClock{}

	fetcher.EXPECT().FetchLatest(gomock.Any(), "BTCUSDT").Return(nil, stderrors.New("down")).Times(1)

	live, err := NewLive(fetcher, LiveConfig{Symbol: "BTCUSDT", Clock: clock, BackOff: &backoff.StopBackOff{}})
	suite.Require().NoError(err)

	_, err = live.Next(context.Background())
	suite.True(errors.HasCode(err, errors.ErrCodeStreamExhausted))
	suite.Empty(clock.waits)
}

func (suite *StreamTestSuite) TestLiveStopsOnCancel() {
	fetcher := mocks.NewMockFetcher(suite.ctrl)
	ctx, cancel := context.WithCancel(context.Background())

	fetcher.EXPECT().FetchLatest(gomock.Any(), "BTCUSDT").DoAndReturn(func(context.Context, string) ([]types.Bar, error) {
		cancel()

		return nil, nil
	})

	live, err := NewLive(fetcher, LiveConfig{Symbol: "BTCUSDT", Clock: stuckClock{}})
	suite.Require().NoError(err)

	_, err = live.Next(ctx)
	suite.ErrorIs(err, context.Canceled)
}

func (suite *StreamTestSuite) TestLiveFillsMissingSymbolAndSkipsInvalidBars() {
	fetcher := mocks.NewMockFetcher(suite.ctrl)
	bad := suite.bar(2, 12)
	bad.Low = 100
	good := suite.bar(1, 11)
	good.Symbol = ""

	fetcher.EXPECT().FetchLatest(gomock.Any(), "BTCUSDT").Return([]types.Bar{good, bad}, nil)

	live, err := NewLive(fetcher, LiveConfig{Symbol: "BTCUSDT", Clock: &fakeClock{}})
	suite.Require().NoError(err)

	bar, err := live.Next(context.Background())
	suite.NoError(err)
	suite.Equal("BTCUSDT", bar.Symbol)
	suite.Equal(good.Time, bar.Time)
}

func (suite *StreamTestSuite) TestNewLiveValidation() {
	_, err := NewLive(nil, LiveConfig{Symbol: "BTCUSDT"})
	suite.Error(err)

	_, err = NewLive(mocks.NewMockFetcher(suite.ctrl), LiveConfig{})
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}
