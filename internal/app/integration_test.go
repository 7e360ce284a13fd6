package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/hivetrader/sessionbot/internal/testutil"
	"github.com/hivetrader/sessionbot/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig(gammaURL, dataURL string) *config.Config {
	return &config.Config{
		LogLevel: "info",
		HTTPPort: "0",

		GammaAPIURL:            gammaURL,
		DataAPIURL:             dataURL,
		MarketTopicKeyword:     "btc",
		MarketDurationKeywords: []string{"15", "15m", "15-min"},
		MarketFetchLimit:       200,
		TradesFetchLimit:       50,
		FeedFetchTimeout:       2 * time.Second,

		PricePollInterval:     20 * time.Millisecond,
		MarketRefreshInterval: 50 * time.Millisecond,
		IdlePollInterval:      10 * time.Millisecond,

		TradeMode:         "paper",
		TradeTargetShares: 20,
		TradeMaxPrice:     0.60,
		TradeMaxSessions:  0,

		StorageMode: "memory",
	}
}

func TestApp_New_MemoryStorage(t *testing.T) {
	gamma := testutil.NewMockGammaAPI()
	defer gamma.Close()
	data := testutil.NewMockDataAPI()
	defer data.Close()

	a, err := New(testConfig(gamma.URL, data.URL), zap.NewNop(), nil)
	require.NoError(t, err)
	defer a.cancel()

	assert.NotNil(t, a.scheduler)
	assert.NotNil(t, a.httpServer)
	assert.NotNil(t, a.store)
}

func TestApp_EndToEnd_SessionFillsAndSettles(t *testing.T) {
	gamma := testutil.NewMockGammaAPI()
	defer gamma.Close()
	data := testutil.NewMockDataAPI()
	defer data.Close()

	expiry := time.Now().Add(400 * time.Millisecond)
	gamma.SetMarkets(testutil.BTCMarket("0xabc", expiry))
	data.SetTrades(testutil.YesNoTrades(0.55, 0.58)...)

	a, err := New(testConfig(gamma.URL, data.URL), zap.NewNop(), &Options{AutoStart: true})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = a.scheduler.Run(ctx)
	}()

	server := httptest.NewServer(a.httpServer.Handler())
	defer server.Close()

	// Both sides fill at their first favorable observation.
	require.Eventually(t, func() bool {
		sessions, err := a.store.ListSessions(context.Background(), 1)
		if err != nil || len(sessions) == 0 {
			return false
		}
		return sessions[0].FilledYes == 20 && sessions[0].FilledNo == 20
	}, 3*time.Second, 10*time.Millisecond)

	// After expiry the session settles at min(20,20) - 22.60 = -2.60.
	require.Eventually(t, func() bool {
		total, err := a.store.TotalPnL(context.Background())
		if err != nil {
			return false
		}
		return total < -2.59 && total > -2.61
	}, 3*time.Second, 10*time.Millisecond)

	// The control surface reports the realized result.
	resp, err := http.Get(server.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()

	var status struct {
		Control struct {
			Running        bool `json:"running"`
			SessionsClosed int  `json:"sessions_closed"`
		} `json:"control"`
		TotalPnL float64 `json:"total_pnl"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.True(t, status.Control.Running)
	assert.GreaterOrEqual(t, status.Control.SessionsClosed, 1)
	assert.InDelta(t, -2.60, status.TotalPnL, 0.01)

	cancel()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestApp_ControlSurface_RoundTrip(t *testing.T) {
	gamma := testutil.NewMockGammaAPI()
	defer gamma.Close()
	data := testutil.NewMockDataAPI()
	defer data.Close()

	a, err := New(testConfig(gamma.URL, data.URL), zap.NewNop(), nil)
	require.NoError(t, err)
	defer a.cancel()

	server := httptest.NewServer(a.httpServer.Handler())
	defer server.Close()

	resp, err := http.Post(server.URL+"/start", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.True(t, a.controlState.Snapshot().Running)

	resp, err = http.Post(server.URL+"/controls", "application/json",
		strings.NewReader(`{"shares": 10, "max_price": 0.25}`))
	require.NoError(t, err)
	resp.Body.Close()

	snap := a.controlState.Snapshot()
	assert.Equal(t, 10, snap.TargetShares)
	assert.InDelta(t, 0.25, snap.MaxPrice, 1e-9)

	resp, err = http.Post(server.URL+"/stop", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.False(t, a.controlState.Snapshot().Running)
}

func TestApp_SettlementWithoutFills(t *testing.T) {
	gamma := testutil.NewMockGammaAPI()
	defer gamma.Close()
	data := testutil.NewMockDataAPI()
	defer data.Close()

	// Market expires almost immediately; no trades ever observed.
	gamma.SetMarkets(testutil.BTCMarket("0xdef", time.Now().Add(80*time.Millisecond)))

	a, err := New(testConfig(gamma.URL, data.URL), zap.NewNop(), &Options{AutoStart: true})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = a.scheduler.Run(ctx) }()

	require.Eventually(t, func() bool {
		sessions, err := a.store.ListSessions(context.Background(), 10)
		if err != nil {
			return false
		}
		for _, s := range sessions {
			if !s.Open() && s.PnL != nil && *s.PnL == 0 {
				return true
			}
		}
		return false
	}, 3*time.Second, 10*time.Millisecond)
}
