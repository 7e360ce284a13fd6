package testutil

import (
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/goccy/go-json"
)

// WireMarket is the catalog API's wire shape, exported so tests can shape
// malformed entries as easily as valid ones.
type WireMarket struct {
	ConditionID string `json:"conditionId"`
	Question    string `json:"question"`
	Slug        string `json:"slug"`
	EndDate     string `json:"endDate"`
	Active      bool   `json:"active"`
	Closed      bool   `json:"closed"`
}

// WireTrade is the trades feed's wire shape.
type WireTrade struct {
	Outcome string  `json:"outcome"`
	Price   float64 `json:"price"`
}

// MockGammaAPI simulates the market catalog endpoint.
type MockGammaAPI struct {
	*httptest.Server
	mu      sync.Mutex
	markets []WireMarket
}

// NewMockGammaAPI starts a mock catalog server. Close it when done.
func NewMockGammaAPI() *MockGammaAPI {
	m := &MockGammaAPI{}

	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/markets" {
			http.NotFound(w, r)
			return
		}

		m.mu.Lock()
		defer m.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(m.markets)
	}))

	return m
}

// SetMarkets replaces the served market list.
func (m *MockGammaAPI) SetMarkets(markets ...WireMarket) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.markets = markets
}

// MockDataAPI simulates the recent-trades endpoint.
type MockDataAPI struct {
	*httptest.Server
	mu     sync.Mutex
	trades []WireTrade
}

// NewMockDataAPI starts a mock trades server. Close it when done.
func NewMockDataAPI() *MockDataAPI {
	m := &MockDataAPI{}

	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/trades" {
			http.NotFound(w, r)
			return
		}

		m.mu.Lock()
		defer m.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(m.trades)
	}))

	return m
}

// SetTrades replaces the served trade window, most recent first.
func (m *MockDataAPI) SetTrades(trades ...WireTrade) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trades = trades
}
