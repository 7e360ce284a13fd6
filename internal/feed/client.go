package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/hivetrader/sessionbot/pkg/types"
	"go.uber.org/zap"
)

// Client talks to the Gamma catalog API and the Data API trades feed.
type Client struct {
	gammaURL    string
	dataURL     string
	fetchLimit  int
	tradesLimit int
	timeout     time.Duration
	httpClient  *http.Client
	logger      *zap.Logger
}

// ClientConfig holds feed client configuration.
type ClientConfig struct {
	GammaURL    string
	DataURL     string
	FetchLimit  int
	TradesLimit int
	Timeout     time.Duration
	Logger      *zap.Logger
}

// NewClient creates a new feed client.
func NewClient(cfg *ClientConfig) *Client {
	return &Client{
		gammaURL:    cfg.GammaURL,
		dataURL:     cfg.DataURL,
		fetchLimit:  cfg.FetchLimit,
		tradesLimit: cfg.TradesLimit,
		timeout:     cfg.Timeout,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: cfg.Logger,
	}
}

// gammaMarket is the catalog API's wire shape for one market.
type gammaMarket struct {
	ConditionID string `json:"conditionId"`
	Question    string `json:"question"`
	Slug        string `json:"slug"`
	EndDate     string `json:"endDate"`
	Active      bool   `json:"active"`
	Closed      bool   `json:"closed"`
}

// Trade is one record from the Data API trades feed, already validated.
type Trade struct {
	Side  types.Side
	Price float64
}

// tradeRecord is the Data API's wire shape for one trade.
type tradeRecord struct {
	Outcome string  `json:"outcome"`
	Price   float64 `json:"price"`
}

// FetchMarkets fetches active markets from the catalog API. Entries with a
// missing condition id or an unparseable end date are dropped here so the
// rest of the bot only ever sees well-formed instances.
func (c *Client) FetchMarkets(ctx context.Context) ([]types.MarketInstance, error) {
	params := url.Values{}
	params.Add("active", "true")
	params.Add("closed", "false")
	params.Add("limit", strconv.Itoa(c.fetchLimit))

	body, err := c.get(ctx, fmt.Sprintf("%s/markets?%s", c.gammaURL, params.Encode()))
	if err != nil {
		FetchErrorsTotal.WithLabelValues("markets").Inc()
		return nil, err
	}

	var raw []gammaMarket
	err = json.Unmarshal(body, &raw)
	if err != nil {
		FetchErrorsTotal.WithLabelValues("markets").Inc()
		return nil, fmt.Errorf("unmarshal markets: %w", err)
	}

	instances := make([]types.MarketInstance, 0, len(raw))
	for i := range raw {
		m := &raw[i]

		if m.ConditionID == "" || !m.Active || m.Closed {
			continue
		}

		endDate, err := time.Parse(time.RFC3339, m.EndDate)
		if err != nil {
			c.logger.Debug("dropping-market-bad-end-date",
				zap.String("condition-id", m.ConditionID),
				zap.String("end-date", m.EndDate))
			continue
		}

		instances = append(instances, types.MarketInstance{
			ConditionID: m.ConditionID,
			Question:    m.Question,
			Slug:        m.Slug,
			EndDate:     endDate,
		})
	}

	MarketsFetchedTotal.Add(float64(len(instances)))

	c.logger.Debug("fetched-markets",
		zap.Int("raw", len(raw)),
		zap.Int("valid", len(instances)))

	return instances, nil
}

// FetchTrades fetches the recent-trades window in the feed's natural order,
// most recent first. Records with an unknown outcome tag or a non-positive
// price are dropped.
func (c *Client) FetchTrades(ctx context.Context) ([]Trade, error) {
	params := url.Values{}
	params.Add("limit", strconv.Itoa(c.tradesLimit))

	body, err := c.get(ctx, fmt.Sprintf("%s/trades?%s", c.dataURL, params.Encode()))
	if err != nil {
		FetchErrorsTotal.WithLabelValues("trades").Inc()
		return nil, err
	}

	var raw []tradeRecord
	err = json.Unmarshal(body, &raw)
	if err != nil {
		FetchErrorsTotal.WithLabelValues("trades").Inc()
		return nil, fmt.Errorf("unmarshal trades: %w", err)
	}

	trades := make([]Trade, 0, len(raw))
	for i := range raw {
		side := types.Side(strings.ToUpper(raw[i].Outcome))
		if !side.Valid() || raw[i].Price <= 0 {
			continue
		}

		trades = append(trades, Trade{Side: side, Price: raw[i].Price})
	}

	return trades, nil
}

func (c *Client) get(ctx context.Context, requestURL string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "sessionbot/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	return body, nil
}
