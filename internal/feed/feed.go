package feed

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/hivetrader/sessionbot/pkg/cache"
	"github.com/hivetrader/sessionbot/pkg/types"
	"go.uber.org/zap"
)

// currentMarketKey is the single cache slot for the resolved instance.
const currentMarketKey = "feed:current-market"

// Feed resolves the recurring market's current instance and the latest
// observed price per outcome. Fetch failures never escape CurrentMarket or
// LatestPrices: callers see "no market" / "no prices" and skip the cycle.
type Feed struct {
	client           *Client
	cache            cache.Cache
	topicKeyword     string
	durationKeywords []string
	refreshTTL       time.Duration
	logger           *zap.Logger
	now              func() time.Time
}

// Config holds feed adapter configuration.
type Config struct {
	Client           *Client
	Cache            cache.Cache
	TopicKeyword     string
	DurationKeywords []string
	RefreshTTL       time.Duration
	Logger           *zap.Logger
}

// New creates a new feed adapter.
func New(cfg *Config) *Feed {
	return &Feed{
		client:           cfg.Client,
		cache:            cfg.Cache,
		topicKeyword:     strings.ToLower(cfg.TopicKeyword),
		durationKeywords: cfg.DurationKeywords,
		refreshTTL:       cfg.RefreshTTL,
		logger:           cfg.Logger,
		now:              time.Now,
	}
}

// CurrentMarket returns the instance currently running, or nil when no
// candidate matches. The catalog is hit at most once per refresh window; in
// between, the cached instance is served. A fetch failure is logged and
// surfaced as nil, indistinguishable from "no market".
func (f *Feed) CurrentMarket(ctx context.Context) *types.MarketInstance {
	if cached, found := f.cache.Get(currentMarketKey); found {
		if instance, ok := cached.(*types.MarketInstance); ok {
			return instance
		}
	}

	markets, err := f.client.FetchMarkets(ctx)
	if err != nil {
		f.logger.Warn("market-fetch-failed", zap.Error(err))
		return nil
	}

	instance := f.selectInstance(markets)
	if instance == nil {
		f.logger.Debug("no-matching-market",
			zap.String("topic-keyword", f.topicKeyword),
			zap.Int("markets", len(markets)))
		return nil
	}

	f.cache.Set(currentMarketKey, instance, f.refreshTTL)

	f.logger.Info("current-market-resolved",
		zap.String("condition-id", instance.ConditionID),
		zap.String("question", instance.Question),
		zap.Time("end-date", instance.EndDate))

	return instance
}

// Invalidate drops the cached instance so the next CurrentMarket call hits
// the catalog again. The scheduler calls this after settlement so the expired
// instance cannot be served for the remainder of its refresh window.
func (f *Feed) Invalidate() {
	f.cache.Delete(currentMarketKey)
}

// selectInstance filters candidates by the recurring-market naming rule and
// picks the one expiring soonest, i.e. the instance currently running.
func (f *Feed) selectInstance(markets []types.MarketInstance) *types.MarketInstance {
	now := f.now()

	var candidates []types.MarketInstance
	for i := range markets {
		if !f.matches(markets[i].Question) {
			continue
		}
		if markets[i].Expired(now) {
			continue
		}
		candidates = append(candidates, markets[i])
	}

	if len(candidates) == 0 {
		return nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].EndDate.Before(candidates[j].EndDate)
	})

	return &candidates[0]
}

// matches applies the naming rule: the question mentions the topic keyword
// and any one of the duration keywords, case-insensitive.
func (f *Feed) matches(question string) bool {
	q := strings.ToLower(question)

	if !strings.Contains(q, f.topicKeyword) {
		return false
	}

	for _, kw := range f.durationKeywords {
		if strings.Contains(q, strings.ToLower(kw)) {
			return true
		}
	}

	return false
}

// LatestPrices scans the recent-trades window in its natural order, most
// recent first; the first occurrence per side wins. Returns false when either
// side never appears in the window or the fetch fails.
func (f *Feed) LatestPrices(ctx context.Context) (types.PricePair, bool) {
	trades, err := f.client.FetchTrades(ctx)
	if err != nil {
		f.logger.Warn("price-fetch-failed", zap.Error(err))
		return types.PricePair{}, false
	}

	var (
		pair     types.PricePair
		yesFound bool
		noFound  bool
	)

	for i := range trades {
		switch trades[i].Side {
		case types.SideYes:
			if !yesFound {
				pair.Yes = trades[i].Price
				yesFound = true
			}
		case types.SideNo:
			if !noFound {
				pair.No = trades[i].Price
				noFound = true
			}
		}

		if yesFound && noFound {
			break
		}
	}

	if !yesFound || !noFound {
		f.logger.Debug("price-window-incomplete",
			zap.Bool("yes-seen", yesFound),
			zap.Bool("no-seen", noFound),
			zap.Int("trades", len(trades)))
		return types.PricePair{}, false
	}

	pair.ObservedAt = f.now()
	PriceObservationsTotal.Inc()

	return pair, true
}
