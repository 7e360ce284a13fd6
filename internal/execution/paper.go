package execution

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hivetrader/sessionbot/pkg/types"
	"go.uber.org/zap"
)

// PaperTrader simulates execution: every order fills immediately and in full
// at the observed price.
type PaperTrader struct {
	logger *zap.Logger
	now    func() time.Time
}

// NewPaperTrader creates a new paper trader.
func NewPaperTrader(logger *zap.Logger) *PaperTrader {
	return &PaperTrader{
		logger: logger,
		now:    time.Now,
	}
}

// PlaceOrder fills the order at the given price.
func (p *PaperTrader) PlaceOrder(ctx context.Context, session *types.Session, side types.Side, price float64, shares int) (*types.Fill, error) {
	if !side.Valid() {
		return nil, fmt.Errorf("place order: invalid side %q", side)
	}
	if shares <= 0 {
		return nil, fmt.Errorf("place order: shares must be positive, got %d", shares)
	}
	if price <= 0 {
		return nil, fmt.Errorf("place order: price must be positive, got %f", price)
	}

	fill := &types.Fill{
		ID:        uuid.NewString(),
		SessionID: session.ID,
		Timestamp: p.now().UTC(),
		Side:      side,
		Price:     price,
		Shares:    shares,
	}

	OrdersPlacedTotal.WithLabelValues(string(side)).Inc()
	SharesFilledTotal.WithLabelValues(string(side)).Add(float64(shares))

	p.logger.Info("paper-order-filled",
		zap.String("session-id", session.ID),
		zap.String("side", string(side)),
		zap.Float64("price", price),
		zap.Int("shares", shares),
		zap.Float64("cost", fill.Cost()))

	return fill, nil
}
