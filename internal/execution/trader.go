package execution

import (
	"context"

	"github.com/hivetrader/sessionbot/pkg/types"
)

// Trader places one order for a given outcome. The scheduler depends on this
// interface only; the returned fill carries the execution's identity and
// timestamp but has NOT been persisted yet.
type Trader interface {
	PlaceOrder(ctx context.Context, session *types.Session, side types.Side, price float64, shares int) (*types.Fill, error)
}
