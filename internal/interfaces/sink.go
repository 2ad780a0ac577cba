package interfaces

import (
	"context"

	"paper-trader/internal/types"
)

// TradeSink accepts audit records from the cycle. Implementations must not
// block the caller.
type TradeSink interface {
	RecordTrade(ctx context.Context, rec types.TradeRecord)
	RecordDecision(ctx context.Context, rec types.DecisionRecord)
	RecordEquity(ctx context.Context, snap types.EquitySnapshot)
}
