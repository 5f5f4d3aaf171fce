package ledger

import (
	"OutcomeLedger/internal/event"
	fpmath "OutcomeLedger/internal/math"
)

// Position is the ledger state for one wallet's holding of one outcome
// token. There is no short state: Amount never goes negative. Sells beyond
// tracked inventory are capped, and the excess is recorded as unexplained
// volume instead of being priced.
type Position struct {
	Wallet string
	ID     event.PositionID

	Amount      int64 // Tokens currently held, fixed-point 1e6. Invariant: >= 0.
	AvgPrice    int64 // Weighted-average acquisition price; defined only while Amount > 0.
	RealizedPnL int64 // Cumulative signed total; appended to, never rewritten.

	// Diagnostics
	TotalBought           int64
	TotalSellVolume       int64 // All sell volume routed at this position, pre-capping
	UnexplainedSellVolume int64 // Sell volume beyond tracked inventory

	// Settled is set by resolution settlement once the final synthetic
	// sell has been applied, so a replay cannot settle twice.
	Settled bool
}

// IsOpen reports whether the position still holds tokens.
func (p *Position) IsOpen() bool {
	return p.Amount > 0
}

// ApplyBuy folds a buy into the position: Trade(Buy), a Split leg, or a
// Convert's synthetic YES buy. Price may be negative (cost-basis credit).
// Buys never realize P&L.
func (p *Position) ApplyBuy(price, amount int64) {
	p.AvgPrice = fpmath.WeightedAvgPrice(p.Amount, p.AvgPrice, amount, price)
	p.Amount += amount
	p.TotalBought += amount
}

// ApplySell folds a sell into the position: Trade(Sell), a Merge leg, a
// Redeem, or the settlement synthetic sell. The amount counted toward
// realized P&L is capped at tracked inventory; the excess is tokens the
// wallet acquired through a channel outside the observed event set and is
// recorded, not priced. AvgPrice is unchanged by a sell.
//
// Returns the realized P&L delta and the uncapped excess.
func (p *Position) ApplySell(price, amount int64) (delta, excess int64) {
	adjusted := amount
	if adjusted > p.Amount {
		adjusted = p.Amount
	}
	excess = amount - adjusted

	delta = fpmath.SellPnL(adjusted, price, p.AvgPrice)
	p.RealizedPnL += delta
	p.Amount -= adjusted

	p.TotalSellVolume += amount
	p.UnexplainedSellVolume += excess

	return delta, excess
}
