package settle

import (
	"OutcomeLedger/internal/ledger"
	"OutcomeLedger/internal/market"
	fpmath "OutcomeLedger/internal/math"
	"OutcomeLedger/internal/observability"
)

// Status classifies a position after the settlement join.
type Status int32

const (
	StatusUnresolved Status = iota // Condition open; position contributes zero realized P&L
	StatusSettled                  // Synthetic sell applied at the payout price
	StatusClosed                   // Position already emptied by trading or an explicit Redeem
)

func (s Status) String() string {
	switch s {
	case StatusUnresolved:
		return "Unresolved"
	case StatusSettled:
		return "Settled"
	case StatusClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// Result records the settlement outcome for one position.
type Result struct {
	Position *ledger.Position
	Status   Status
	// Delta is the realized P&L contributed by the settlement sell;
	// zero unless Status is StatusSettled.
	Delta int64
}

// Settle joins a wallet's ledger end-state against the condition
// resolution table. Every open position on a resolved condition receives
// one final synthetic sell at the payout price, exactly as a Redeem event
// would. This credits the "resolved but unclaimed" value. Positions
// already emptied by trading or an explicit redemption are left alone,
// as are positions on unresolved conditions.
func Settle(wl *ledger.WalletLedger, registry *market.Registry, metrics *observability.Metrics) []Result {
	positions := wl.Positions()
	results := make([]Result, 0, len(positions))

	for _, pos := range positions {
		cond, ok := registry.GetCondition(pos.ID.ConditionID)

		switch {
		case !ok || !cond.Resolved:
			results = append(results, Result{Position: pos, Status: StatusUnresolved})

		case pos.Settled:
			// Already settled on a previous pass; idempotent.
			results = append(results, Result{Position: pos, Status: StatusSettled})

		case pos.Amount == 0:
			results = append(results, Result{Position: pos, Status: StatusClosed})

		default:
			payout := fpmath.PayoutPrice(
				cond.PayoutNumerators[pos.ID.Outcome],
				cond.PayoutDenominator,
			)
			delta, _ := pos.ApplySell(payout, pos.Amount)
			pos.Settled = true
			if metrics != nil {
				metrics.SettlementSells.Inc()
			}
			results = append(results, Result{Position: pos, Status: StatusSettled, Delta: delta})
		}
	}

	return results
}
