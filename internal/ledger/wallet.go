package ledger

import (
	"fmt"
	"sort"
	"strings"

	"OutcomeLedger/internal/event"
	"OutcomeLedger/internal/market"
	fpmath "OutcomeLedger/internal/math"
)

// WalletLedger replays one wallet's canonical event stream. Positions are
// created lazily on first reference and never deleted. The ledger is the
// unit of sequential processing: Convert couples sibling positions within
// a group, so events for one wallet always apply in strict OrderKey order
// on a single goroutine. Across wallets, ledgers share no state.
type WalletLedger struct {
	wallet    string
	registry  *market.Registry
	positions map[event.PositionID]*Position

	// Wallet-level data-quality flags, set during replay.
	MissingMapping   bool // A traded token had no condition mapping
	IncompleteEvents bool // Canonicalizer dropped malformed events for this wallet
}

func NewWalletLedger(wallet string, registry *market.Registry) *WalletLedger {
	return &WalletLedger{
		wallet:    strings.ToLower(wallet),
		registry:  registry,
		positions: make(map[event.PositionID]*Position),
	}
}

// Wallet returns the case-normalized wallet identifier.
func (wl *WalletLedger) Wallet() string {
	return wl.wallet
}

// GetOrCreate returns the position for id, creating it empty if absent.
func (wl *WalletLedger) GetOrCreate(id event.PositionID) *Position {
	pos := wl.positions[id]
	if pos == nil {
		pos = &Position{Wallet: wl.wallet, ID: id}
		wl.positions[id] = pos
	}
	return pos
}

// Get returns an existing position or nil.
func (wl *WalletLedger) Get(id event.PositionID) *Position {
	return wl.positions[id]
}

// Apply folds one canonical event into the ledger. Errors are event-scoped:
// the caller logs and continues with the next event.
func (wl *WalletLedger) Apply(evt event.CanonicalEvent) error {
	if evt.Amount < 0 {
		wl.IncompleteEvents = true
		return fmt.Errorf("%w: negative amount %d", ErrMalformedEvent, evt.Amount)
	}

	switch evt.Kind {
	case event.KindConvert:
		return wl.applyConvert(evt)

	case event.KindTrade, event.KindSplit, event.KindMerge, event.KindRedeem:
		pos := wl.GetOrCreate(evt.Position)
		switch evt.Side {
		case event.SideBuy:
			pos.ApplyBuy(evt.Price, evt.Amount)
		case event.SideSell:
			pos.ApplySell(evt.Price, evt.Amount)
		default:
			wl.IncompleteEvents = true
			return fmt.Errorf("%w: %s event without side", ErrMalformedEvent, evt.Kind)
		}
		return nil

	default:
		wl.IncompleteEvents = true
		return fmt.Errorf("%w: unknown kind %d", ErrMalformedEvent, evt.Kind)
	}
}

// applyConvert handles a bundled-position conversion within a negative-risk
// group. The burned NO positions are sold at their own current average
// price, so the sell leg has zero P&L impact, and their value is recovered
// through synthetic YES buys on the complement, priced so the conversion is
// economically neutral at apply time.
func (wl *WalletLedger) applyConvert(evt event.CanonicalEvent) error {
	if evt.Convert == nil {
		wl.IncompleteEvents = true
		return fmt.Errorf("%w: convert event without detail", ErrMalformedEvent)
	}

	group, ok := wl.registry.GetGroup(evt.Convert.GroupID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownGroup, evt.Convert.GroupID)
	}

	burn := make(map[int]bool, len(evt.Convert.BurnIndexes))
	for _, idx := range evt.Convert.BurnIndexes {
		if idx < 0 || idx >= group.QuestionCount {
			return fmt.Errorf("%w: burn index %d out of range for group %s (%d questions)",
				ErrInvalidConversionGroup, idx, group.GroupID, group.QuestionCount)
		}
		burn[idx] = true
	}

	noCount := len(burn)
	if noCount == 0 || noCount >= group.QuestionCount {
		return fmt.Errorf("%w: burn set covers %d of %d questions",
			ErrInvalidConversionGroup, noCount, group.QuestionCount)
	}

	// Sell each burned NO position at its own average price. Selling at
	// avg price realizes zero P&L; the sum of those prices drives the
	// synthetic YES price below.
	var noPriceSum int64
	for idx := 0; idx < group.QuestionCount; idx++ {
		if !burn[idx] {
			continue
		}
		pos := wl.GetOrCreate(event.PositionID{
			ConditionID: group.Questions[idx],
			Outcome:     event.OutcomeNo,
		})
		noPriceSum += pos.AvgPrice
		pos.ApplySell(pos.AvgPrice, evt.Amount)
	}

	noPrice := noPriceSum / int64(noCount)
	yesPrice, err := fpmath.ConvertYesPrice(noPrice, noCount, group.QuestionCount)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConversionGroup, err)
	}

	// Buy the complement's YES positions at the synthetic price, which
	// may be negative.
	for idx := 0; idx < group.QuestionCount; idx++ {
		if burn[idx] {
			continue
		}
		pos := wl.GetOrCreate(event.PositionID{
			ConditionID: group.Questions[idx],
			Outcome:     event.OutcomeYes,
		})
		pos.ApplyBuy(yesPrice, evt.Amount)
	}

	return nil
}

// Replay folds a canonical event stream, already deduplicated, into the
// ledger. Events are sorted by OrderKey (SourceRef breaks ties) before
// application: the state machine is order-dependent, and reordering
// changes results. Event-scoped errors are collected, not fatal.
func (wl *WalletLedger) Replay(events []event.CanonicalEvent) []error {
	sorted := make([]event.CanonicalEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].OrderKey != sorted[j].OrderKey {
			return sorted[i].OrderKey < sorted[j].OrderKey
		}
		return sorted[i].SourceRef < sorted[j].SourceRef
	})

	var errs []error
	for _, evt := range sorted {
		if err := wl.Apply(evt); err != nil {
			errs = append(errs, fmt.Errorf("event %s: %w", evt.SourceRef, err))
		}
	}
	return errs
}

// Positions returns all positions sorted by key for deterministic
// iteration (settlement, aggregation, state digests).
func (wl *WalletLedger) Positions() []*Position {
	result := make([]*Position, 0, len(wl.positions))
	for _, pos := range wl.positions {
		result = append(result, pos)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].ID.ConditionID != result[j].ID.ConditionID {
			return result[i].ID.ConditionID < result[j].ID.ConditionID
		}
		return result[i].ID.Outcome < result[j].ID.Outcome
	})
	return result
}

// UnexplainedSellVolume sums phantom-inventory volume across positions.
func (wl *WalletLedger) UnexplainedSellVolume() int64 {
	var total int64
	for _, pos := range wl.positions {
		total += pos.UnexplainedSellVolume
	}
	return total
}

// RealizedPnL sums realized P&L across all positions.
func (wl *WalletLedger) RealizedPnL() int64 {
	var total int64
	for _, pos := range wl.positions {
		total += pos.RealizedPnL
	}
	return total
}
