package canonical

import (
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"OutcomeLedger/internal/event"
	"OutcomeLedger/internal/market"
	fpmath "OutcomeLedger/internal/math"
	"OutcomeLedger/internal/observability"
)

// WalletFlags carries per-wallet data-quality findings from canonicalization.
type WalletFlags struct {
	IncompleteEvents bool // Malformed fills/events dropped for this wallet
	MissingMapping   bool // A traded token had no condition mapping
}

// Batch is the canonicalizer's output: one deduplicated, strictly ordered
// event stream plus per-wallet flags for the aggregator.
type Batch struct {
	Events []event.CanonicalEvent
	Flags  map[string]WalletFlags
}

// Canonicalizer merges raw fill records and raw conditional-token events
// into one deduplicated stream of canonical events. It owns idempotence at
// the ingestion boundary: the ledger downstream never sees the same
// source_ref twice.
type Canonicalizer struct {
	registry      *market.Registry
	internalAddrs map[string]bool
	dedup         *SourceRefLRU
	metrics       *observability.Metrics
	log           zerolog.Logger
}

func New(registry *market.Registry, internalAddrs []string, dedupCapacity int, metrics *observability.Metrics) *Canonicalizer {
	addrs := make(map[string]bool, len(internalAddrs))
	for _, a := range internalAddrs {
		addrs[strings.ToLower(a)] = true
	}
	return &Canonicalizer{
		registry:      registry,
		internalAddrs: addrs,
		dedup:         NewSourceRefLRU(dedupCapacity),
		metrics:       metrics,
		log:           observability.NewLogger("canonicalizer"),
	}
}

// Canonicalize processes one batch of raw fills and token events. Output
// events are sorted by (OrderKey, SourceRef). The same raw rows may be
// submitted again later; duplicates by source_ref are dropped here.
func (c *Canonicalizer) Canonicalize(fills []event.RawFill, tokenEvents []event.RawTokenEvent) Batch {
	batch := Batch{Flags: make(map[string]WalletFlags)}

	c.canonicalizeFills(fills, &batch)
	c.canonicalizeTokenEvents(tokenEvents, &batch)

	sort.SliceStable(batch.Events, func(i, j int) bool {
		if batch.Events[i].OrderKey != batch.Events[j].OrderKey {
			return batch.Events[i].OrderKey < batch.Events[j].OrderKey
		}
		return batch.Events[i].SourceRef < batch.Events[j].SourceRef
	})

	return batch
}

type txKey struct {
	wallet string
	txID   string
}

// canonicalizeFills applies self-fill collapse and price derivation.
//
// Self-fill collapse: the venue records one fill row per counterparty
// role, so a wallet matched against itself in one transaction appears as
// both maker and taker. Only the taker leg is the economic transfer; the
// maker leg in the same transaction is a bookkeeping artifact and is
// dropped. Transactions where the wallet appears under one role keep all
// legs.
func (c *Canonicalizer) canonicalizeFills(fills []event.RawFill, batch *Batch) {
	rolesByTx := make(map[txKey]map[event.Role]bool)
	for _, f := range fills {
		key := txKey{wallet: strings.ToLower(f.Wallet), txID: f.TransactionID}
		if rolesByTx[key] == nil {
			rolesByTx[key] = make(map[event.Role]bool, 2)
		}
		rolesByTx[key][f.Role] = true
	}

	for _, f := range fills {
		wallet := strings.ToLower(f.Wallet)

		if f.Role == event.RoleUnknown || f.Side == event.SideNone {
			c.flag(batch, wallet, func(fl *WalletFlags) { fl.IncompleteEvents = true })
			c.drop("fill", "missing_role_or_side")
			continue
		}
		if f.BaseAmount <= 0 || f.QuoteAmount < 0 {
			c.flag(batch, wallet, func(fl *WalletFlags) { fl.IncompleteEvents = true })
			c.drop("fill", "bad_amounts")
			continue
		}

		roles := rolesByTx[txKey{wallet: wallet, txID: f.TransactionID}]
		if roles[event.RoleMaker] && roles[event.RoleTaker] && f.Role == event.RoleMaker {
			c.drop("fill", "self_fill_maker_leg")
			continue
		}

		if c.dedup.Seen(f.SourceRef) {
			c.duplicate()
			continue
		}

		pos, ok := c.registry.LookupToken(f.TokenID)
		if !ok {
			c.flag(batch, wallet, func(fl *WalletFlags) { fl.MissingMapping = true })
			c.drop("fill", "missing_token_mapping")
			c.log.Warn().Str("wallet", wallet).Str("token_id", f.TokenID).
				Msg("token has no condition mapping, fill excluded")
			continue
		}

		batch.Events = append(batch.Events, event.CanonicalEvent{
			Wallet:    wallet,
			Position:  pos,
			Kind:      event.KindTrade,
			Side:      f.Side,
			Price:     fpmath.FillPrice(f.QuoteAmount, f.BaseAmount),
			Amount:    f.BaseAmount,
			OrderKey:  f.OrderKey,
			SourceRef: f.SourceRef,
		})
		c.emit(event.KindTrade)
	}
}

// canonicalizeTokenEvents expands lifecycle events into canonical events:
// Split buys both outcomes and Merge sells both, at the protocol-constant
// $0.50; Redeem sells the winning outcome at the payout ratio; Convert is
// passed through whole for the ledger's group handler.
func (c *Canonicalizer) canonicalizeTokenEvents(tokenEvents []event.RawTokenEvent, batch *Batch) {
	for _, te := range tokenEvents {
		wallet := strings.ToLower(te.Wallet)

		if te.Amount <= 0 {
			c.flag(batch, wallet, func(fl *WalletFlags) { fl.IncompleteEvents = true })
			c.drop(te.Type.String(), "bad_amount")
			continue
		}

		// A Split/Merge initiated by a known internal exchange/adapter
		// contract is inventory bookkeeping inside the venue, not the
		// wallet's own action; the adapter emits an equivalent Convert.
		if te.Type == event.KindSplit || te.Type == event.KindMerge {
			initiator := strings.ToLower(te.Initiator)
			if initiator != wallet && c.internalAddrs[initiator] {
				c.drop(te.Type.String(), "venue_internal")
				continue
			}
		}

		if te.Type == event.KindRedeem &&
			(te.PayoutDenominator <= 0 || int(te.OutcomeIndex) >= len(te.PayoutNumerators)) {
			c.flag(batch, wallet, func(fl *WalletFlags) { fl.IncompleteEvents = true })
			c.drop("Redeem", "bad_payout")
			continue
		}

		if c.dedup.Seen(te.SourceRef) {
			c.duplicate()
			continue
		}

		switch te.Type {
		case event.KindSplit:
			for _, outcome := range []uint8{event.OutcomeYes, event.OutcomeNo} {
				batch.Events = append(batch.Events, event.CanonicalEvent{
					Wallet:    wallet,
					Position:  event.PositionID{ConditionID: te.ConditionID, Outcome: outcome},
					Kind:      event.KindSplit,
					Side:      event.SideBuy,
					Price:     fpmath.SplitPrice,
					Amount:    te.Amount,
					OrderKey:  te.OrderKey,
					SourceRef: te.SourceRef + ":" + outcomeSuffix(outcome),
				})
			}
			c.emit(event.KindSplit)

		case event.KindMerge:
			for _, outcome := range []uint8{event.OutcomeYes, event.OutcomeNo} {
				batch.Events = append(batch.Events, event.CanonicalEvent{
					Wallet:    wallet,
					Position:  event.PositionID{ConditionID: te.ConditionID, Outcome: outcome},
					Kind:      event.KindMerge,
					Side:      event.SideSell,
					Price:     fpmath.SplitPrice,
					Amount:    te.Amount,
					OrderKey:  te.OrderKey,
					SourceRef: te.SourceRef + ":" + outcomeSuffix(outcome),
				})
			}
			c.emit(event.KindMerge)

		case event.KindRedeem:
			batch.Events = append(batch.Events, event.CanonicalEvent{
				Wallet:    wallet,
				Position:  event.PositionID{ConditionID: te.ConditionID, Outcome: te.OutcomeIndex},
				Kind:      event.KindRedeem,
				Side:      event.SideSell,
				Price:     fpmath.PayoutPrice(te.PayoutNumerators[te.OutcomeIndex], te.PayoutDenominator),
				Amount:    te.Amount,
				OrderKey:  te.OrderKey,
				SourceRef: te.SourceRef,
			})
			c.emit(event.KindRedeem)

		case event.KindConvert:
			batch.Events = append(batch.Events, event.CanonicalEvent{
				Wallet:    wallet,
				Kind:      event.KindConvert,
				Amount:    te.Amount,
				OrderKey:  te.OrderKey,
				SourceRef: te.SourceRef,
				Convert: &event.ConvertDetail{
					GroupID:     te.GroupID,
					BurnIndexes: te.BurnIndexes,
				},
			})
			c.emit(event.KindConvert)

		default:
			c.flag(batch, wallet, func(fl *WalletFlags) { fl.IncompleteEvents = true })
			c.drop("Unknown", "unknown_type")
		}
	}
}

func outcomeSuffix(outcome uint8) string {
	if outcome == event.OutcomeYes {
		return "yes"
	}
	return "no"
}

func (c *Canonicalizer) flag(batch *Batch, wallet string, set func(*WalletFlags)) {
	fl := batch.Flags[wallet]
	set(&fl)
	batch.Flags[wallet] = fl
}

func (c *Canonicalizer) emit(kind event.Kind) {
	if c.metrics != nil {
		c.metrics.CanonEventsEmitted.WithLabelValues(kind.String()).Inc()
	}
}

func (c *Canonicalizer) drop(kind, reason string) {
	if c.metrics != nil {
		c.metrics.CanonEventsDropped.WithLabelValues(kind, reason).Inc()
	}
}

func (c *Canonicalizer) duplicate() {
	if c.metrics != nil {
		c.metrics.CanonDuplicates.Inc()
	}
}

// DedupSize exposes the dedup LRU size for metrics scraping.
func (c *Canonicalizer) DedupSize() int {
	return c.dedup.Size()
}

// WarmDedup preloads previously persisted source refs.
func (c *Canonicalizer) WarmDedup(keys []string) {
	c.dedup.WarmFromKeys(keys)
}
