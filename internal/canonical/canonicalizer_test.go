package canonical_test

import (
	"testing"

	"OutcomeLedger/internal/canonical"
	"OutcomeLedger/internal/event"
	"OutcomeLedger/internal/market"
)

const (
	cond     = "0xc0ffee01"
	tokenYes = "tok-yes"
	tokenNo  = "tok-no"

	adapterAddr = "0xadap7e12"
)

func newCanonicalizer() *canonical.Canonicalizer {
	reg := market.NewRegistry()
	reg.AddToken(tokenYes, event.PositionID{ConditionID: cond, Outcome: event.OutcomeYes})
	reg.AddToken(tokenNo, event.PositionID{ConditionID: cond, Outcome: event.OutcomeNo})
	return canonical.New(reg, []string{adapterAddr}, 1024, nil)
}

func buyFill(wallet, tx string, role event.Role, orderKey int64) event.RawFill {
	return event.RawFill{
		Wallet:        wallet,
		TransactionID: tx,
		Role:          role,
		Side:          event.SideBuy,
		QuoteAmount:   65_000_000, // $65 for 100 tokens -> 0.65
		BaseAmount:    100_000_000,
		TokenID:       tokenYes,
		OrderKey:      orderKey,
		SourceRef:     tx + ":" + role.String(),
	}
}

// ============================================================================
// Test: self-fill collapse
// ============================================================================

func TestCanonicalize_SelfFillKeepsTakerLeg(t *testing.T) {
	c := newCanonicalizer()

	batch := c.Canonicalize([]event.RawFill{
		buyFill("0xABCD", "tx1", event.RoleMaker, 1),
		buyFill("0xABCD", "tx1", event.RoleTaker, 1),
	}, nil)

	if len(batch.Events) != 1 {
		t.Fatalf("expected 1 event after self-fill collapse, got %d", len(batch.Events))
	}
	if batch.Events[0].SourceRef != "tx1:taker" {
		t.Errorf("kept leg should be the taker leg, got %s", batch.Events[0].SourceRef)
	}
}

func TestCanonicalize_SingleRoleKeepsAllLegs(t *testing.T) {
	c := newCanonicalizer()

	batch := c.Canonicalize([]event.RawFill{
		buyFill("0xabcd", "tx1", event.RoleMaker, 1),
		buyFill("0xabcd", "tx2", event.RoleMaker, 2),
	}, nil)

	if len(batch.Events) != 2 {
		t.Fatalf("expected 2 events (no taker leg present), got %d", len(batch.Events))
	}
}

// ============================================================================
// Test: pricing
// ============================================================================

func TestCanonicalize_TradePriceDerivation(t *testing.T) {
	c := newCanonicalizer()

	batch := c.Canonicalize([]event.RawFill{
		buyFill("0xabcd", "tx1", event.RoleTaker, 1),
	}, nil)

	if len(batch.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(batch.Events))
	}
	if batch.Events[0].Price != 650_000 {
		t.Errorf("price: got %d, want 650_000", batch.Events[0].Price)
	}
	if batch.Events[0].Wallet != "0xabcd" {
		t.Errorf("wallet should be case-normalized, got %s", batch.Events[0].Wallet)
	}
}

func TestCanonicalize_SplitEmitsBothOutcomesAtFixedPrice(t *testing.T) {
	c := newCanonicalizer()

	batch := c.Canonicalize(nil, []event.RawTokenEvent{{
		Initiator:   "0xabcd",
		Wallet:      "0xabcd",
		Type:        event.KindSplit,
		ConditionID: cond,
		Amount:      100_000_000,
		OrderKey:    5,
		SourceRef:   "split1",
	}})

	if len(batch.Events) != 2 {
		t.Fatalf("split must emit one buy per outcome, got %d events", len(batch.Events))
	}
	for _, evt := range batch.Events {
		if evt.Side != event.SideBuy {
			t.Errorf("split leg side: got %s, want Buy", evt.Side)
		}
		if evt.Price != 500_000 {
			t.Errorf("split price is a protocol constant: got %d, want 500_000", evt.Price)
		}
	}
}

func TestCanonicalize_MergeEmitsBothOutcomeSells(t *testing.T) {
	c := newCanonicalizer()

	batch := c.Canonicalize(nil, []event.RawTokenEvent{{
		Initiator:   "0xabcd",
		Wallet:      "0xabcd",
		Type:        event.KindMerge,
		ConditionID: cond,
		Amount:      50_000_000,
		OrderKey:    6,
		SourceRef:   "merge1",
	}})

	if len(batch.Events) != 2 {
		t.Fatalf("merge must emit one sell per outcome, got %d events", len(batch.Events))
	}
	for _, evt := range batch.Events {
		if evt.Side != event.SideSell || evt.Price != 500_000 {
			t.Errorf("merge leg: got side=%s price=%d, want Sell @ 500_000", evt.Side, evt.Price)
		}
	}
}

func TestCanonicalize_RedeemPricedAtPayoutRatio(t *testing.T) {
	c := newCanonicalizer()

	batch := c.Canonicalize(nil, []event.RawTokenEvent{{
		Initiator:         "0xabcd",
		Wallet:            "0xabcd",
		Type:              event.KindRedeem,
		ConditionID:       cond,
		Amount:            100_000_000,
		OutcomeIndex:      event.OutcomeYes,
		PayoutNumerators:  []int64{1, 0},
		PayoutDenominator: 1,
		OrderKey:          7,
		SourceRef:         "redeem1",
	}})

	if len(batch.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(batch.Events))
	}
	evt := batch.Events[0]
	if evt.Side != event.SideSell || evt.Price != 1_000_000 {
		t.Errorf("redeem: got side=%s price=%d, want Sell @ 1_000_000", evt.Side, evt.Price)
	}
}

// ============================================================================
// Test: venue-internal exclusion
// ============================================================================

func TestCanonicalize_InternalAdapterSplitDropped(t *testing.T) {
	c := newCanonicalizer()

	batch := c.Canonicalize(nil, []event.RawTokenEvent{{
		Initiator:   adapterAddr,
		Wallet:      "0xabcd",
		Type:        event.KindSplit,
		ConditionID: cond,
		Amount:      100_000_000,
		OrderKey:    1,
		SourceRef:   "internal-split",
	}})

	if len(batch.Events) != 0 {
		t.Errorf("adapter-initiated split is internal bookkeeping, got %d events", len(batch.Events))
	}
}

func TestCanonicalize_WalletOwnSplitKept(t *testing.T) {
	c := newCanonicalizer()

	// The adapter address trading for itself is still a genuine action.
	batch := c.Canonicalize(nil, []event.RawTokenEvent{{
		Initiator:   adapterAddr,
		Wallet:      adapterAddr,
		Type:        event.KindSplit,
		ConditionID: cond,
		Amount:      100_000_000,
		OrderKey:    1,
		SourceRef:   "own-split",
	}})

	if len(batch.Events) != 2 {
		t.Errorf("wallet's own split must be kept, got %d events", len(batch.Events))
	}
}

// ============================================================================
// Test: dedup and ordering
// ============================================================================

func TestCanonicalize_ReingestionIsIdempotent(t *testing.T) {
	c := newCanonicalizer()
	fill := buyFill("0xabcd", "tx1", event.RoleTaker, 1)

	first := c.Canonicalize([]event.RawFill{fill}, nil)
	second := c.Canonicalize([]event.RawFill{fill}, nil)

	if len(first.Events) != 1 {
		t.Fatalf("first pass: expected 1 event, got %d", len(first.Events))
	}
	if len(second.Events) != 0 {
		t.Errorf("re-ingesting the same source_ref must be a no-op, got %d events", len(second.Events))
	}
}

func TestCanonicalize_WarmedDedupSuppressesPersistedRefs(t *testing.T) {
	c := newCanonicalizer()
	c.WarmDedup([]string{"tx1:taker"})

	batch := c.Canonicalize([]event.RawFill{
		buyFill("0xabcd", "tx1", event.RoleTaker, 1),
		buyFill("0xabcd", "tx2", event.RoleTaker, 2),
	}, nil)

	if len(batch.Events) != 1 {
		t.Fatalf("warmed ref must be suppressed, got %d events", len(batch.Events))
	}
	if batch.Events[0].SourceRef != "tx2:taker" {
		t.Errorf("surviving event: got %s, want tx2:taker", batch.Events[0].SourceRef)
	}
	if c.DedupSize() != 2 {
		t.Errorf("dedup size: got %d, want 2", c.DedupSize())
	}
}

func TestCanonicalize_OutputSortedByOrderKey(t *testing.T) {
	c := newCanonicalizer()

	batch := c.Canonicalize([]event.RawFill{
		buyFill("0xabcd", "tx3", event.RoleTaker, 30),
		buyFill("0xabcd", "tx1", event.RoleTaker, 10),
		buyFill("0xabcd", "tx2", event.RoleTaker, 20),
	}, nil)

	if len(batch.Events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(batch.Events))
	}
	for i := 1; i < len(batch.Events); i++ {
		if batch.Events[i-1].OrderKey > batch.Events[i].OrderKey {
			t.Fatalf("events not sorted by order key: %d before %d",
				batch.Events[i-1].OrderKey, batch.Events[i].OrderKey)
		}
	}
}

// ============================================================================
// Test: failure modes
// ============================================================================

func TestCanonicalize_MissingRoleDroppedAndFlagged(t *testing.T) {
	c := newCanonicalizer()
	fill := buyFill("0xabcd", "tx1", event.RoleUnknown, 1)

	batch := c.Canonicalize([]event.RawFill{fill}, nil)

	if len(batch.Events) != 0 {
		t.Errorf("ambiguous role must be dropped, not guessed; got %d events", len(batch.Events))
	}
	if !batch.Flags["0xabcd"].IncompleteEvents {
		t.Error("wallet should be flagged INCOMPLETE_EVENTS")
	}
}

func TestCanonicalize_UnknownTokenFlagsMissingMapping(t *testing.T) {
	c := newCanonicalizer()
	fill := buyFill("0xabcd", "tx1", event.RoleTaker, 1)
	fill.TokenID = "tok-unmapped"

	batch := c.Canonicalize([]event.RawFill{fill}, nil)

	if len(batch.Events) != 0 {
		t.Errorf("unmapped token must be excluded, got %d events", len(batch.Events))
	}
	if !batch.Flags["0xabcd"].MissingMapping {
		t.Error("wallet should be flagged for missing token mapping")
	}
}
