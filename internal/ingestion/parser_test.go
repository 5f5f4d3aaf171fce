package ingestion

import (
	"testing"

	"OutcomeLedger/internal/event"
)

// ============================================================================
// Test: raw fills
// ============================================================================

func TestParseRawFill_Valid(t *testing.T) {
	data := []byte(`{
		"wallet": "0xABCD",
		"transaction_id": "0xtx1",
		"role": "taker",
		"side": "buy",
		"quote_amount": 65000000,
		"base_amount": 100000000,
		"token_id": "tok-yes",
		"order_key": 42,
		"source_ref": "0xtx1:taker"
	}`)

	fill, err := ParseRawFill(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if fill.Role != event.RoleTaker {
		t.Errorf("role: got %s, want taker", fill.Role)
	}
	if fill.Side != event.SideBuy {
		t.Errorf("side: got %s, want Buy", fill.Side)
	}
	if fill.QuoteAmount != 65_000_000 || fill.BaseAmount != 100_000_000 {
		t.Errorf("amounts: got quote=%d base=%d", fill.QuoteAmount, fill.BaseAmount)
	}
	if fill.OrderKey != 42 {
		t.Errorf("order_key: got %d, want 42", fill.OrderKey)
	}
}

func TestParseRawFill_SourceRefDerivedWhenAbsent(t *testing.T) {
	data := []byte(`{
		"wallet": "0xabcd",
		"transaction_id": "0xtx1",
		"role": "maker",
		"side": "sell",
		"quote_amount": 1,
		"base_amount": 1,
		"token_id": "tok-yes",
		"order_key": 1
	}`)

	fill, err := ParseRawFill(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fill.SourceRef != "0xtx1:maker" {
		t.Errorf("source_ref: got %s, want 0xtx1:maker", fill.SourceRef)
	}
}

func TestParseRawFill_UnknownRolePassedThroughNotRejected(t *testing.T) {
	data := []byte(`{
		"wallet": "0xabcd",
		"transaction_id": "0xtx1",
		"role": "arbiter",
		"side": "buy",
		"quote_amount": 1,
		"base_amount": 1,
		"token_id": "tok-yes",
		"order_key": 1
	}`)

	fill, err := ParseRawFill(data)
	if err != nil {
		t.Fatalf("unknown role must not be a parse error: %v", err)
	}
	if fill.Role != event.RoleUnknown {
		t.Errorf("role: got %s, want unknown (canonicalizer drops and flags it)", fill.Role)
	}
}

func TestParseRawFill_MissingWalletRejected(t *testing.T) {
	data := []byte(`{"transaction_id": "0xtx1", "role": "taker", "side": "buy"}`)

	if _, err := ParseRawFill(data); err == nil {
		t.Error("fill without a wallet must be rejected")
	}
}

func TestParseRawFill_MalformedJSON(t *testing.T) {
	if _, err := ParseRawFill([]byte(`{not json`)); err == nil {
		t.Error("malformed JSON must be rejected")
	}
}

// ============================================================================
// Test: token events
// ============================================================================

func TestParseRawTokenEvent_Split(t *testing.T) {
	data := []byte(`{
		"initiator": "0xabcd",
		"wallet": "0xabcd",
		"type": "split",
		"condition_id": "0xc0ffee01",
		"amount": 100000000,
		"order_key": 9,
		"source_ref": "split1"
	}`)

	evt, err := ParseRawTokenEvent(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if evt.Type != event.KindSplit {
		t.Errorf("type: got %s, want Split", evt.Type)
	}
	if evt.ConditionID != "0xc0ffee01" {
		t.Errorf("condition_id: got %s", evt.ConditionID)
	}
}

func TestParseRawTokenEvent_ConvertCarriesGroupAndBurns(t *testing.T) {
	data := []byte(`{
		"initiator": "0xadapter",
		"wallet": "0xabcd",
		"type": "convert",
		"group_id": "grp-1",
		"burn_indexes": [0, 2, 4],
		"amount": 100000000,
		"order_key": 9,
		"source_ref": "conv1"
	}`)

	evt, err := ParseRawTokenEvent(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if evt.Type != event.KindConvert {
		t.Errorf("type: got %s, want Convert", evt.Type)
	}
	if evt.GroupID != "grp-1" || len(evt.BurnIndexes) != 3 {
		t.Errorf("group: got %s burns=%v", evt.GroupID, evt.BurnIndexes)
	}
}

func TestParseRawTokenEvent_RedeemCarriesPayout(t *testing.T) {
	data := []byte(`{
		"initiator": "0xabcd",
		"wallet": "0xabcd",
		"type": "redeem",
		"condition_id": "0xc0ffee01",
		"outcome_index": 1,
		"payout_numerators": [0, 1],
		"payout_denominator": 1,
		"amount": 100000000,
		"order_key": 9,
		"source_ref": "redeem1"
	}`)

	evt, err := ParseRawTokenEvent(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if evt.OutcomeIndex != event.OutcomeNo {
		t.Errorf("outcome_index: got %d, want 1", evt.OutcomeIndex)
	}
	if len(evt.PayoutNumerators) != 2 || evt.PayoutDenominator != 1 {
		t.Errorf("payout: got %v / %d", evt.PayoutNumerators, evt.PayoutDenominator)
	}
}

func TestParseRawTokenEvent_UnknownTypeRejected(t *testing.T) {
	data := []byte(`{"wallet": "0xabcd", "type": "transmute", "source_ref": "x"}`)

	if _, err := ParseRawTokenEvent(data); err == nil {
		t.Error("unknown token event type must be rejected")
	}
}

func TestParseRawTokenEvent_MissingSourceRefRejected(t *testing.T) {
	data := []byte(`{"wallet": "0xabcd", "type": "split", "condition_id": "0xc1"}`)

	if _, err := ParseRawTokenEvent(data); err == nil {
		t.Error("token event without source_ref cannot be deduplicated and must be rejected")
	}
}
