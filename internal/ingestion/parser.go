package ingestion

import (
	"encoding/json"
	"fmt"

	"OutcomeLedger/internal/event"
)

// --- JSON wire formats ---
// These structs represent the JSON payloads received from NATS and the
// raw Postgres tables. Field names use snake_case to match upstream
// indexers.

type rawFillJSON struct {
	Wallet        string `json:"wallet"`
	TransactionID string `json:"transaction_id"`
	Role          string `json:"role"` // "maker" or "taker"
	Side          string `json:"side"` // "buy" or "sell"
	QuoteAmount   int64  `json:"quote_amount"`
	BaseAmount    int64  `json:"base_amount"`
	TokenID       string `json:"token_id"`
	OrderKey      int64  `json:"order_key"`
	SourceRef     string `json:"source_ref,omitempty"`
}

// ParseRawFill converts a JSON trade-fill payload into an event.RawFill.
// Unknown role/side strings are mapped to the Unknown/None sentinels and
// left for the canonicalizer to drop and flag, not rejected here: a
// parse failure naks the message for redelivery, but a field the
// upstream producer genuinely emitted must reach the pipeline.
func ParseRawFill(data []byte) (event.RawFill, error) {
	var j rawFillJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return event.RawFill{}, fmt.Errorf("parse raw fill: %w", err)
	}
	if j.Wallet == "" || j.TransactionID == "" {
		return event.RawFill{}, fmt.Errorf("parse raw fill: missing wallet or transaction_id")
	}

	sourceRef := j.SourceRef
	if sourceRef == "" {
		sourceRef = j.TransactionID + ":" + j.Role
	}

	return event.RawFill{
		Wallet:        j.Wallet,
		TransactionID: j.TransactionID,
		Role:          parseRole(j.Role),
		Side:          parseSide(j.Side),
		QuoteAmount:   j.QuoteAmount,
		BaseAmount:    j.BaseAmount,
		TokenID:       j.TokenID,
		OrderKey:      j.OrderKey,
		SourceRef:     sourceRef,
	}, nil
}

type rawTokenEventJSON struct {
	Initiator         string  `json:"initiator"`
	Wallet            string  `json:"wallet"`
	Type              string  `json:"type"` // "split", "merge", "convert", "redeem"
	ConditionID       string  `json:"condition_id,omitempty"`
	GroupID           string  `json:"group_id,omitempty"`
	BurnIndexes       []int   `json:"burn_indexes,omitempty"`
	Amount            int64   `json:"amount"`
	OutcomeIndex      uint8   `json:"outcome_index"`
	PayoutNumerators  []int64 `json:"payout_numerators,omitempty"`
	PayoutDenominator int64   `json:"payout_denominator,omitempty"`
	OrderKey          int64   `json:"order_key"`
	SourceRef         string  `json:"source_ref"`
}

// ParseRawTokenEvent converts a JSON conditional-token payload into an
// event.RawTokenEvent.
func ParseRawTokenEvent(data []byte) (event.RawTokenEvent, error) {
	var j rawTokenEventJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return event.RawTokenEvent{}, fmt.Errorf("parse token event: %w", err)
	}
	if j.Wallet == "" || j.SourceRef == "" {
		return event.RawTokenEvent{}, fmt.Errorf("parse token event: missing wallet or source_ref")
	}

	kind := parseKind(j.Type)
	if kind == event.KindUnknown {
		return event.RawTokenEvent{}, fmt.Errorf("parse token event: unknown type %q", j.Type)
	}

	return event.RawTokenEvent{
		Initiator:         j.Initiator,
		Wallet:            j.Wallet,
		Type:              kind,
		ConditionID:       j.ConditionID,
		GroupID:           j.GroupID,
		BurnIndexes:       j.BurnIndexes,
		Amount:            j.Amount,
		OutcomeIndex:      j.OutcomeIndex,
		PayoutNumerators:  j.PayoutNumerators,
		PayoutDenominator: j.PayoutDenominator,
		OrderKey:          j.OrderKey,
		SourceRef:         j.SourceRef,
	}, nil
}

func parseRole(s string) event.Role {
	switch s {
	case "maker":
		return event.RoleMaker
	case "taker":
		return event.RoleTaker
	default:
		return event.RoleUnknown
	}
}

func parseSide(s string) event.Side {
	switch s {
	case "buy":
		return event.SideBuy
	case "sell":
		return event.SideSell
	default:
		return event.SideNone
	}
}

func parseKind(s string) event.Kind {
	switch s {
	case "split":
		return event.KindSplit
	case "merge":
		return event.KindMerge
	case "convert":
		return event.KindConvert
	case "redeem":
		return event.KindRedeem
	default:
		return event.KindUnknown
	}
}
