package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"OutcomeLedger/internal/event"
	"OutcomeLedger/internal/market"
)

// InputReader loads the immutable batch inputs for a replay run: raw
// fills, raw token events, and the reference registry. Everything is
// read up front; the core itself does no I/O.
type InputReader struct {
	db *sql.DB
}

func NewInputReader(db *sql.DB) *InputReader {
	return &InputReader{db: db}
}

// LoadRawFills reads all raw trade fills ordered by order_key.
func (r *InputReader) LoadRawFills(ctx context.Context) ([]event.RawFill, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT source_ref, wallet, transaction_id, role, side,
		       quote_amount, base_amount, token_id, order_key
		FROM raw.trade_fills
		ORDER BY order_key`)
	if err != nil {
		return nil, fmt.Errorf("query raw fills: %w", err)
	}
	defer rows.Close()

	var fills []event.RawFill
	for rows.Next() {
		var f event.RawFill
		var role, side string
		if err := rows.Scan(
			&f.SourceRef, &f.Wallet, &f.TransactionID, &role, &side,
			&f.QuoteAmount, &f.BaseAmount, &f.TokenID, &f.OrderKey,
		); err != nil {
			return nil, fmt.Errorf("scan raw fill: %w", err)
		}
		f.Role = roleFromString(role)
		f.Side = sideFromString(side)
		fills = append(fills, f)
	}
	return fills, rows.Err()
}

// LoadRawTokenEvents reads all raw conditional-token events ordered by
// order_key.
func (r *InputReader) LoadRawTokenEvents(ctx context.Context) ([]event.RawTokenEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT source_ref, initiator, wallet, event_type, condition_id, group_id,
		       burn_indexes, amount, outcome_index, payout_numerators,
		       payout_denominator, order_key
		FROM raw.token_events
		ORDER BY order_key`)
	if err != nil {
		return nil, fmt.Errorf("query token events: %w", err)
	}
	defer rows.Close()

	var events []event.RawTokenEvent
	for rows.Next() {
		var e event.RawTokenEvent
		var eventType string
		var burns pq.Int64Array
		var payouts pq.Int64Array
		if err := rows.Scan(
			&e.SourceRef, &e.Initiator, &e.Wallet, &eventType, &e.ConditionID,
			&e.GroupID, &burns, &e.Amount, &e.OutcomeIndex, &payouts,
			&e.PayoutDenominator, &e.OrderKey,
		); err != nil {
			return nil, fmt.Errorf("scan token event: %w", err)
		}
		e.Type = kindFromString(eventType)
		e.BurnIndexes = make([]int, len(burns))
		for i, b := range burns {
			e.BurnIndexes[i] = int(b)
		}
		e.PayoutNumerators = []int64(payouts)
		events = append(events, e)
	}
	return events, rows.Err()
}

// LoadRegistry builds the in-memory reference registry from the ref
// schema: token map, condition resolutions, and negative-risk groups.
func (r *InputReader) LoadRegistry(ctx context.Context) (*market.Registry, error) {
	reg := market.NewRegistry()

	rows, err := r.db.QueryContext(ctx,
		`SELECT token_id, condition_id, outcome_index FROM ref.token_map`)
	if err != nil {
		return nil, fmt.Errorf("query token map: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var tokenID, conditionID string
		var outcome uint8
		if err := rows.Scan(&tokenID, &conditionID, &outcome); err != nil {
			return nil, fmt.Errorf("scan token map: %w", err)
		}
		reg.AddToken(tokenID, event.PositionID{ConditionID: conditionID, Outcome: outcome})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	condRows, err := r.db.QueryContext(ctx, `
		SELECT condition_id, resolved, payout_numerator_0, payout_numerator_1, payout_denominator
		FROM ref.conditions`)
	if err != nil {
		return nil, fmt.Errorf("query conditions: %w", err)
	}
	defer condRows.Close()
	for condRows.Next() {
		var c market.Condition
		if err := condRows.Scan(
			&c.ConditionID, &c.Resolved,
			&c.PayoutNumerators[0], &c.PayoutNumerators[1], &c.PayoutDenominator,
		); err != nil {
			return nil, fmt.Errorf("scan condition: %w", err)
		}
		reg.AddCondition(c)
	}
	if err := condRows.Err(); err != nil {
		return nil, err
	}

	groupRows, err := r.db.QueryContext(ctx,
		`SELECT group_id, question_count, questions FROM ref.neg_risk_groups`)
	if err != nil {
		return nil, fmt.Errorf("query groups: %w", err)
	}
	defer groupRows.Close()
	for groupRows.Next() {
		var g market.NegRiskGroup
		var questions pq.StringArray
		if err := groupRows.Scan(&g.GroupID, &g.QuestionCount, &questions); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		g.Questions = []string(questions)
		if err := reg.AddGroup(g); err != nil {
			return nil, fmt.Errorf("load group %s: %w", g.GroupID, err)
		}
	}
	if err := groupRows.Err(); err != nil {
		return nil, err
	}

	return reg, nil
}

// LoadInternalAddresses reads the known venue-internal adapter/exchange
// contract addresses used for the Split/Merge exclusion rule.
func (r *InputReader) LoadInternalAddresses(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT address FROM ref.internal_addresses`)
	if err != nil {
		return nil, fmt.Errorf("query internal addresses: %w", err)
	}
	defer rows.Close()

	var addrs []string
	for rows.Next() {
		var addr string
		if err := rows.Scan(&addr); err != nil {
			return nil, fmt.Errorf("scan internal address: %w", err)
		}
		addrs = append(addrs, addr)
	}
	return addrs, rows.Err()
}

// LoadSeenSourceRefs returns recent source refs for warming the
// canonicalizer's dedup LRU on startup, newest first up to limit.
func (r *InputReader) LoadSeenSourceRefs(ctx context.Context, limit int) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT source_ref FROM (
			SELECT source_ref, order_key FROM raw.trade_fills
			UNION ALL
			SELECT source_ref, order_key FROM raw.token_events
		) refs
		ORDER BY order_key DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query seen source refs: %w", err)
	}
	defer rows.Close()

	var refs []string
	for rows.Next() {
		var ref string
		if err := rows.Scan(&ref); err != nil {
			return nil, fmt.Errorf("scan source ref: %w", err)
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

func roleFromString(s string) event.Role {
	switch s {
	case "maker":
		return event.RoleMaker
	case "taker":
		return event.RoleTaker
	default:
		return event.RoleUnknown
	}
}

func sideFromString(s string) event.Side {
	switch s {
	case "buy", "Buy":
		return event.SideBuy
	case "sell", "Sell":
		return event.SideSell
	default:
		return event.SideNone
	}
}

func kindFromString(s string) event.Kind {
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
