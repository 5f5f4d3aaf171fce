package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"OutcomeLedger/internal/event"
	"OutcomeLedger/internal/observability"
	"OutcomeLedger/internal/replay"
)

// ResultWriter persists replay outputs and raw event rows to Postgres
// using multi-row INSERT. Writes are idempotent: every table conflicts
// on its natural key and does nothing, so re-running a batch or
// redelivering a NATS message never duplicates rows.
type ResultWriter struct {
	db      *sql.DB
	metrics *observability.Metrics
}

func NewResultWriter(db *sql.DB, metrics *observability.Metrics) *ResultWriter {
	return &ResultWriter{db: db, metrics: metrics}
}

// WriteRun persists a full replay run: run header, position snapshots,
// and wallet aggregates, in one transaction.
func (w *ResultWriter) WriteRun(ctx context.Context, result *replay.RunResult) error {
	start := time.Now()

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin run tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO results.runs (run_id, started_at, duration_ms, run_digest, event_errors)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (run_id) DO NOTHING`,
		result.RunID, result.StartedAt, result.Duration.Milliseconds(),
		result.RunDigest[:], result.EventErrors,
	); err != nil {
		w.countError("run_header")
		return fmt.Errorf("write run header: %w", err)
	}

	if err := w.writeSnapshots(ctx, tx, result); err != nil {
		w.countError("position_snapshots")
		return err
	}
	if err := w.writeAggregates(ctx, tx, result); err != nil {
		w.countError("wallet_pnl")
		return err
	}

	if err := tx.Commit(); err != nil {
		w.countError("commit")
		return fmt.Errorf("commit run: %w", err)
	}

	if w.metrics != nil {
		w.metrics.PersistRowsWritten.WithLabelValues("position_snapshots").Add(float64(len(result.Snapshots)))
		w.metrics.PersistRowsWritten.WithLabelValues("wallet_pnl").Add(float64(len(result.Aggregates)))
		w.metrics.PersistBatchDur.Observe(time.Since(start).Seconds())
	}

	return nil
}

func (w *ResultWriter) writeSnapshots(ctx context.Context, tx *sql.Tx, result *replay.RunResult) error {
	const cols = 9
	for lo := 0; lo < len(result.Snapshots); lo += maxRowsPerInsert {
		rows := result.Snapshots[lo:min(lo+maxRowsPerInsert, len(result.Snapshots))]

		values := make([]string, 0, len(rows))
		args := make([]interface{}, 0, len(rows)*cols)
		for i, s := range rows {
			values = append(values, placeholders(i*cols, cols))
			args = append(args,
				result.RunID, s.Wallet, s.ConditionID, s.Outcome,
				s.Amount, s.AvgPrice, s.RealizedPnL, s.TotalBought, s.Status,
			)
		}

		query := `INSERT INTO results.position_snapshots
			(run_id, wallet, condition_id, outcome_index, amount, avg_price, realized_pnl, total_bought, status)
			VALUES ` + strings.Join(values, ", ") +
			` ON CONFLICT (run_id, wallet, condition_id, outcome_index) DO NOTHING`

		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("write position snapshots: %w", err)
		}
	}
	return nil
}

func (w *ResultWriter) writeAggregates(ctx context.Context, tx *sql.Tx, result *replay.RunResult) error {
	const cols = 8
	for lo := 0; lo < len(result.Aggregates); lo += maxRowsPerInsert {
		rows := result.Aggregates[lo:min(lo+maxRowsPerInsert, len(result.Aggregates))]

		values := make([]string, 0, len(rows))
		args := make([]interface{}, 0, len(rows)*cols)
		for i, a := range rows {
			digest := result.Digests[a.Wallet]
			values = append(values, placeholders(i*cols, cols))
			args = append(args,
				result.RunID, a.Wallet, a.RealizedPnL, a.UnexplainedSellVolume,
				a.OpenPositions, a.Reconstructable, pq.Array(a.Flags), digest[:],
			)
		}

		query := `INSERT INTO results.wallet_pnl
			(run_id, wallet, realized_pnl, unexplained_sell_volume, open_positions, reconstructable, flags, state_digest)
			VALUES ` + strings.Join(values, ", ") +
			` ON CONFLICT (run_id, wallet) DO NOTHING`

		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("write wallet aggregates: %w", err)
		}
	}
	return nil
}

// WriteRawFills stores raw fill rows from the streaming ingest.
func (w *ResultWriter) WriteRawFills(ctx context.Context, fills []event.RawFill) error {
	if len(fills) == 0 {
		return nil
	}

	const cols = 9
	values := make([]string, 0, len(fills))
	args := make([]interface{}, 0, len(fills)*cols)
	for i, f := range fills {
		values = append(values, placeholders(i*cols, cols))
		args = append(args,
			f.SourceRef, f.Wallet, f.TransactionID, f.Role.String(),
			strings.ToLower(f.Side.String()), f.QuoteAmount, f.BaseAmount, f.TokenID, f.OrderKey,
		)
	}

	query := `INSERT INTO raw.trade_fills
		(source_ref, wallet, transaction_id, role, side, quote_amount, base_amount, token_id, order_key)
		VALUES ` + strings.Join(values, ", ") +
		` ON CONFLICT (source_ref) DO NOTHING`

	if _, err := w.db.ExecContext(ctx, query, args...); err != nil {
		w.countError("raw_fills")
		return fmt.Errorf("write raw fills: %w", err)
	}
	if w.metrics != nil {
		w.metrics.PersistRowsWritten.WithLabelValues("raw_fills").Add(float64(len(fills)))
	}
	return nil
}

// WriteRawTokenEvents stores raw conditional-token rows from the
// streaming ingest.
func (w *ResultWriter) WriteRawTokenEvents(ctx context.Context, events []event.RawTokenEvent) error {
	if len(events) == 0 {
		return nil
	}

	const cols = 12
	values := make([]string, 0, len(events))
	args := make([]interface{}, 0, len(events)*cols)
	for i, e := range events {
		values = append(values, placeholders(i*cols, cols))
		args = append(args,
			e.SourceRef, e.Initiator, e.Wallet, strings.ToLower(e.Type.String()),
			e.ConditionID, e.GroupID, pq.Array(e.BurnIndexes), e.Amount,
			e.OutcomeIndex, pq.Array(e.PayoutNumerators), e.PayoutDenominator, e.OrderKey,
		)
	}

	query := `INSERT INTO raw.token_events
		(source_ref, initiator, wallet, event_type, condition_id, group_id, burn_indexes, amount, outcome_index, payout_numerators, payout_denominator, order_key)
		VALUES ` + strings.Join(values, ", ") +
		` ON CONFLICT (source_ref) DO NOTHING`

	if _, err := w.db.ExecContext(ctx, query, args...); err != nil {
		w.countError("raw_token_events")
		return fmt.Errorf("write raw token events: %w", err)
	}
	if w.metrics != nil {
		w.metrics.PersistRowsWritten.WithLabelValues("raw_token_events").Add(float64(len(events)))
	}
	return nil
}

func (w *ResultWriter) countError(op string) {
	if w.metrics != nil {
		w.metrics.PersistErrors.WithLabelValues(op).Inc()
	}
}

// maxRowsPerInsert keeps each statement under Postgres's 65535
// parameter limit at the widest column count.
const maxRowsPerInsert = 1000

func placeholders(base, n int) string {
	parts := make([]string, n)
	for i := 0; i < n; i++ {
		parts[i] = fmt.Sprintf("$%d", base+i+1)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
