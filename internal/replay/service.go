package replay

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"OutcomeLedger/internal/aggregate"
	"OutcomeLedger/internal/canonical"
	"OutcomeLedger/internal/event"
	"OutcomeLedger/internal/ledger"
	"OutcomeLedger/internal/market"
	"OutcomeLedger/internal/observability"
	"OutcomeLedger/internal/settle"
)

// PositionSnapshot is the per-position output row of a replay run.
type PositionSnapshot struct {
	Wallet      string
	ConditionID string
	Outcome     uint8
	Amount      int64
	AvgPrice    int64
	RealizedPnL int64
	TotalBought int64
	Status      string
}

// RunResult is the full output of one batch replay.
type RunResult struct {
	RunID      uuid.UUID
	StartedAt  time.Time
	Duration   time.Duration
	Snapshots  []PositionSnapshot
	Aggregates []aggregate.WalletAggregate
	// Digests maps wallet to its deterministic state digest; RunDigest
	// chains them in sorted wallet order.
	Digests     map[string][32]byte
	RunDigest   [32]byte
	EventErrors int
}

// Service drives the replay pipeline: group canonical events by wallet,
// replay each wallet ledger sequentially, join settlement, and aggregate.
// Wallets share no state, so they run in parallel on a bounded worker
// pool. Within a wallet everything is strictly sequential: Convert
// couples sibling positions, so the wallet is the unit of ordering.
type Service struct {
	registry   *market.Registry
	aggregator *aggregate.Aggregator
	workers    int
	metrics    *observability.Metrics
	log        zerolog.Logger
}

func NewService(
	registry *market.Registry,
	aggregator *aggregate.Aggregator,
	workers int,
	metrics *observability.Metrics,
) *Service {
	if workers <= 0 {
		workers = 4
	}
	return &Service{
		registry:   registry,
		aggregator: aggregator,
		workers:    workers,
		metrics:    metrics,
		log:        observability.NewLogger("replay"),
	}
}

// walletResult carries one wallet's outputs from a worker back to the
// sequential assembly phase.
type walletResult struct {
	wallet    string
	snapshots []PositionSnapshot
	aggregate aggregate.WalletAggregate
	digest    [32]byte
	eventErrs int
}

// Run replays a canonical batch across all wallets. The computation is
// a pure function of the batch and the registry: re-running the same
// inputs yields the same RunDigest. Event-scoped errors are counted and
// logged, never fatal to the run.
func (s *Service) Run(ctx context.Context, batch canonical.Batch) (*RunResult, error) {
	start := time.Now()
	runID := uuid.New()

	byWallet := make(map[string][]event.CanonicalEvent)
	for _, evt := range batch.Events {
		byWallet[evt.Wallet] = append(byWallet[evt.Wallet], evt)
	}
	// Wallets flagged by the canonicalizer with no surviving events still
	// get an aggregate row carrying the verdict.
	for wallet := range batch.Flags {
		if _, ok := byWallet[wallet]; !ok {
			byWallet[wallet] = nil
		}
	}

	wallets := make([]string, 0, len(byWallet))
	for wallet := range byWallet {
		wallets = append(wallets, wallet)
	}
	sort.Strings(wallets)

	s.log.Info().
		Str("run_id", runID.String()).
		Int("wallets", len(wallets)).
		Int("events", len(batch.Events)).
		Int("workers", s.workers).
		Msg("replay run starting")

	results := make([]walletResult, len(wallets))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for i, wallet := range wallets {
		i, wallet := i, wallet
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			results[i] = s.replayWallet(wallet, byWallet[wallet], batch.Flags[wallet])
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Sequential assembly: wallet order is already sorted, so the run
	// digest chain is reproducible.
	out := &RunResult{
		RunID:     runID,
		StartedAt: start,
		Digests:   make(map[string][32]byte, len(wallets)),
	}
	runHasher := NewRunHasher()

	for _, res := range results {
		out.Snapshots = append(out.Snapshots, res.snapshots...)
		out.Aggregates = append(out.Aggregates, res.aggregate)
		out.Digests[res.wallet] = res.digest
		out.EventErrors += res.eventErrs
		runHasher.Fold(res.digest)
	}
	out.RunDigest = runHasher.Tip()
	out.Duration = time.Since(start)

	if s.metrics != nil {
		s.metrics.ReplayRunDur.Observe(out.Duration.Seconds())
	}

	s.log.Info().
		Str("run_id", runID.String()).
		Int("snapshots", len(out.Snapshots)).
		Int("event_errors", out.EventErrors).
		Dur("elapsed", out.Duration).
		Msg("replay run complete")

	return out, nil
}

func (s *Service) replayWallet(
	wallet string,
	events []event.CanonicalEvent,
	flags canonical.WalletFlags,
) walletResult {
	start := time.Now()

	wl := ledger.NewWalletLedger(wallet, s.registry)
	wl.MissingMapping = flags.MissingMapping
	wl.IncompleteEvents = flags.IncompleteEvents

	errs := wl.Replay(events)
	for _, err := range errs {
		s.log.Warn().
			Str("wallet", wallet).
			Err(err).
			Msg("event rejected during replay")
		if s.metrics != nil {
			s.metrics.ReplayEventErrors.WithLabelValues(errorReason(err)).Inc()
		}
	}

	settleResults := settle.Settle(wl, s.registry, s.metrics)

	snapshots := make([]PositionSnapshot, 0, len(settleResults))
	for _, res := range settleResults {
		pos := res.Position
		snapshots = append(snapshots, PositionSnapshot{
			Wallet:      wallet,
			ConditionID: pos.ID.ConditionID,
			Outcome:     pos.ID.Outcome,
			Amount:      pos.Amount,
			AvgPrice:    pos.AvgPrice,
			RealizedPnL: pos.RealizedPnL,
			TotalBought: pos.TotalBought,
			Status:      res.Status.String(),
		})
	}

	if s.metrics != nil {
		s.metrics.ReplayWallets.Inc()
		s.metrics.ReplayEventsApplied.Add(float64(len(events) - len(errs)))
		s.metrics.ReplayWalletDur.Observe(time.Since(start).Seconds())
	}

	return walletResult{
		wallet:    wallet,
		snapshots: snapshots,
		aggregate: s.aggregator.Aggregate(wl),
		digest:    DigestWallet(wl),
		eventErrs: len(errs),
	}
}

func errorReason(err error) string {
	switch {
	case ledger.IsMissingMapping(err):
		return "missing_mapping"
	case ledger.IsMalformedEvent(err):
		return "malformed_event"
	case ledger.IsInvalidConversionGroup(err):
		return "invalid_conversion_group"
	case ledger.IsUnknownGroup(err):
		return "unknown_group"
	default:
		return "other"
	}
}
