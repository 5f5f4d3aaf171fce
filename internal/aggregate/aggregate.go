package aggregate

import (
	"OutcomeLedger/internal/ledger"
	fpmath "OutcomeLedger/internal/math"
	"OutcomeLedger/internal/observability"
)

// Flag names recorded on a wallet aggregate. Diagnostic only; the
// reconstructability verdict is the single user-visible signal.
const (
	FlagMissingMapping   = "missing_mapping"
	FlagIncompleteEvents = "incomplete_events"
	FlagPhantomInventory = "phantom_inventory"
)

// Config tunes the reconstructability verdict.
type Config struct {
	// PhantomThresholdPPM is the maximum tolerated ratio of unexplained
	// sell volume to total sell volume on any single position, in parts
	// per million. Above it the wallet is marked unreconstructable.
	PhantomThresholdPPM int64
}

// DefaultPhantomThresholdPPM tolerates dust-level mismatches (0.1%)
// from rounding in upstream indexers without surrendering the verdict.
const DefaultPhantomThresholdPPM = 1_000

// WalletAggregate is the per-wallet output row: summed realized P&L plus
// the data-quality verdict downstream consumers must honor.
type WalletAggregate struct {
	Wallet                string
	RealizedPnL           int64
	UnexplainedSellVolume int64
	OpenPositions         int
	Reconstructable       bool
	Flags                 []string
}

// Aggregator folds settled wallet ledgers into wallet aggregates.
type Aggregator struct {
	cfg     Config
	metrics *observability.Metrics
}

func New(cfg Config, metrics *observability.Metrics) *Aggregator {
	if cfg.PhantomThresholdPPM <= 0 {
		cfg.PhantomThresholdPPM = DefaultPhantomThresholdPPM
	}
	return &Aggregator{cfg: cfg, metrics: metrics}
}

// Aggregate sums a wallet's position-level results and issues the
// reconstructability verdict. A wallet is UNRECONSTRUCTABLE when any
// position's phantom-sell ratio exceeds the configured threshold, or
// when a token-to-condition mapping was unavailable for any traded
// position. The P&L number is still returned either way; consumers must
// not present it as authoritative for a flagged wallet.
func (a *Aggregator) Aggregate(wl *ledger.WalletLedger) WalletAggregate {
	agg := WalletAggregate{
		Wallet:          wl.Wallet(),
		Reconstructable: true,
	}

	for _, pos := range wl.Positions() {
		agg.RealizedPnL += pos.RealizedPnL
		agg.UnexplainedSellVolume += pos.UnexplainedSellVolume
		if pos.IsOpen() {
			agg.OpenPositions++
		}

		if pos.UnexplainedSellVolume > 0 && pos.TotalSellVolume > 0 {
			ratio := fpmath.MulDiv(pos.UnexplainedSellVolume, fpmath.Scale, pos.TotalSellVolume)
			if ratio > a.cfg.PhantomThresholdPPM {
				agg.Reconstructable = false
				agg.Flags = appendFlag(agg.Flags, FlagPhantomInventory)
			}
		}
	}

	if wl.MissingMapping {
		agg.Reconstructable = false
		agg.Flags = appendFlag(agg.Flags, FlagMissingMapping)
	}
	if wl.IncompleteEvents {
		// Dropped events degrade confidence but do not by themselves
		// invalidate the replay; the number stays authoritative.
		agg.Flags = appendFlag(agg.Flags, FlagIncompleteEvents)
	}

	if a.metrics != nil {
		for _, flag := range agg.Flags {
			a.metrics.WalletsFlagged.WithLabelValues(flag).Inc()
		}
		if agg.Reconstructable {
			a.metrics.WalletsReconstructed.Inc()
		}
		if agg.UnexplainedSellVolume > 0 {
			a.metrics.PhantomSellVolume.Add(float64(agg.UnexplainedSellVolume))
		}
	}

	return agg
}

func appendFlag(flags []string, flag string) []string {
	for _, f := range flags {
		if f == flag {
			return flags
		}
	}
	return append(flags, flag)
}
