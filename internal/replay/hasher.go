package replay

import (
	"crypto/sha256"

	"OutcomeLedger/internal/ledger"
)

const genesisHashSeed = "OutcomeLedger:genesis:v1"

// DigestWallet computes a deterministic SHA-256 digest of a wallet
// ledger's end state. Positions are folded in sorted key order, so two
// replays of the identical canonical stream produce identical digests.
// Used to verify idempotence of re-computation across runs.
func DigestWallet(wl *ledger.WalletLedger) [32]byte {
	hasher := sha256.New()
	hasher.Write([]byte(wl.Wallet()))

	for _, pos := range wl.Positions() {
		hasher.Write([]byte{byte(len(pos.ID.ConditionID))})
		hasher.Write([]byte(pos.ID.ConditionID))
		hasher.Write([]byte{pos.ID.Outcome})

		buf := make([]byte, 0, 40)
		buf = appendInt64LE(buf, pos.Amount)
		buf = appendInt64LE(buf, pos.AvgPrice)
		buf = appendInt64LE(buf, pos.RealizedPnL)
		buf = appendInt64LE(buf, pos.TotalSellVolume)
		buf = appendInt64LE(buf, pos.UnexplainedSellVolume)
		hasher.Write(buf)
	}

	var digest [32]byte
	copy(digest[:], hasher.Sum(nil))
	return digest
}

// RunHasher chains wallet digests into one run-level hash:
// hash[N] = SHA-256(prev_hash || wallet_digest[N]). Wallets must be fed
// in sorted order for the chain to be reproducible.
type RunHasher struct {
	prevHash [32]byte
}

func NewRunHasher() *RunHasher {
	genesis := sha256.Sum256([]byte(genesisHashSeed))
	return &RunHasher{prevHash: genesis}
}

func (h *RunHasher) Fold(walletDigest [32]byte) [32]byte {
	hasher := sha256.New()
	hasher.Write(h.prevHash[:])
	hasher.Write(walletDigest[:])

	var hash [32]byte
	copy(hash[:], hasher.Sum(nil))
	h.prevHash = hash
	return hash
}

// Tip returns the current chain tip.
func (h *RunHasher) Tip() [32]byte {
	return h.prevHash
}

func appendInt64LE(buf []byte, v int64) []byte {
	return append(buf,
		byte(v),
		byte(v>>8),
		byte(v>>16),
		byte(v>>24),
		byte(v>>32),
		byte(v>>40),
		byte(v>>48),
		byte(v>>56),
	)
}
