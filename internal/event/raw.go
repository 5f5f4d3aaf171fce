package event

// Role identifies which leg of a matched order a fill record describes.
// The venue records one fill row per counterparty role, so a wallet
// trading against itself in one transaction appears twice.
type Role int32

const (
	RoleUnknown Role = iota
	RoleMaker
	RoleTaker
)

func (r Role) String() string {
	switch r {
	case RoleMaker:
		return "maker"
	case RoleTaker:
		return "taker"
	default:
		return "unknown"
	}
}

// RawFill is a trade fill exactly as the venue's order-fill source
// records it, before canonicalization.
type RawFill struct {
	Wallet        string
	TransactionID string
	Role          Role
	Side          Side
	QuoteAmount   int64 // Collateral paid/received, fixed-point 1e6
	BaseAmount    int64 // Outcome tokens moved, fixed-point 1e6
	TokenID       string
	OrderKey      int64
	SourceRef     string // tx hash + role
}

// RawTokenEvent is a conditional-token lifecycle event (Split, Merge,
// Convert, Redeem) from the chain indexer, before canonicalization.
type RawTokenEvent struct {
	Initiator   string // Contract/account that emitted the event
	Wallet      string
	Type        Kind
	ConditionID string // Split/Merge/Redeem
	GroupID     string // Convert only
	BurnIndexes []int  // Convert only
	Amount      int64  // Fixed-point 1e6

	// Redeem payout data, copied from the resolution record.
	OutcomeIndex      uint8
	PayoutNumerators  []int64
	PayoutDenominator int64

	OrderKey  int64
	SourceRef string
}
