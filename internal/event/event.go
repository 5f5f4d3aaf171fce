package event

// Kind discriminates canonical event types
type Kind int32

const (
	KindUnknown Kind = iota
	KindTrade
	KindSplit
	KindMerge
	KindConvert
	KindRedeem
)

func (k Kind) String() string {
	switch k {
	case KindTrade:
		return "Trade"
	case KindSplit:
		return "Split"
	case KindMerge:
		return "Merge"
	case KindConvert:
		return "Convert"
	case KindRedeem:
		return "Redeem"
	default:
		return "Unknown"
	}
}

// Side represents the economic direction of an event
type Side int32

const (
	SideNone Side = iota
	SideBuy
	SideSell
)

func (s Side) String() string {
	switch s {
	case SideBuy:
		return "Buy"
	case SideSell:
		return "Sell"
	default:
		return "None"
	}
}

// Outcome indexes for a binary condition.
const (
	OutcomeYes uint8 = 0
	OutcomeNo  uint8 = 1
)

// PositionID identifies one outcome token of one binary condition.
type PositionID struct {
	ConditionID string
	Outcome     uint8
}

// ConvertDetail carries the group context for a Convert event.
// BurnIndexes are the question indexes whose NO positions are burned;
// the complement receives synthetic YES buys.
type ConvertDetail struct {
	GroupID     string
	BurnIndexes []int
}

// CanonicalEvent is the unit the position ledger consumes.
//
// Price is a signed fixed-point integer scaled by 1_000_000. Negative
// prices are a valid domain value: the synthetic YES buys produced by a
// Convert can carry a negative price, representing a cost-basis credit,
// not an error sentinel.
//
// For Convert events Position is zero; the event spans every question
// in the group and is resolved against the group registry during replay.
type CanonicalEvent struct {
	Wallet    string
	Position  PositionID
	Kind      Kind
	Side      Side
	Price     int64  // Fixed-point: price scale (1e6)
	Amount    int64  // Fixed-point: token scale (1e6), always >= 0
	OrderKey  int64  // Total order within a wallet's stream
	SourceRef string // Opaque dedup key, not consulted by the ledger
	Convert   *ConvertDetail
}
