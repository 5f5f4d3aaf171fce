package ledger

import "errors"

// Error taxonomy. All errors are event- or position-scoped: one bad event
// never aborts the rest of the wallet's replay, and never other wallets'.

var (
	// ErrMissingMapping: a token has no known condition; the position
	// cannot be attributed and is excluded rather than guessed.
	ErrMissingMapping = errors.New("token has no condition mapping")

	// ErrMalformedEvent: unparseable role/side/amount; the event is
	// dropped and the wallet flagged.
	ErrMalformedEvent = errors.New("malformed event")

	// ErrInvalidConversionGroup: a Convert whose burn set covers every
	// question in the group; the single event is rejected.
	ErrInvalidConversionGroup = errors.New("invalid conversion group")

	// ErrUnknownGroup: a Convert references a group absent from the
	// registry.
	ErrUnknownGroup = errors.New("unknown negative-risk group")
)

func IsMissingMapping(err error) bool { return errors.Is(err, ErrMissingMapping) }

func IsMalformedEvent(err error) bool { return errors.Is(err, ErrMalformedEvent) }

func IsInvalidConversionGroup(err error) bool { return errors.Is(err, ErrInvalidConversionGroup) }

func IsUnknownGroup(err error) bool { return errors.Is(err, ErrUnknownGroup) }
