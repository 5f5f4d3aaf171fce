package market

import (
	"fmt"

	"OutcomeLedger/internal/event"
)

// Condition is the resolution record for one binary condition.
// Payout price for outcome i = PayoutNumerators[i] / PayoutDenominator,
// in practice always 0 or 1 for binary markets.
type Condition struct {
	ConditionID       string
	Resolved          bool
	PayoutNumerators  [2]int64
	PayoutDenominator int64
}

// NegRiskGroup bundles sibling binary questions under one collateral-locking
// group. Questions holds the condition ID of each question in index order.
type NegRiskGroup struct {
	GroupID       string
	QuestionCount int
	Questions     []string
}

// Registry is the immutable reference-data lookup the core consumes:
// token→(condition, outcome) mapping, condition resolutions, and
// negative-risk groups. A token miss is a hard data-quality signal and is
// surfaced to the caller, never silently defaulted.
type Registry struct {
	tokens     map[string]event.PositionID
	conditions map[string]Condition
	groups     map[string]NegRiskGroup
}

func NewRegistry() *Registry {
	return &Registry{
		tokens:     make(map[string]event.PositionID),
		conditions: make(map[string]Condition),
		groups:     make(map[string]NegRiskGroup),
	}
}

// AddToken registers a token→position mapping.
func (r *Registry) AddToken(tokenID string, pos event.PositionID) {
	r.tokens[tokenID] = pos
}

// AddCondition registers a condition resolution record.
func (r *Registry) AddCondition(c Condition) {
	r.conditions[c.ConditionID] = c
}

// AddGroup registers a negative-risk group.
func (r *Registry) AddGroup(g NegRiskGroup) error {
	if g.QuestionCount != len(g.Questions) {
		return fmt.Errorf("group %s: question_count=%d but %d questions listed",
			g.GroupID, g.QuestionCount, len(g.Questions))
	}
	r.groups[g.GroupID] = g
	return nil
}

// LookupToken resolves a token ID to its (condition, outcome) position.
func (r *Registry) LookupToken(tokenID string) (event.PositionID, bool) {
	pos, ok := r.tokens[tokenID]
	return pos, ok
}

// GetCondition returns the resolution record for a condition.
func (r *Registry) GetCondition(conditionID string) (Condition, bool) {
	c, ok := r.conditions[conditionID]
	return c, ok
}

// GetGroup returns a negative-risk group by ID.
func (r *Registry) GetGroup(groupID string) (NegRiskGroup, bool) {
	g, ok := r.groups[groupID]
	return g, ok
}

// Conditions returns all registered conditions.
func (r *Registry) Conditions() map[string]Condition {
	return r.conditions
}
