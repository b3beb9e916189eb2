package workflows

// StateMachine enforces emission report status transitions
type StateMachine struct {
	allowedTransitions map[string][]string
}

// NewReportStateMachine creates the state machine for the report review and
// payout lifecycle. "approved" is the payout-eligibility stage and is distinct
// from "admin-approved", which gates credit issuance.
func NewReportStateMachine() *StateMachine {
	return &StateMachine{
		allowedTransitions: map[string][]string{
			"submitted":      {"cva-approved", "rejected"},
			"cva-approved":   {"admin-approved", "rejected"},
			"admin-approved": {"credit-issued", "rejected"},
			"credit-issued":  {"approved"},
			"approved":       {"paid-out"},
			"paid-out":       {},
			"rejected":       {},
		},
	}
}

// CanTransition checks if a status transition is allowed
func (sm *StateMachine) CanTransition(from, to string) bool {
	allowed, exists := sm.allowedTransitions[from]
	if !exists {
		return false
	}
	for _, allowedTo := range allowed {
		if allowedTo == to {
			return true
		}
	}
	return false
}

// GetAllowedTransitions returns the allowed next statuses for a given status
func (sm *StateMachine) GetAllowedTransitions(from string) []string {
	allowed, exists := sm.allowedTransitions[from]
	if !exists {
		return []string{}
	}
	return allowed
}
