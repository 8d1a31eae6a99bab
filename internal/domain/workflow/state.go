package workflow

// State represents a workflow state in the expense approval lifecycle
type State string

const (
	StatePending           State = "PENDING"
	StateCommitteeApproved State = "COMMITTEE_APPROVED"
	StateApproved          State = "APPROVED"
	StateRejected          State = "REJECTED"
)

var validStates = map[State]bool{
	StatePending:           true,
	StateCommitteeApproved: true,
	StateApproved:          true,
	StateRejected:          true,
}

var terminalStates = map[State]bool{
	StateApproved: true,
	StateRejected: true,
}

// IsTerminal returns true if the state is a terminal state (no further transitions allowed)
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a valid workflow state
func (s State) IsValid() bool {
	return validStates[s]
}
