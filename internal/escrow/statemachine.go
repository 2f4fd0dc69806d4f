package escrow

// The state machine is the only code path allowed to move a transaction or
// milestone to a new status. Stores persist whatever status the service
// hands them; they never decide transitions themselves.

var transactionTransitions = map[Status]map[Status]bool{
	StatusInitiated: {
		StatusFunded:    true,
		StatusCancelled: true,
	},
	StatusFunded: {
		StatusInProgress: true,
		StatusDisputed:   true,
	},
	StatusInProgress: {
		StatusCompleted: true,
		StatusDisputed:  true,
	},
	StatusCompleted: {
		StatusReleased: true,
		StatusDisputed: true,
	},
	StatusDisputed: {
		StatusReleased: true,
		StatusRefunded: true,
	},
}

var milestoneTransitions = map[MilestoneStatus]map[MilestoneStatus]bool{
	MilestonePending:    {MilestoneFunded: true},
	MilestoneFunded:     {MilestoneInProgress: true},
	MilestoneInProgress: {MilestoneSubmitted: true},
	MilestoneSubmitted: {
		MilestoneApproved: true,
		MilestoneRejected: true,
	},
	MilestoneApproved: {MilestoneReleased: true},
	MilestoneRejected: {MilestoneInProgress: true},
}

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusReleased || s == StatusRefunded || s == StatusCancelled
}

// Terminal reports whether the milestone status admits no further transitions.
func (s MilestoneStatus) Terminal() bool {
	return s == MilestoneReleased
}

// CanTransition reports whether from -> to is a legal transaction transition.
func CanTransition(from, to Status) bool {
	return transactionTransitions[from][to]
}

// CanTransitionMilestone reports whether from -> to is a legal milestone transition.
func CanTransitionMilestone(from, to MilestoneStatus) bool {
	return milestoneTransitions[from][to]
}

// CanDispute reports whether a dispute may be opened from the given status.
func CanDispute(s Status) bool {
	return CanTransition(s, StatusDisputed)
}
