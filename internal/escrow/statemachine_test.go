package escrow_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/daesung-dev/anshim/internal/escrow"
)

func TestCanTransition(t *testing.T) {
	type testCase struct {
		name string
		from escrow.Status
		to   escrow.Status
		want bool
	}

	tests := []testCase{
		{name: "InitiatedToFunded", from: escrow.StatusInitiated, to: escrow.StatusFunded, want: true},
		{name: "InitiatedToCancelled", from: escrow.StatusInitiated, to: escrow.StatusCancelled, want: true},
		{name: "InitiatedToInProgress", from: escrow.StatusInitiated, to: escrow.StatusInProgress, want: false},
		{name: "FundedToInProgress", from: escrow.StatusFunded, to: escrow.StatusInProgress, want: true},
		{name: "FundedToDisputed", from: escrow.StatusFunded, to: escrow.StatusDisputed, want: true},
		{name: "FundedToCancelled", from: escrow.StatusFunded, to: escrow.StatusCancelled, want: false},
		{name: "InProgressToCompleted", from: escrow.StatusInProgress, to: escrow.StatusCompleted, want: true},
		{name: "InProgressToDisputed", from: escrow.StatusInProgress, to: escrow.StatusDisputed, want: true},
		{name: "CompletedToReleased", from: escrow.StatusCompleted, to: escrow.StatusReleased, want: true},
		{name: "CompletedToDisputed", from: escrow.StatusCompleted, to: escrow.StatusDisputed, want: true},
		{name: "DisputedToReleased", from: escrow.StatusDisputed, to: escrow.StatusReleased, want: true},
		{name: "DisputedToRefunded", from: escrow.StatusDisputed, to: escrow.StatusRefunded, want: true},
		{name: "DisputedToInProgress", from: escrow.StatusDisputed, to: escrow.StatusInProgress, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, escrow.CanTransition(tt.from, tt.to))
		})
	}
}

func TestCanTransition_TerminalStatesAdmitNothing(t *testing.T) {
	terminals := []escrow.Status{escrow.StatusReleased, escrow.StatusRefunded, escrow.StatusCancelled}
	all := []escrow.Status{
		escrow.StatusInitiated, escrow.StatusFunded, escrow.StatusInProgress, escrow.StatusCompleted,
		escrow.StatusReleased, escrow.StatusDisputed, escrow.StatusRefunded, escrow.StatusCancelled,
	}

	for _, from := range terminals {
		assert.True(t, from.Terminal())

		for _, to := range all {
			assert.False(t, escrow.CanTransition(from, to), "%s -> %s should be rejected", from, to)
		}
	}
}

func TestCanTransitionMilestone(t *testing.T) {
	type testCase struct {
		name string
		from escrow.MilestoneStatus
		to   escrow.MilestoneStatus
		want bool
	}

	tests := []testCase{
		{name: "PendingToFunded", from: escrow.MilestonePending, to: escrow.MilestoneFunded, want: true},
		{name: "FundedToInProgress", from: escrow.MilestoneFunded, to: escrow.MilestoneInProgress, want: true},
		{name: "InProgressToSubmitted", from: escrow.MilestoneInProgress, to: escrow.MilestoneSubmitted, want: true},
		{name: "SubmittedToApproved", from: escrow.MilestoneSubmitted, to: escrow.MilestoneApproved, want: true},
		{name: "SubmittedToRejected", from: escrow.MilestoneSubmitted, to: escrow.MilestoneRejected, want: true},
		{name: "ApprovedToReleased", from: escrow.MilestoneApproved, to: escrow.MilestoneReleased, want: true},
		{name: "RejectedToInProgress", from: escrow.MilestoneRejected, to: escrow.MilestoneInProgress, want: true},
		{name: "ReleasedIsTerminal", from: escrow.MilestoneReleased, to: escrow.MilestoneInProgress, want: false},
		{name: "PendingToSubmitted", from: escrow.MilestonePending, to: escrow.MilestoneSubmitted, want: false},
		{name: "FundedToApproved", from: escrow.MilestoneFunded, to: escrow.MilestoneApproved, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, escrow.CanTransitionMilestone(tt.from, tt.to))
		})
	}
}

func TestCanDispute(t *testing.T) {
	assert.True(t, escrow.CanDispute(escrow.StatusFunded))
	assert.True(t, escrow.CanDispute(escrow.StatusInProgress))
	assert.True(t, escrow.CanDispute(escrow.StatusCompleted))

	assert.False(t, escrow.CanDispute(escrow.StatusInitiated))
	assert.False(t, escrow.CanDispute(escrow.StatusReleased))
	assert.False(t, escrow.CanDispute(escrow.StatusRefunded))
	assert.False(t, escrow.CanDispute(escrow.StatusCancelled))
	assert.False(t, escrow.CanDispute(escrow.StatusDisputed))
}
