package escrow

// FeeSchedule computes the platform fee captured at funding time. The fee
// is frozen on the transaction afterwards; later releases pro-rate from the
// frozen value, never from the live schedule.
type FeeSchedule struct {
	RateBps int64 // basis points of the total amount
}

// Fee returns the platform fee for the given total, rounded down to a won.
func (f FeeSchedule) Fee(total int64) int64 {
	return total * f.RateBps / 10000
}

// MilestonePayout is the partner/platform split for one milestone release.
type MilestonePayout struct {
	MilestoneID int // position within the transaction
	Payout      int64
	Fee         int64
}

// PayoutPlan pro-rates the frozen partner payout across milestones in
// order. Integer division remainders accumulate on the final milestone so
// that the payouts sum to exactly partnerPayout and the fees to exactly
// total-partnerPayout, never more.
func PayoutPlan(milestones []*Milestone, total, partnerPayout int64) []MilestonePayout {
	plan := make([]MilestonePayout, len(milestones))

	var paidOut int64

	for i, m := range milestones {
		var payout int64
		if i == len(milestones)-1 {
			payout = partnerPayout - paidOut
		} else {
			payout = m.Amount * partnerPayout / total
		}

		plan[i] = MilestonePayout{
			MilestoneID: m.Position,
			Payout:      payout,
			Fee:         m.Amount - payout,
		}
		paidOut += payout
	}

	return plan
}

// payoutFor returns the frozen split for a single milestone of the transaction.
func (t *Transaction) payoutFor(m *Milestone) MilestonePayout {
	plan := PayoutPlan(t.Milestones, t.TotalAmount, t.PartnerPayout)
	for _, p := range plan {
		if p.MilestoneID == m.Position {
			return p
		}
	}

	return MilestonePayout{MilestoneID: m.Position}
}
