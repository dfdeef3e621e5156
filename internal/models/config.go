package models

// ClosureConfig holds the close and reopen thresholds. Single row, changed
// only by the admin path.
type ClosureConfig struct {
	CloseVotesNeeded    int `json:"close_votes_needed"`
	ReopenVotesNeeded   int `json:"reopen_votes_needed"`
	MinReputationClose  int `json:"min_reputation_close"`
	MinReputationReopen int `json:"min_reputation_reopen"`
}

// VotesNeededFor returns the close threshold for a reason, honoring its override.
func (c *ClosureConfig) VotesNeededFor(reason *CloseReason) int {
	if reason != nil && reason.VotesNeeded != nil && *reason.VotesNeeded > 0 {
		return *reason.VotesNeeded
	}
	return c.CloseVotesNeeded
}

// ClosureConfigPatch is a partial update of ClosureConfig; nil fields are left alone.
type ClosureConfigPatch struct {
	CloseVotesNeeded    *int `json:"close_votes_needed"`
	ReopenVotesNeeded   *int `json:"reopen_votes_needed"`
	MinReputationClose  *int `json:"min_reputation_close"`
	MinReputationReopen *int `json:"min_reputation_reopen"`
}

// ReviewThreshold configures one review category.
type ReviewThreshold struct {
	ReviewType    ReviewType `json:"review_type"`
	VotesNeeded   int        `json:"votes_needed"`
	MinReputation int        `json:"min_reputation"`
}
