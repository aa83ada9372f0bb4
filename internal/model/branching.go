package model

// BranchingDecision is the outcome of asking the branching engine
// whether to insert an adaptive follow-up after a triggering answer
type BranchingDecision struct {
	ShouldContinueBranching bool      `json:"shouldContinueBranching"`
	NextQuestion            *Question `json:"nextQuestion,omitempty"`
	BranchingReason         string    `json:"branchingReason"`
	Confidence              float64   `json:"confidence"` // 0-1
	SuggestDomainSwitch     bool      `json:"suggestDomainSwitch,omitempty"`
}
