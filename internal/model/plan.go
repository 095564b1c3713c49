package model

// PlanItem is one decomposed work item inside a task plan.
type PlanItem struct {
	Index     int     `json:"index"`
	Plan      string  `json:"plan"`
	Completed bool    `json:"completed"`
	Summary   *string `json:"summary,omitempty"`
}

// TaskPlan describes the agent's decomposed work for a session. A plan may be
// carried forward in session state or recovered from an issue description;
// when both exist the recovered plan wins, because the tracker description is
// the source of truth and a human may have edited it out-of-band.
type TaskPlan struct {
	Items           []PlanItem `json:"items"`
	ActiveItemIndex int        `json:"active_item_index"`
}
