package logging

import "time"

// #region verdict-entry
// VerdictEntry is a single row in the verdict_log table.
type VerdictEntry struct {
	VerdictID     string // generated when empty
	CorpusVersion string
	SourceModel   string
	TargetModel   string
	Score         float64
	Coverage      float64
	Band          string
	Action        string // "accept" | "reject"
	Tier          string // "premium" | "standard" | "none"
	SoftScore     float64
	Reason        string
	RecordJSON    string
	CreatedAt     time.Time
}

// #endregion verdict-entry

// #region verdict-record
// VerdictRecord captures the complete gate inputs for one decision.
// Serialized as JSON into verdict_log.record_json for deterministic replay.
type VerdictRecord struct {
	CaseID string `json:"case_id,omitempty"`

	// Map metadata as evaluated
	AlignmentLoss      float64 `json:"alignment_loss"`
	OrthogonalityScore float64 `json:"orthogonality_score"`

	// Calibration output
	Score        float64  `json:"score"`
	Coverage     float64  `json:"coverage"`
	TopAnchorIDs []int    `json:"top_anchor_ids"`
	ContrastLoss *float64 `json:"contrastive_loss,omitempty"`
	EvalWarnings []string `json:"eval_warnings,omitempty"`

	// Thresholds active at decision time
	Thresholds VerdictThresholds `json:"thresholds"`

	// Gate output
	VetoTypes []string `json:"veto_types,omitempty"`
}

// VerdictThresholds captures the gate config active at decision time.
type VerdictThresholds struct {
	MinScore           float64 `json:"min_score"`
	PremiumScore       float64 `json:"premium_score"`
	MaxAlignmentLoss   float64 `json:"max_alignment_loss"`
	MaxContrastiveLoss float64 `json:"max_contrastive_loss"`
}

// #endregion verdict-record
