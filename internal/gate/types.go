package gate

import "github.com/danielpatrickdp/neural-bridge/internal/calibrate"

// #region veto-type
// VetoType enumerates hard veto categories.
type VetoType string

const (
	VetoQuality       VetoType = "below_hard_minimum"
	VetoInvalidLoss   VetoType = "invalid_alignment_loss"
	VetoAlignmentLoss VetoType = "alignment_loss_exceeded"
	VetoSeparation    VetoType = "poor_separation"
)

// #endregion veto-type

// #region veto-signal
// VetoSignal represents a detected hard veto condition.
type VetoSignal struct {
	Type   VetoType `json:"type"`
	Reason string   `json:"reason"`
}

// #endregion veto-signal

// #region gate-config
// Config holds thresholds for listing decisions.
type Config struct {
	MinScore           float64 // hard floor on calibration score
	PremiumScore       float64 // score at or above this lists as premium
	MaxAlignmentLoss   float64 // hard cap on the map's epsilon; 0 disables
	MaxContrastiveLoss float64 // hard cap on a supplied InfoNCE loss
}

// DefaultConfig returns the marketplace defaults.
func DefaultConfig() Config {
	return Config{
		MinScore:           calibrate.HardMinimum,
		PremiumScore:       calibrate.PremiumBar,
		MaxAlignmentLoss:   0,
		MaxContrastiveLoss: 2.0,
	}
}

// #endregion gate-config

// #region decision
// Action is the gate outcome.
type Action string

const (
	ActionAccept Action = "accept"
	ActionReject Action = "reject"
)

// Tier is the listing tier for an accepted map.
type Tier string

const (
	TierNone     Tier = "none"
	TierStandard Tier = "standard"
	TierPremium  Tier = "premium"
)

// Decision is the output of the gate evaluation.
type Decision struct {
	Action      Action         `json:"action"`
	Tier        Tier           `json:"tier"`
	Band        calibrate.Band `json:"band"`
	Reason      string         `json:"reason"`
	Vetoed      bool           `json:"vetoed"`
	VetoSignals []VetoSignal   `json:"veto_signals,omitempty"` // non-empty if vetoed
	SoftScore   float64        `json:"soft_score"`             // 0-1 composite (for logging)
}

// #endregion decision
