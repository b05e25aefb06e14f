package calibrate

// #region constants
const (
	// DefaultTopK is the neighbor count used by Calibrate.
	DefaultTopK = 20

	// HardMinimum is the marketplace acceptance floor.
	HardMinimum = 0.70
	// PremiumBar is the marketplace premium tier threshold.
	PremiumBar = 0.97
)

// Diagnostic thresholds.
const (
	poorScoreThreshold      = 0.50
	lowCoverageThreshold    = 0.30
	strongMatchThreshold    = 0.70
	excellentScoreThreshold = 0.95
	excellentCoverage       = 0.50
)

// #endregion constants

// #region band
// Band is a qualitative grade for a calibration score.
type Band string

const (
	BandExcellent Band = "excellent"
	BandGood      Band = "good"
	BandModerate  Band = "moderate"
	BandPoor      Band = "poor"
)

// BandFor grades score: ≥0.95 excellent, ≥0.85 good, ≥0.70 moderate, else poor.
func BandFor(score float64) Band {
	switch {
	case score >= 0.95:
		return BandExcellent
	case score >= 0.85:
		return BandGood
	case score >= 0.70:
		return BandModerate
	default:
		return BandPoor
	}
}

// #endregion band

// #region match
// AnchorMatch is one neighbor of a query vector.
type AnchorMatch struct {
	AnchorID      int     `json:"anchor_id"`
	Similarity    float64 `json:"similarity"`
	Category      string  `json:"category"`
	ReferenceText string  `json:"reference_text"`
}

// #endregion match

// #region report
// QualityReport summarizes how well a vector sits in the reference space.
type QualityReport struct {
	CalibrationScore float64       `json:"calibration_score"`
	Coverage         float64       `json:"coverage"`
	NearestMatches   []AnchorMatch `json:"nearest_matches"`
	Diagnostics      []string      `json:"diagnostics"`
}

// Band grades the report's calibration score.
func (r QualityReport) Band() Band {
	return BandFor(r.CalibrationScore)
}

// #endregion report
