package contrastive

// Temperature is the fixed InfoNCE temperature.
const Temperature = 0.07

// #region separation
// Separation describes how cleanly a loss distinguishes the positive anchor.
type Separation string

const (
	SeparationExcellent Separation = "excellent"
	SeparationGood      Separation = "good"
	SeparationModerate  Separation = "moderate"
	SeparationPoor      Separation = "poor"
)

// Interpret grades a loss: <0.5 excellent, <1 good, <2 moderate, else poor.
func Interpret(loss float64) Separation {
	switch {
	case loss < 0.5:
		return SeparationExcellent
	case loss < 1.0:
		return SeparationGood
	case loss < 2.0:
		return SeparationModerate
	default:
		return SeparationPoor
	}
}

// #endregion separation
