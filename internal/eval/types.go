package eval

// #region eval-config
// Config holds thresholds for post-alignment validation.
type Config struct {
	MinFidelity      float64 // fail if 1/(1+ε) drops below this
	MinOrthogonality float64 // fail if the map's orthogonality score is lower
	MinNormRatio     float64 // lower bound on ‖aligned‖/‖input‖
	MaxNormRatio     float64 // upper bound on ‖aligned‖/‖input‖
	BaselineEpsilon  float64 // reference loss for fidelity_boost
}

// DefaultConfig returns defaults suited to normalized hidden states.
func DefaultConfig() Config {
	return Config{
		MinFidelity:      0.5,
		MinOrthogonality: 0.5,
		MinNormRatio:     0.25,
		MaxNormRatio:     4.0,
		BaselineEpsilon:  0.1,
	}
}

// #endregion eval-config

// #region eval-metric
// Metric captures a single validation check result.
type Metric struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Pass  bool    `json:"pass"`
}

// #endregion eval-metric

// #region eval-result
// Result is the output of post-alignment validation.
type Result struct {
	Passed   bool     `json:"passed"`
	Metrics  []Metric `json:"metrics"`
	Reason   string   `json:"reason"`
	Failures []string `json:"failures,omitempty"`
}

// Metric looks up a metric by name.
func (r Result) Metric(name string) (Metric, bool) {
	for _, m := range r.Metrics {
		if m.Name == name {
			return m, true
		}
	}
	return Metric{}, false
}

// #endregion eval-result
