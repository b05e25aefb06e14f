package wmatrix

// #region linear-map
// LinearMap is a learned W-Matrix mapping a source model's latent space into a
// target model's. Weights are Dtarget rows by Dsource columns.
type LinearMap struct {
	SourceModel         string      `json:"source_model"`
	TargetModel         string      `json:"target_model"`
	Weights             [][]float32 `json:"weights"`
	Bias                []float32   `json:"bias,omitempty"`
	AlignmentLoss       float64     `json:"alignment_loss"`       // epsilon, supplied by the producer
	OrthogonalityScore  float64     `json:"orthogonality_score"`  // supplied by the producer
	TrainingAnchorCount int         `json:"training_anchor_count"`
}

// TargetDim returns the number of rows.
func (m LinearMap) TargetDim() int {
	return len(m.Weights)
}

// SourceDim returns the column count of the first row, or 0 for an empty map.
func (m LinearMap) SourceDim() int {
	if len(m.Weights) == 0 {
		return 0
	}
	return len(m.Weights[0])
}

// #endregion linear-map
