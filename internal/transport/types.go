package transport

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/neural-bridge/internal/bridge"
	"github.com/danielpatrickdp/neural-bridge/internal/calibrate"
	"github.com/danielpatrickdp/neural-bridge/internal/gate"
	"github.com/danielpatrickdp/neural-bridge/internal/latent"
	"github.com/danielpatrickdp/neural-bridge/internal/wmatrix"
)

// #region messages
// AlignRequest submits a tensor and the map to align it with. When PositiveID
// is set the aligned quality vector is also scored contrastively.
type AlignRequest struct {
	Map         wmatrix.LinearMap `json:"map"`
	Tensor      latent.Tensor     `json:"tensor"`
	PositiveID  *int              `json:"positive_id,omitempty"`
	NegativeIDs []int             `json:"negative_ids,omitempty"`
}

// AlignResponse carries the engine result and the listing decision.
type AlignResponse struct {
	Result    bridge.AlignmentResult `json:"result"`
	Decision  gate.Decision          `json:"decision"`
	Loss      *float64               `json:"loss,omitempty"`
	VerdictID string                 `json:"verdict_id,omitempty"`
}

// CalibrateRequest grades one vector.
type CalibrateRequest struct {
	Vector []float32 `json:"vector"`
}

// CalibrateResponse wraps the quality report with its band.
type CalibrateResponse struct {
	Report calibrate.QualityReport `json:"report"`
	Band   calibrate.Band          `json:"band"`
}

// FindNearestRequest asks for the TopK closest anchors.
type FindNearestRequest struct {
	Vector []float32 `json:"vector"`
	TopK   int       `json:"top_k"`
}

// FindNearestResponse lists matches, most similar first.
type FindNearestResponse struct {
	Matches []calibrate.AnchorMatch `json:"matches"`
}

// LossResponse is the contrastive loss and its reading.
type LossResponse struct {
	Loss       float64 `json:"loss"`
	Separation string  `json:"separation"`
}

// #endregion messages

// #region codec
// toStruct encodes a typed message as a protobuf Struct.
func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	st := new(structpb.Struct)
	if err := protojson.Unmarshal(raw, st); err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	return st, nil
}

// fromStruct decodes a protobuf Struct into a typed message.
func fromStruct(st *structpb.Struct, v any) error {
	raw, err := protojson.Marshal(st)
	if err != nil {
		return fmt.Errorf("decode message: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode message: %w", err)
	}
	return nil
}

// #endregion codec
