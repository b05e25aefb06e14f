package transport

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/neural-bridge/internal/anchors"
	"github.com/danielpatrickdp/neural-bridge/internal/bridge"
	"github.com/danielpatrickdp/neural-bridge/internal/calibrate"
	"github.com/danielpatrickdp/neural-bridge/internal/contrastive"
	"github.com/danielpatrickdp/neural-bridge/internal/gate"
	"github.com/danielpatrickdp/neural-bridge/internal/latent"
	"github.com/danielpatrickdp/neural-bridge/internal/logging"
)

// #region server
// ServerConfig holds optional server collaborators.
type ServerConfig struct {
	VerdictDB     *sql.DB     // when set, every Align decision is logged
	CorpusVersion string      // recorded with each verdict
	Logger        *log.Logger // nil means log.Default()
}

// Server implements BridgeServer on top of an engine and gate.
type Server struct {
	engine *bridge.Engine
	gate   *gate.Gate
	config ServerConfig
	logger *log.Logger
}

// NewServer creates a server. The engine and gate are shared across requests.
func NewServer(engine *bridge.Engine, g *gate.Gate, cfg ServerConfig) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Server{engine: engine, gate: g, config: cfg, logger: logger}
}

// #endregion server

// #region align
// Align aligns, calibrates, optionally scores, and gates one submission.
func (s *Server) Align(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req AlignRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	res, err := s.engine.Align(req.Tensor, req.Map)
	if err != nil {
		return nil, toStatus(err)
	}

	var loss *float64
	if req.PositiveID != nil {
		l, err := s.engine.Loss(bridge.QualityVector(res.Aligned), *req.PositiveID, req.NegativeIDs)
		if err != nil {
			return nil, toStatus(err)
		}
		loss = &l
	}

	decision := s.gate.Evaluate(res.Quality, req.Map, loss)
	resp := AlignResponse{Result: res, Decision: decision, Loss: loss}

	if s.config.VerdictDB != nil {
		id, err := s.logVerdict(req, res, decision, loss)
		if err != nil {
			s.logger.Printf("warning: %v", err)
		} else {
			resp.VerdictID = id
		}
	}

	s.logger.Printf("align %s->%s: action=%s tier=%s score=%.4f",
		req.Map.SourceModel, req.Map.TargetModel, decision.Action, decision.Tier, res.Quality.CalibrationScore)
	return encode(resp)
}

func (s *Server) logVerdict(req AlignRequest, res bridge.AlignmentResult, d gate.Decision, loss *float64) (string, error) {
	top := make([]int, 0, len(res.Quality.NearestMatches))
	for _, m := range res.Quality.NearestMatches {
		top = append(top, m.AnchorID)
	}
	vetoes := make([]string, 0, len(d.VetoSignals))
	for _, v := range d.VetoSignals {
		vetoes = append(vetoes, string(v.Type))
	}
	record, err := json.Marshal(logging.VerdictRecord{
		AlignmentLoss:      req.Map.AlignmentLoss,
		OrthogonalityScore: req.Map.OrthogonalityScore,
		Score:              res.Quality.CalibrationScore,
		Coverage:           res.Quality.Coverage,
		TopAnchorIDs:       top,
		ContrastLoss:       loss,
		EvalWarnings:       res.Eval.Failures,
		Thresholds:         s.thresholds(),
		VetoTypes:          vetoes,
	})
	if err != nil {
		return "", fmt.Errorf("encode verdict record: %w", err)
	}
	return logging.LogVerdict(s.config.VerdictDB, logging.VerdictEntry{
		CorpusVersion: s.config.CorpusVersion,
		SourceModel:   req.Map.SourceModel,
		TargetModel:   req.Map.TargetModel,
		Score:         res.Quality.CalibrationScore,
		Coverage:      res.Quality.Coverage,
		Band:          string(d.Band),
		Action:        string(d.Action),
		Tier:          string(d.Tier),
		SoftScore:     d.SoftScore,
		Reason:        d.Reason,
		RecordJSON:    string(record),
	})
}

func (s *Server) thresholds() logging.VerdictThresholds {
	cfg := s.gate.Config()
	return logging.VerdictThresholds{
		MinScore:           cfg.MinScore,
		PremiumScore:       cfg.PremiumScore,
		MaxAlignmentLoss:   cfg.MaxAlignmentLoss,
		MaxContrastiveLoss: cfg.MaxContrastiveLoss,
	}
}

// #endregion align

// #region queries
// Calibrate grades a single vector.
func (s *Server) Calibrate(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req CalibrateRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	report, err := s.engine.Calibrate(req.Vector)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(CalibrateResponse{Report: report, Band: report.Band()})
}

// FindNearest returns the closest anchors, DefaultTopK when top_k is unset.
func (s *Server) FindNearest(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req := FindNearestRequest{TopK: calibrate.DefaultTopK}
	if err := fromStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	matches, err := s.engine.FindNearest(req.Vector, req.TopK)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(FindNearestResponse{Matches: matches})
}

// Loss scores a vector against a positive and negative anchors.
func (s *Server) Loss(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req bridge.LossRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	loss, err := s.engine.Loss(req.Vector, req.PositiveID, req.NegativeIDs)
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(LossResponse{Loss: loss, Separation: string(contrastive.Interpret(loss))})
}

// #endregion queries

// #region helpers
func encode(v any) (*structpb.Struct, error) {
	st, err := toStruct(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return st, nil
}

// toStatus maps engine errors onto gRPC codes.
func toStatus(err error) error {
	switch {
	case errors.Is(err, latent.ErrDimensionMismatch), errors.Is(err, latent.ErrInvalidNumericValue),
		errors.Is(err, latent.ErrMalformedTensor):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, anchors.ErrAnchorNotFound):
		return status.Error(codes.NotFound, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// #endregion helpers
