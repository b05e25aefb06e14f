package transport

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/neural-bridge/internal/bridge"
	"github.com/danielpatrickdp/neural-bridge/internal/calibrate"
)

// #region client-struct
// Client wraps the gRPC connection to a bridge server.
type Client struct {
	conn   *grpc.ClientConn
	client BridgeClient
}

// #endregion client-struct

// #region constructor
// NewClient connects to a bridge server over plaintext gRPC.
func NewClient(addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &Client{
		conn:   conn,
		client: NewBridgeClient(conn),
	}, nil
}

// NewClientWithService creates a Client with an injected service implementation.
// Used for testing without a real gRPC connection.
func NewClientWithService(svc BridgeClient) *Client {
	return &Client{client: svc}
}

// #endregion constructor

// #region close
// Close shuts down the gRPC connection.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// #endregion close

// #region align
// Align submits a tensor and map for alignment and gating.
func (c *Client) Align(ctx context.Context, req AlignRequest) (AlignResponse, error) {
	var resp AlignResponse
	if err := c.call(ctx, c.client.Align, req, &resp); err != nil {
		return AlignResponse{}, fmt.Errorf("align rpc: %w", err)
	}
	return resp, nil
}

// #endregion align

// #region calibrate
// Calibrate grades a vector against the server's corpus.
func (c *Client) Calibrate(ctx context.Context, v []float32) (CalibrateResponse, error) {
	var resp CalibrateResponse
	if err := c.call(ctx, c.client.Calibrate, CalibrateRequest{Vector: v}, &resp); err != nil {
		return CalibrateResponse{}, fmt.Errorf("calibrate rpc: %w", err)
	}
	return resp, nil
}

// #endregion calibrate

// #region find-nearest
// FindNearest returns the topK closest anchors.
func (c *Client) FindNearest(ctx context.Context, v []float32, topK int) ([]calibrate.AnchorMatch, error) {
	var resp FindNearestResponse
	if err := c.call(ctx, c.client.FindNearest, FindNearestRequest{Vector: v, TopK: topK}, &resp); err != nil {
		return nil, fmt.Errorf("find nearest rpc: %w", err)
	}
	return resp.Matches, nil
}

// #endregion find-nearest

// #region loss
// Loss scores a vector contrastively.
func (c *Client) Loss(ctx context.Context, req bridge.LossRequest) (LossResponse, error) {
	var resp LossResponse
	if err := c.call(ctx, c.client.Loss, req, &resp); err != nil {
		return LossResponse{}, fmt.Errorf("loss rpc: %w", err)
	}
	return resp, nil
}

// #endregion loss

// #region helpers
type clientCall func(context.Context, *structpb.Struct, ...grpc.CallOption) (*structpb.Struct, error)

func (c *Client) call(ctx context.Context, rpc clientCall, req, resp any) error {
	in, err := toStruct(req)
	if err != nil {
		return err
	}
	out, err := rpc(ctx, in)
	if err != nil {
		return err
	}
	return fromStruct(out, resp)
}

// #endregion helpers
