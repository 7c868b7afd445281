package daemon

import (
	"context"

	"go.trai.ch/stitch/internal/core/domain"
	"go.trai.ch/stitch/internal/core/ports"
	"go.trai.ch/zerr"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

var _ ports.DaemonClient = (*Client)(nil)

// Client implements ports.DaemonClient.
type Client struct {
	conn *grpc.ClientConn
}

// Dial creates a client for the primary serving stateDir.
// grpc.NewClient returns immediately; the connection is made on the first RPC.
func Dial(stateDir string) (*Client, error) {
	conn, err := grpc.NewClient(target(stateDir),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, zerr.Wrap(err, "daemon client creation failed")
	}
	return NewClient(conn), nil
}

// NewClient wraps an existing connection.
func NewClient(conn *grpc.ClientConn) *Client {
	return &Client{conn: conn}
}

// Ping implements ports.DaemonClient.
func (c *Client) Ping(ctx context.Context) error {
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, methodPing, &emptypb.Empty{}, out); err != nil {
		return remoteError(err)
	}
	return nil
}

// Status implements ports.DaemonClient.
func (c *Client) Status(ctx context.Context) (*ports.DaemonStatus, error) {
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, methodStatus, &emptypb.Empty{}, out); err != nil {
		return nil, remoteError(err)
	}
	return DecodeStatus(out), nil
}

// Build implements ports.DaemonClient. Build failures come back as the same
// error types a local build returns.
func (c *Client) Build(ctx context.Context, req domain.ConcatRequest) error {
	in, err := EncodeRequest(req)
	if err != nil {
		return err
	}

	var trailer metadata.MD
	err = c.conn.Invoke(ctx, methodBuild, in, new(emptypb.Empty), grpc.Trailer(&trailer))
	if err == nil {
		return nil
	}

	var buildID string
	if ids := trailer.Get(buildIDKey); len(ids) > 0 {
		buildID = ids[0]
	}

	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.Internal:
		return &domain.BuildError{BuildID: buildID, Destination: req.Destination, Err: zerr.New(st.Message())}
	case codes.DataLoss:
		return &domain.PersistenceError{Err: zerr.New(st.Message())}
	default:
		return remoteError(err)
	}
}

// Shutdown implements ports.DaemonClient.
func (c *Client) Shutdown(ctx context.Context) error {
	if err := c.conn.Invoke(ctx, methodShutdown, &emptypb.Empty{}, new(emptypb.Empty)); err != nil {
		return remoteError(err)
	}
	return nil
}

// Close implements ports.DaemonClient.
func (c *Client) Close() error {
	return c.conn.Close()
}

func remoteError(err error) error {
	if status.Code(err) == codes.Unavailable {
		return zerr.Wrap(err, domain.ErrPrimaryUnavailable.Error())
	}
	return zerr.Wrap(err, "daemon request failed")
}
