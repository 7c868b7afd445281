package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"

	"go.trai.ch/stitch/internal/core/domain"
	"go.trai.ch/stitch/internal/core/ports"
	"go.trai.ch/zerr"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// buildIDKey is the trailer carrying the id of the build attempt.
const buildIDKey = "stitch-build-id"

var _ DaemonServiceServer = (*Server)(nil)

// Server implements the gRPC daemon service on top of the primary's builder.
type Server struct {
	builder    ports.Builder
	cache      ports.BuildCache
	lifecycle  *Lifecycle
	logger     ports.Logger
	grpcServer *grpc.Server
}

// NewServer creates a new daemon server.
func NewServer(builder ports.Builder, cache ports.BuildCache, lifecycle *Lifecycle, logger ports.Logger) *Server {
	s := &Server{
		builder:    builder,
		cache:      cache,
		lifecycle:  lifecycle,
		logger:     logger,
		grpcServer: grpc.NewServer(),
	}
	RegisterDaemonServiceServer(s.grpcServer, s)
	return s
}

// Listen creates the primary's Unix socket for stateDir, replacing a stale one.
func Listen(stateDir string) (net.Listener, error) {
	socketPath := SocketPath(stateDir)

	if err := os.Remove(socketPath); err != nil && !os.IsNotExist(err) {
		return nil, zerr.Wrap(err, "failed to remove stale socket")
	}

	lis, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to listen on UDS"), "socket", socketPath)
	}

	if err := os.Chmod(socketPath, domain.SocketPerm); err != nil {
		_ = lis.Close()
		return nil, zerr.Wrap(err, "failed to set socket permissions")
	}
	return lis, nil
}

// Serve serves on lis until ctx is done, shutdown is requested or the
// listener fails. In-flight requests are allowed to finish.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.grpcServer.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		s.grpcServer.GracefulStop()
		return ctx.Err()
	case <-s.lifecycle.ShutdownChan():
		s.grpcServer.GracefulStop()
		return nil
	case err := <-errCh:
		return err
	}
}

// Build implements DaemonService.Build. It returns once the attempt has
// completed or failed; a failure travels back as a status error.
func (s *Server) Build(ctx context.Context, in *structpb.Struct) (*emptypb.Empty, error) {
	s.lifecycle.ResetTimer()

	req, err := DecodeRequest(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	res, err := s.builder.Build(ctx, req, false)
	if res.ID != "" {
		_ = grpc.SetTrailer(ctx, metadata.Pairs(buildIDKey, res.ID))
	}
	if err != nil {
		return nil, buildStatus(err)
	}
	return &emptypb.Empty{}, nil
}

// Ping implements DaemonService.Ping.
func (s *Server) Ping(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	s.lifecycle.ResetTimer()
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		fieldIdleRemaining: structpb.NewNumberValue(s.lifecycle.IdleRemaining().Seconds()),
	}}, nil
}

// Status implements DaemonService.Status.
func (s *Server) Status(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	s.lifecycle.ResetTimer()
	return EncodeStatus(&ports.DaemonStatus{
		Running:       true,
		PID:           os.Getpid(),
		Uptime:        s.lifecycle.Uptime(),
		LastActivity:  s.lifecycle.LastActivity(),
		IdleRemaining: s.lifecycle.IdleRemaining(),
		CacheEntries:  len(s.cache.Entries()),
	}), nil
}

// Shutdown implements DaemonService.Shutdown.
func (s *Server) Shutdown(_ context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	if s.logger != nil {
		s.logger.Info("shutdown requested")
	}
	s.lifecycle.Shutdown()
	return &emptypb.Empty{}, nil
}

// buildStatus maps a build failure to a status the client can map back.
func buildStatus(err error) error {
	var buildErr *domain.BuildError
	if errors.As(err, &buildErr) {
		return status.Error(codes.Internal, err.Error())
	}
	var persistErr *domain.PersistenceError
	if errors.As(err, &persistErr) {
		return status.Error(codes.DataLoss, err.Error())
	}
	return status.Error(codes.Unknown, err.Error())
}

// WritePIDFile records the current process as the primary for stateDir.
func WritePIDFile(stateDir string) error {
	if err := os.MkdirAll(stateDir, domain.DirPerm); err != nil {
		return zerr.Wrap(err, domain.ErrRecordCreateFailed.Error())
	}
	return os.WriteFile(domain.PIDPath(stateDir), []byte(strconv.Itoa(os.Getpid())), domain.PrivateFilePerm)
}

// ReadPIDFile returns the pid recorded for stateDir.
func ReadPIDFile(stateDir string) (int, error) {
	data, err := os.ReadFile(domain.PIDPath(stateDir))
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(string(data))
	if err != nil {
		return 0, zerr.Wrap(err, fmt.Sprintf("invalid pid file %s", domain.PIDPath(stateDir)))
	}
	return pid, nil
}

// Cleanup removes the socket and pid file of stateDir.
func Cleanup(stateDir string) {
	_ = os.Remove(SocketPath(stateDir))
	_ = os.Remove(domain.PIDPath(stateDir))
}
