package daemon_test

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/stitch/internal/adapters/daemon"
	"go.trai.ch/stitch/internal/core/domain"
	"go.trai.ch/stitch/internal/core/ports"
	"go.trai.ch/stitch/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"
)

type fixture struct {
	builder   *mocks.MockBuilder
	lifecycle *daemon.Lifecycle
	client    *daemon.Client
	served    chan error
}

type staticCache struct {
	entries []domain.CacheEntry
}

func (c staticCache) Put(domain.CacheEntry) error { return nil }
func (c staticCache) Get(string) (domain.CacheEntry, bool) { return domain.CacheEntry{}, false }
func (c staticCache) Match(string) []domain.CacheEntry { return nil }
func (c staticCache) Entries() []domain.CacheEntry { return c.entries }
func (c staticCache) RemoveSource(string, string) (domain.CacheEntry, error) {
	return domain.CacheEntry{}, nil
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	ctrl := gomock.NewController(t)
	builder := mocks.NewMockBuilder(ctrl)
	logger := mocks.NewMockLogger(ctrl)
	logger.EXPECT().Info(gomock.Any()).AnyTimes()

	cache := staticCache{entries: []domain.CacheEntry{{Destination: "/out/a.js"}, {Destination: "/out/b.js"}}}
	lc := daemon.NewLifecycle(time.Hour)
	srv := daemon.NewServer(builder, cache, lc, logger)

	lis := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() { served <- srv.Serve(ctx, lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	client := daemon.NewClient(conn)
	t.Cleanup(func() {
		_ = client.Close()
		cancel()
	})

	return &fixture{builder: builder, lifecycle: lc, client: client, served: served}
}

func TestServer_Build(t *testing.T) {
	f := newFixture(t)
	req := domain.ConcatRequest{
		Sources:     []string{"/out/b.js", "/out/a.js"},
		Destination: "/out/all.js",
		Sourcemap:   true,
	}

	f.builder.EXPECT().Build(gomock.Any(), req, false).
		Return(ports.BuildResult{ID: "b-1", Outcome: ports.OutcomeBuilt}, nil)

	require.NoError(t, f.client.Build(context.Background(), req))
}

func TestServer_BuildFailureKeepsType(t *testing.T) {
	f := newFixture(t)
	req := domain.ConcatRequest{Sources: []string{"/out/missing.js"}, Destination: "/out/all.js"}

	f.builder.EXPECT().Build(gomock.Any(), req, false).Return(
		ports.BuildResult{ID: "b-2", Outcome: ports.OutcomeFailed},
		&domain.BuildError{BuildID: "b-2", Destination: req.Destination, Err: errors.New("no such file")},
	)

	err := f.client.Build(context.Background(), req)
	require.Error(t, err)

	var buildErr *domain.BuildError
	require.ErrorAs(t, err, &buildErr)
	assert.Equal(t, "b-2", buildErr.BuildID)
	assert.Equal(t, "/out/all.js", buildErr.Destination)
	assert.Contains(t, buildErr.Error(), "no such file")
}

func TestServer_PersistenceFailureKeepsType(t *testing.T) {
	f := newFixture(t)
	req := domain.ConcatRequest{Sources: []string{"/out/a.js"}, Destination: "/out/all.js"}

	f.builder.EXPECT().Build(gomock.Any(), req, false).Return(
		ports.BuildResult{ID: "b-3", Outcome: ports.OutcomeBuilt},
		&domain.PersistenceError{Path: "/state/concat-cache.json", Err: errors.New("read-only file system")},
	)

	err := f.client.Build(context.Background(), req)

	var persistErr *domain.PersistenceError
	require.ErrorAs(t, err, &persistErr)
	assert.Contains(t, persistErr.Error(), "read-only file system")
}

func TestServer_StatusAndPing(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.client.Ping(context.Background()))

	st, err := f.client.Status(context.Background())
	require.NoError(t, err)
	assert.True(t, st.Running)
	assert.Positive(t, st.PID)
	assert.Equal(t, 2, st.CacheEntries)
	assert.Greater(t, st.IdleRemaining, 59*time.Minute)
}

func TestServer_Shutdown(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.client.Shutdown(context.Background()))

	select {
	case <-f.lifecycle.ShutdownChan():
	case <-time.After(5 * time.Second):
		t.Fatal("shutdown was not triggered")
	}
	select {
	case err := <-f.served:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestClient_Unavailable(t *testing.T) {
	client, err := daemon.Dial(t.TempDir())
	require.NoError(t, err)
	defer func() { _ = client.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err = client.Ping(ctx)
	require.Error(t, err)
}
