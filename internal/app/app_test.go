package app_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/stitch/internal/adapters/daemon"
	"go.trai.ch/stitch/internal/adapters/fs"
	"go.trai.ch/stitch/internal/adapters/metrics"
	"go.trai.ch/stitch/internal/adapters/telemetry"
	"go.trai.ch/stitch/internal/adapters/watcher"
	"go.trai.ch/stitch/internal/app"
	"go.trai.ch/stitch/internal/core/domain"
	"go.trai.ch/stitch/internal/core/ports"
	"go.trai.ch/stitch/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

type harness struct {
	root      string
	cfg       *domain.Config
	app       *app.App
	out       *bytes.Buffer
	connector *mocks.MockDaemonConnector
	elector   *mocks.MockElector
	logger    *mocks.MockLogger
}

func newHarness(t *testing.T, elector ports.Elector) *harness {
	t.Helper()

	ctrl := gomock.NewController(t)
	root := t.TempDir()
	cfg := testConfig(root)

	loader := mocks.NewMockConfigLoader(ctrl)
	loader.EXPECT().Load(gomock.Any()).Return(cfg, nil).AnyTimes()

	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Info(gomock.Any()).AnyTimes()
	log.EXPECT().Warn(gomock.Any()).AnyTimes()

	connector := mocks.NewMockDaemonConnector(ctrl)
	mockElector := mocks.NewMockElector(ctrl)
	if elector == nil {
		elector = mockElector
	}

	factory := watcher.Factory(func(window time.Duration) (ports.Watcher, error) {
		return watcher.NewWatcher(window, log)
	})

	out := new(bytes.Buffer)
	a := app.New(
		loader,
		log,
		connector,
		elector,
		fs.NewOracle(),
		fs.NewReader(),
		fs.NewWriter(),
		telemetry.NewNoOpTracer(),
		metrics.NewRecorder(nil),
		factory,
	).WithOutput(out).WithWorkDir(root)

	return &harness{
		root:      root,
		cfg:       cfg,
		app:       a,
		out:       out,
		connector: connector,
		elector:   mockElector,
		logger:    log,
	}
}

func (h *harness) write(t *testing.T, rel, content string) string {
	t.Helper()
	path := filepath.Join(h.root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), domain.DirPerm))
	require.NoError(t, os.WriteFile(path, []byte(content), domain.FilePerm))
	return path
}

func (h *harness) read(t *testing.T, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(h.root, rel))
	require.NoError(t, err)
	return string(data)
}

var errNotRunning = errors.New("stitch primary is not reachable")

func TestApp_Concat_AsPrimary(t *testing.T) {
	h := newHarness(t, nil)
	h.write(t, "js/a.js", "var a = 1;")
	h.write(t, "js/b.js", "var b = 2;")

	ctrl := gomock.NewController(t)
	lease := mocks.NewMockLease(ctrl)

	h.connector.EXPECT().Dial(gomock.Any(), h.cfg.StateDir).Return(nil, errNotRunning)
	h.elector.EXPECT().Acquire(h.cfg.StateDir).Return(lease, nil)
	lease.EXPECT().Release().Return(nil)

	err := h.app.Concat(context.Background(), app.ConcatOptions{
		Sources:     []string{"js/a.js", "js/b.js"},
		Destination: "js/all.js",
		Sourcemap:   true,
	})
	require.NoError(t, err)

	assert.Equal(t, "/js/all.js\n", h.out.String())
	assert.Equal(t, "var a = 1;\nvar b = 2;\n//# sourceMappingURL=all.js.map", h.read(t, "js/all.js"))
	assert.FileExists(t, filepath.Join(h.root, "js/all.js.map"))
	assert.FileExists(t, h.cfg.RecordPath())
}

func TestApp_Concat_AsSecondary(t *testing.T) {
	h := newHarness(t, nil)

	ctrl := gomock.NewController(t)
	client := mocks.NewMockDaemonClient(ctrl)

	h.connector.EXPECT().Dial(gomock.Any(), h.cfg.StateDir).Return(client, nil)
	client.EXPECT().Build(gomock.Any(), domain.ConcatRequest{
		Sources:     []string{filepath.Join(h.root, "docs", "a.js")},
		Destination: filepath.Join(h.root, "assets", "page.all.js"),
	}).Return(nil)
	client.EXPECT().Close().Return(nil)

	err := h.app.Concat(context.Background(), app.ConcatOptions{
		Sources:     []string{"a.js"},
		Destination: "assets",
		Share:       "docs",
		Layout:      "layouts/page.html",
	})
	require.NoError(t, err)
	assert.Equal(t, "/assets/page.all.js\n", h.out.String())
	assert.NoFileExists(t, h.cfg.RecordPath())
}

func TestApp_Concat_BuildFailure(t *testing.T) {
	h := newHarness(t, nil)

	ctrl := gomock.NewController(t)
	lease := mocks.NewMockLease(ctrl)

	h.connector.EXPECT().Dial(gomock.Any(), gomock.Any()).Return(nil, errNotRunning)
	h.elector.EXPECT().Acquire(gomock.Any()).Return(lease, nil)
	lease.EXPECT().Release().Return(nil)
	h.logger.EXPECT().Error(gomock.Any()).Times(1)

	err := h.app.Concat(context.Background(), app.ConcatOptions{
		Sources:     []string{"missing.js"},
		Destination: "all.js",
	})
	require.Error(t, err)
	assert.ErrorContains(t, err, domain.ErrBuildsFailed.Error())
	assert.Equal(t, "/all.js\n", h.out.String(), "the URL is printed even when the build fails")
}

func TestApp_Concat_ConfigError(t *testing.T) {
	h := newHarness(t, nil)

	// No Dial or Acquire expectations: validation runs before either.
	err := h.app.Concat(context.Background(), app.ConcatOptions{Destination: "all.js"})

	var cfgErr *domain.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Empty(t, h.out.String())
	assert.NoDirExists(t, h.cfg.StateDir)
}

func TestApp_Concat_PrimaryUnavailable(t *testing.T) {
	h := newHarness(t, nil)

	h.connector.EXPECT().Dial(gomock.Any(), gomock.Any()).Return(nil, errNotRunning)
	h.elector.EXPECT().Acquire(gomock.Any()).Return(nil, domain.ErrPrimaryRunning)

	err := h.app.Concat(context.Background(), app.ConcatOptions{Sources: []string{"a.js"}, Destination: "all.js"})
	require.Error(t, err)
	assert.ErrorContains(t, err, domain.ErrPrimaryUnavailable.Error())
}

func TestApp_ListCache(t *testing.T) {
	h := newHarness(t, nil)
	dest := h.write(t, "js/all.js", "var a = 1;")
	record := `{
  "` + dest + `": {"sources": ["/x/a.js", "/x/b.js"], "sourcemap": true, "destination": "` + dest + `"}
}`
	require.NoError(t, os.MkdirAll(h.cfg.StateDir, domain.DirPerm))
	require.NoError(t, os.WriteFile(h.cfg.RecordPath(), []byte(record), domain.FilePerm))

	require.NoError(t, h.app.ListCache(context.Background()))

	out := h.out.String()
	assert.Contains(t, out, "js/all.js")
	assert.Contains(t, out, "10 B")
	assert.Contains(t, out, "yes")
	assert.Regexp(t, `│\s+2 │`, out)
}

func TestApp_ListCache_Empty(t *testing.T) {
	h := newHarness(t, nil)

	require.NoError(t, h.app.ListCache(context.Background()))
	assert.Equal(t, "build cache is empty\n", h.out.String())
}

func TestApp_Clean(t *testing.T) {
	h := newHarness(t, nil)
	dest := h.write(t, "all.js", "x")
	h.write(t, "all.js.map", "{}")
	record := `{"` + dest + `": {"sources": [], "sourcemap": true, "destination": "` + dest + `"}}`
	require.NoError(t, os.MkdirAll(h.cfg.StateDir, domain.DirPerm))
	require.NoError(t, os.WriteFile(h.cfg.RecordPath(), []byte(record), domain.FilePerm))

	h.connector.EXPECT().IsRunning(gomock.Any(), h.cfg.StateDir).Return(false)

	require.NoError(t, h.app.Clean(context.Background(), app.CleanOptions{Artifacts: true}))

	assert.NoFileExists(t, dest)
	assert.NoFileExists(t, dest+".map")
	assert.NoFileExists(t, h.cfg.RecordPath())
}

func TestApp_Clean_RefusesWhilePrimaryRuns(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, os.MkdirAll(h.cfg.StateDir, domain.DirPerm))
	require.NoError(t, os.WriteFile(h.cfg.RecordPath(), []byte("{}"), domain.FilePerm))

	h.connector.EXPECT().IsRunning(gomock.Any(), h.cfg.StateDir).Return(true)

	err := h.app.Clean(context.Background(), app.CleanOptions{})
	require.Error(t, err)
	assert.ErrorContains(t, err, domain.ErrPrimaryRunning.Error())
	assert.FileExists(t, h.cfg.RecordPath())
}

func TestApp_DaemonStatus(t *testing.T) {
	h := newHarness(t, nil)

	ctrl := gomock.NewController(t)
	client := mocks.NewMockDaemonClient(ctrl)

	h.connector.EXPECT().Dial(gomock.Any(), h.cfg.StateDir).Return(client, nil)
	client.EXPECT().Status(gomock.Any()).Return(&ports.DaemonStatus{
		Running:      true,
		PID:          4242,
		Uptime:       90 * time.Second,
		LastActivity: time.Now(),
		CacheEntries: 1234,
	}, nil)
	client.EXPECT().Close().Return(nil)

	require.NoError(t, h.app.DaemonStatus(context.Background()))

	out := h.out.String()
	assert.Contains(t, out, "4242")
	assert.Contains(t, out, "1m30s")
	assert.Contains(t, out, "1,234")
	assert.Contains(t, out, "disabled")
}

func TestApp_DaemonStatus_NotRunning(t *testing.T) {
	h := newHarness(t, nil)

	h.connector.EXPECT().Dial(gomock.Any(), gomock.Any()).Return(nil, errNotRunning)

	require.NoError(t, h.app.DaemonStatus(context.Background()))
	assert.Equal(t, "daemon is not running\n", h.out.String())
}

func TestApp_StartDaemon(t *testing.T) {
	t.Run("spawns when not running", func(t *testing.T) {
		h := newHarness(t, nil)
		h.connector.EXPECT().IsRunning(gomock.Any(), h.cfg.StateDir).Return(false)
		h.connector.EXPECT().Spawn(gomock.Any(), h.root, h.cfg.StateDir).Return(nil)

		require.NoError(t, h.app.StartDaemon(context.Background()))
	})

	t.Run("no-op when running", func(t *testing.T) {
		h := newHarness(t, nil)
		h.connector.EXPECT().IsRunning(gomock.Any(), h.cfg.StateDir).Return(true)

		require.NoError(t, h.app.StartDaemon(context.Background()))
	})
}

func TestApp_StopDaemon(t *testing.T) {
	h := newHarness(t, nil)

	ctrl := gomock.NewController(t)
	client := mocks.NewMockDaemonClient(ctrl)

	h.connector.EXPECT().Dial(gomock.Any(), h.cfg.StateDir).Return(client, nil)
	client.EXPECT().Shutdown(gomock.Any()).Return(nil)
	client.EXPECT().Close().Return(nil)

	require.NoError(t, h.app.StopDaemon(context.Background()))
}

func TestApp_ServeDaemon(t *testing.T) {
	h := newHarness(t, daemon.FlockElector{})
	h.cfg.Watch = true
	h.cfg.Debounce = 10 * time.Millisecond
	h.logger.EXPECT().Error(gomock.Any()).AnyTimes()

	src := h.write(t, "src/a.js", "var a = 1;")

	served := make(chan error, 1)
	go func() { served <- h.app.ServeDaemon(context.Background()) }()

	var client *daemon.Client
	require.Eventually(t, func() bool {
		c, err := daemon.Dial(h.cfg.StateDir)
		if err != nil {
			return false
		}
		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()
		if c.Ping(ctx) != nil {
			_ = c.Close()
			return false
		}
		client = c
		return true
	}, 5*time.Second, 20*time.Millisecond)
	defer func() { _ = client.Close() }()

	_, err := daemon.FlockElector{}.Acquire(h.cfg.StateDir)
	require.Error(t, err, "the serving process holds the primary role")

	dest := filepath.Join(h.root, "all.js")
	require.NoError(t, client.Build(context.Background(), domain.ConcatRequest{
		Sources:     []string{src},
		Destination: dest,
	}))
	assert.Equal(t, "var a = 1;\n//# sourceMappingURL=all.js.map", h.read(t, "all.js"))

	// A change on disk rebuilds the destination without another request.
	require.NoError(t, os.WriteFile(src, []byte("var a = 2;"), domain.FilePerm))
	future := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(src, future, future))

	require.Eventually(t, func() bool {
		data, err := os.ReadFile(dest)
		return err == nil && string(data) == "var a = 2;\n//# sourceMappingURL=all.js.map"
	}, 5*time.Second, 20*time.Millisecond)

	st, err := client.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, st.CacheEntries)

	require.NoError(t, client.Shutdown(context.Background()))
	select {
	case err := <-served:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("primary did not stop")
	}
	assert.NoFileExists(t, domain.PIDPath(h.cfg.StateDir))
}
