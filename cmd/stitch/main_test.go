package main

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
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

func newApp(ctrl *gomock.Controller, loader ports.ConfigLoader, log ports.Logger) *app.App {
	return app.New(
		loader,
		log,
		mocks.NewMockDaemonConnector(ctrl),
		mocks.NewMockElector(ctrl),
		fs.NewOracle(),
		fs.NewReader(),
		fs.NewWriter(),
		telemetry.NewNoOpTracer(),
		metrics.NewRecorder(nil),
		watcher.Factory(func(time.Duration) (ports.Watcher, error) {
			return nil, errors.New("no watcher in tests")
		}),
	)
}

// TestRun_Success verifies that the run function returns 0 when the command succeeds.
func TestRun_Success(t *testing.T) {
	ctrl := gomock.NewController(t)

	mockLogger := mocks.NewMockLogger(ctrl)
	application := newApp(ctrl, mocks.NewMockConfigLoader(ctrl), mockLogger)

	provider := func(_ context.Context) (*app.Components, func(), error) {
		return &app.Components{App: application, Logger: mockLogger}, func() {}, nil
	}

	stderr := new(bytes.Buffer)
	exitCode := run(context.Background(), []string{"version"}, stderr, provider)
	assert.Equal(t, 0, exitCode)
}

// TestRun_InitializationError verifies that run returns 1 when component initialization fails.
func TestRun_InitializationError(t *testing.T) {
	provider := func(_ context.Context) (*app.Components, func(), error) {
		return nil, nil, errors.New("init failed")
	}

	stderr := new(bytes.Buffer)
	exitCode := run(context.Background(), []string{"version"}, stderr, provider)

	assert.Equal(t, 1, exitCode)
	assert.Contains(t, stderr.String(), "Error: init failed")
}

// TestRun_ExecutionError verifies that run returns 1 and logs when the command execution fails.
func TestRun_ExecutionError(t *testing.T) {
	ctrl := gomock.NewController(t)

	mockLoader := mocks.NewMockConfigLoader(ctrl)
	mockLoader.EXPECT().Load(gomock.Any()).Return(nil, errors.New("load failed"))

	mockLogger := mocks.NewMockLogger(ctrl)
	mockLogger.EXPECT().Error(gomock.Any()).Times(1)

	application := newApp(ctrl, mockLoader, mockLogger)
	provider := func(_ context.Context) (*app.Components, func(), error) {
		return &app.Components{App: application, Logger: mockLogger}, func() {}, nil
	}

	stderr := new(bytes.Buffer)
	exitCode := run(context.Background(), []string{"cache", "list"}, stderr, provider, func(a *app.App) {
		a.WithWorkDir(t.TempDir())
	})

	assert.Equal(t, 1, exitCode)
}

// TestExitCode_BuildsFailed verifies that failed builds exit non-zero without a second log line.
func TestExitCode_BuildsFailed(t *testing.T) {
	ctrl := gomock.NewController(t)

	// Logger.Error has no expectation: a call would fail the test.
	mockLogger := mocks.NewMockLogger(ctrl)

	assert.Equal(t, 1, exitCode(domain.ErrBuildsFailed, mockLogger))
	assert.Equal(t, 0, exitCode(nil, mockLogger))
}
