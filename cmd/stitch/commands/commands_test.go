package commands_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/stitch/cmd/stitch/commands"
	"go.trai.ch/stitch/internal/app"
	"go.trai.ch/stitch/internal/build"
)

type mockApp struct {
	concatFunc func(ctx context.Context, opts app.ConcatOptions) error
	cleanFunc  func(ctx context.Context, opts app.CleanOptions) error
	calls      []string
}

func (m *mockApp) Concat(ctx context.Context, opts app.ConcatOptions) error {
	m.calls = append(m.calls, "concat")
	if m.concatFunc != nil {
		return m.concatFunc(ctx, opts)
	}
	return nil
}

func (m *mockApp) ServeDaemon(context.Context) error {
	m.calls = append(m.calls, "serve")
	return nil
}

func (m *mockApp) StartDaemon(context.Context) error {
	m.calls = append(m.calls, "start")
	return nil
}

func (m *mockApp) DaemonStatus(context.Context) error {
	m.calls = append(m.calls, "status")
	return nil
}

func (m *mockApp) StopDaemon(context.Context) error {
	m.calls = append(m.calls, "stop")
	return nil
}

func (m *mockApp) ListCache(context.Context) error {
	m.calls = append(m.calls, "cache list")
	return nil
}

func (m *mockApp) Clean(ctx context.Context, opts app.CleanOptions) error {
	m.calls = append(m.calls, "clean")
	if m.cleanFunc != nil {
		return m.cleanFunc(ctx, opts)
	}
	return nil
}

func TestCommands_Concat(t *testing.T) {
	t.Run("wires flags correctly", func(t *testing.T) {
		var captured app.ConcatOptions
		mock := &mockApp{
			concatFunc: func(_ context.Context, opts app.ConcatOptions) error {
				captured = opts
				return nil
			},
		}

		cli := commands.New(mock)
		cli.SetArgs([]string{
			"concat", "a.js", "b.js",
			"--dest", "assets/", "--sourcemap",
			"--share", "site", "--layout", "page", "--doc", "page.html",
		})

		err := cli.Execute(context.Background())
		require.NoError(t, err)
		assert.Equal(t, app.ConcatOptions{
			Sources:     []string{"a.js", "b.js"},
			Destination: "assets/",
			Sourcemap:   true,
			Share:       "site",
			Layout:      "page",
			Document:    "page.html",
		}, captured)
	})

	t.Run("passes empty sources through for validation", func(t *testing.T) {
		var captured app.ConcatOptions
		mock := &mockApp{
			concatFunc: func(_ context.Context, opts app.ConcatOptions) error {
				captured = opts
				return nil
			},
		}

		cli := commands.New(mock)
		cli.SetArgs([]string{"concat", "-d", "all.js"})

		require.NoError(t, cli.Execute(context.Background()))
		assert.Empty(t, captured.Sources)
		assert.Equal(t, "all.js", captured.Destination)
		assert.False(t, captured.Sourcemap)
	})

	t.Run("returns error on concat failure", func(t *testing.T) {
		mock := &mockApp{
			concatFunc: func(context.Context, app.ConcatOptions) error {
				return errors.New("simulated error")
			},
		}

		cli := commands.New(mock)
		cli.SetArgs([]string{"concat", "a.js", "--dest", "all.js"})
		cli.SetOutput(new(bytes.Buffer), new(bytes.Buffer))

		err := cli.Execute(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "simulated error")
	})
}

func TestCommands_Daemon(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{args: []string{"daemon", "serve"}, want: "serve"},
		{args: []string{"daemon", "start"}, want: "start"},
		{args: []string{"daemon", "status"}, want: "status"},
		{args: []string{"daemon", "stop"}, want: "stop"},
		{args: []string{"cache", "list"}, want: "cache list"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			mock := &mockApp{}
			cli := commands.New(mock)
			cli.SetArgs(tt.args)

			require.NoError(t, cli.Execute(context.Background()))
			assert.Equal(t, []string{tt.want}, mock.calls)
		})
	}
}

func TestCommands_DaemonRejectsArgs(t *testing.T) {
	mock := &mockApp{}
	cli := commands.New(mock)
	cli.SetArgs([]string{"daemon", "status", "extra"})
	cli.SetOutput(new(bytes.Buffer), new(bytes.Buffer))

	require.Error(t, cli.Execute(context.Background()))
	assert.Empty(t, mock.calls)
}

func TestCommands_Clean(t *testing.T) {
	t.Run("defaults to the record only", func(t *testing.T) {
		var captured app.CleanOptions
		mock := &mockApp{
			cleanFunc: func(_ context.Context, opts app.CleanOptions) error {
				captured = opts
				return nil
			},
		}

		cli := commands.New(mock)
		cli.SetArgs([]string{"clean"})

		require.NoError(t, cli.Execute(context.Background()))
		assert.False(t, captured.Artifacts)
	})

	t.Run("artifacts flag", func(t *testing.T) {
		var captured app.CleanOptions
		mock := &mockApp{
			cleanFunc: func(_ context.Context, opts app.CleanOptions) error {
				captured = opts
				return nil
			},
		}

		cli := commands.New(mock)
		cli.SetArgs([]string{"clean", "--artifacts"})

		require.NoError(t, cli.Execute(context.Background()))
		assert.True(t, captured.Artifacts)
	})
}

func TestCommands_Version(t *testing.T) {
	cli := commands.New(&mockApp{})
	buf := new(bytes.Buffer)
	cli.SetOutput(buf, buf)
	cli.SetArgs([]string{"version"})

	require.NoError(t, cli.Execute(context.Background()))
	assert.Contains(t, buf.String(), "stitch version "+build.Version)
	assert.Contains(t, buf.String(), "commit: "+build.Commit)
}

func TestCommands_VersionFlag(t *testing.T) {
	cli := commands.New(&mockApp{})
	buf := new(bytes.Buffer)
	cli.SetOutput(buf, buf)
	cli.SetArgs([]string{"--version"})

	require.NoError(t, cli.Execute(context.Background()))
	assert.Contains(t, buf.String(), "stitch version "+build.Version)
}
