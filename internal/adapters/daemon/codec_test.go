package daemon_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/stitch/internal/adapters/daemon"
	"go.trai.ch/stitch/internal/core/domain"
	"go.trai.ch/stitch/internal/core/ports"
	"google.golang.org/protobuf/types/known/structpb"
)

func TestRequestCodec_PreservesOrder(t *testing.T) {
	req := domain.ConcatRequest{
		Sources:     []string{"/out/c.js", "/out/a.js", "/out/b.js"},
		Destination: "/out/all.js",
		Sourcemap:   true,
	}

	msg, err := daemon.EncodeRequest(req)
	require.NoError(t, err)

	got, err := daemon.DecodeRequest(msg)
	require.NoError(t, err)
	assert.Equal(t, req, got)
}

func TestDecodeRequest_Malformed(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]any
	}{
		{name: "missing sources", fields: map[string]any{"destination": "/out/all.js"}},
		{name: "non-string source", fields: map[string]any{"sources": []any{1.0}, "destination": "/out/all.js"}},
		{name: "missing destination", fields: map[string]any{"sources": []any{"/out/a.js"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := structpb.NewStruct(tt.fields)
			require.NoError(t, err)

			_, err = daemon.DecodeRequest(msg)
			require.Error(t, err)
		})
	}
}

func TestStatusCodec(t *testing.T) {
	last := time.Unix(1700000000, 0)
	st := &ports.DaemonStatus{
		Running:       true,
		PID:           4242,
		Uptime:        90 * time.Second,
		LastActivity:  last,
		IdleRemaining: 3 * time.Hour,
		CacheEntries:  7,
	}

	got := daemon.DecodeStatus(daemon.EncodeStatus(st))
	assert.Equal(t, st, got)
}

func TestSocketPath(t *testing.T) {
	a := daemon.SocketPath("/project/.stitch")
	assert.Equal(t, a, daemon.SocketPath("/project/.stitch/"))
	assert.NotEqual(t, a, daemon.SocketPath("/other/.stitch"))
	assert.Regexp(t, `stitch-[0-9a-f]{16}\.sock$`, a)
}
