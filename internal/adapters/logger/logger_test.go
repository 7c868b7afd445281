package logger_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/stitch/internal/adapters/logger"
	"go.trai.ch/zerr"
)

// newTestLogger creates a logger writing to a buffer with colors disabled.
func newTestLogger(t *testing.T) (*logger.Logger, *bytes.Buffer) {
	t.Helper()
	t.Setenv("NO_COLOR", "1")

	buf := &bytes.Buffer{}
	lg := logger.New()
	lg.SetOutput(buf)
	return lg, buf
}

// chainErr mimics a zerr error: its own message plus a cause.
type chainErr struct {
	msg   string
	cause error
}

func (e *chainErr) Error() string   { return e.msg + ": " + e.cause.Error() }
func (e *chainErr) Message() string { return e.msg }
func (e *chainErr) Unwrap() error   { return e.cause }

func TestLogger_Golden(t *testing.T) {
	tests := []struct {
		name       string
		log        func(*logger.Logger)
		goldenName string
	}{
		{
			name:       "info",
			log:        func(l *logger.Logger) { l.Info("some message") },
			goldenName: "info_basic",
		},
		{
			name:       "info multiline",
			log:        func(l *logger.Logger) { l.Info("line1\nline2") },
			goldenName: "info_multiline",
		},
		{
			name:       "warn",
			log:        func(l *logger.Logger) { l.Warn("cache update for /out/all.js not persisted") },
			goldenName: "warn_basic",
		},
		{
			name: "error chain",
			log: func(l *logger.Logger) {
				l.Error(&chainErr{
					msg: "failed to write artifact",
					cause: &chainErr{
						msg:   "permission denied",
						cause: errors.New("open /out/all.js: read-only file system"),
					},
				})
			},
			goldenName: "error_chain",
		},
		{
			name:       "error multiline",
			log:        func(l *logger.Logger) { l.Error(errors.New("invalid config\nline 2")) },
			goldenName: "error_multiline",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lg, buf := newTestLogger(t)
			tt.log(lg)

			g := goldie.New(t)
			g.Assert(t, tt.goldenName, buf.Bytes())
		})
	}
}

func TestLogger_ErrorNil(t *testing.T) {
	lg, buf := newTestLogger(t)
	lg.Error(nil)
	assert.Empty(t, buf.String())
}

func TestLogger_ZerrChain(t *testing.T) {
	lg, buf := newTestLogger(t)

	err := zerr.Wrap(errors.New("no such file or directory"), "failed to read source file")
	lg.Error(err)

	out := buf.String()
	assert.Contains(t, out, "Error: failed to read source file")
	assert.Contains(t, out, "Caused by:")
	assert.Contains(t, out, "no such file or directory")
}

func TestLogger_JSON(t *testing.T) {
	lg, buf := newTestLogger(t)
	lg.SetJSON(true)

	lg.Info("built /out/all.js")
	lg.Error(errors.New("boom"))

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var info map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &info))
	assert.Equal(t, "INFO", info["level"])
	assert.Equal(t, "built /out/all.js", info["msg"])

	var failure map[string]any
	require.NoError(t, json.Unmarshal(lines[1], &failure))
	assert.Equal(t, "ERROR", failure["level"])
	assert.Equal(t, "boom", failure["error"])
}

func TestLogger_SetOutputKeepsJSONMode(t *testing.T) {
	lg, _ := newTestLogger(t)
	lg.SetJSON(true)

	var second bytes.Buffer
	lg.SetOutput(&second)
	lg.Warn("careful")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(second.Bytes(), &rec))
	assert.Equal(t, "WARN", rec["level"])
}

func TestPrettyHandler_Attrs(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	var buf bytes.Buffer
	l := slog.New(logger.NewPrettyHandler(&buf, nil)).With("dest", "/out/a.js").WithGroup("g")
	l.Info("built", "n", 2)
	l.Debug("hidden")

	assert.Equal(t, "built g.dest=/out/a.js g.n=2\n", buf.String())
}

func TestFormatError(t *testing.T) {
	got := logger.FormatError(&chainErr{msg: "outer\nmore", cause: errors.New("inner")})
	assert.Equal(t, "Error: outer\n       more\n\n  Caused by:\n    → inner", got)
}
