package daemon

import (
	"context"
	"os"
	"os/exec"
	"syscall"
	"time"

	"go.trai.ch/stitch/internal/core/domain"
	"go.trai.ch/stitch/internal/core/ports"
	"go.trai.ch/zerr"
)

const (
	pollInterval    = 100 * time.Millisecond
	maxPollDuration = 5 * time.Second
	pingTimeout     = time.Second
)

var _ ports.DaemonConnector = (*Connector)(nil)

// Connector implements ports.DaemonConnector.
type Connector struct {
	executablePath string
}

// NewConnector creates a new daemon connector spawning the running executable.
func NewConnector() (*Connector, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, zerr.Wrap(err, "failed to determine executable path")
	}
	return &Connector{executablePath: exe}, nil
}

// Dial returns a client to the primary serving stateDir, verified with a ping.
func (c *Connector) Dial(ctx context.Context, stateDir string) (ports.DaemonClient, error) {
	client, err := Dial(stateDir)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx); err != nil {
		_ = client.Close()
		return nil, zerr.Wrap(err, domain.ErrPrimaryUnavailable.Error())
	}
	return client, nil
}

// IsRunning checks if a primary is running and responsive.
func (c *Connector) IsRunning(ctx context.Context, stateDir string) bool {
	client, err := c.Dial(ctx, stateDir)
	if err != nil {
		return false
	}
	_ = client.Close()
	return true
}

// Spawn starts `stitch daemon serve` in workDir, detached from the caller's
// session, and waits until it answers.
func (c *Connector) Spawn(ctx context.Context, workDir, stateDir string) error {
	if err := os.MkdirAll(stateDir, domain.DirPerm); err != nil {
		return zerr.Wrap(err, domain.ErrRecordCreateFailed.Error())
	}

	logPath := domain.DaemonLogPath(stateDir)
	//nolint:gosec // G304: logPath is the state dir + a fixed name
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, domain.PrivateFilePerm)
	if err != nil {
		return zerr.Wrap(err, "failed to open daemon log")
	}

	//nolint:gosec // G204: executablePath is controlled, args are fixed literals
	cmd := exec.Command(c.executablePath, "daemon", "serve")
	cmd.Dir = workDir
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid: true,
	}

	if err := cmd.Start(); err != nil {
		_ = logFile.Close()
		return zerr.Wrap(err, domain.ErrDaemonSpawnFailed.Error())
	}

	go func() {
		_ = cmd.Wait()
		_ = logFile.Close()
	}()

	return c.waitForStartup(ctx, stateDir)
}

func (c *Connector) waitForStartup(ctx context.Context, stateDir string) error {
	start := time.Now()
	for time.Since(start) < maxPollDuration {
		if c.IsRunning(ctx, stateDir) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
	return zerr.With(domain.ErrDaemonSpawnFailed, "log", domain.DaemonLogPath(stateDir))
}
