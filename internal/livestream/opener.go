package livestream

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"sync"
)

// Opener prepares a session's underlying source before delivery starts.
// Implementations typically start a recorder that writes the session's temp
// file; a session without an Opener assumes something else feeds the file.
type Opener interface {
	OpenStream(ctx context.Context) error
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(ctx context.Context) error

// OpenStream calls f.
func (f OpenerFunc) OpenStream(ctx context.Context) error { return f(ctx) }

// ProcessOpener starts an external recorder process that captures the
// broadcast into the session's temp file. The process is detached from the
// open context once started and runs until Stop.
type ProcessOpener struct {
	Command string
	Args    []string
	Logger  *slog.Logger

	mu  sync.Mutex
	cmd *exec.Cmd
}

// OpenStream launches the recorder. It returns once the process has started;
// readiness of the capture file is the copy loop's problem, it polls.
func (p *ProcessOpener) OpenStream(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cmd != nil {
		return fmt.Errorf("recorder already running (pid %d)", p.cmd.Process.Pid)
	}

	cmd := exec.Command(p.Command, p.Args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting recorder %q: %w", p.Command, err)
	}
	p.cmd = cmd

	if p.Logger != nil {
		p.Logger.Info("recorder started",
			slog.String("command", p.Command),
			slog.Int("pid", cmd.Process.Pid),
		)
	}

	// Reap the process so it never lingers as a zombie.
	go func() {
		err := cmd.Wait()
		if p.Logger != nil {
			p.Logger.Info("recorder exited", slog.Any("error", err))
		}
	}()

	return nil
}

// Stop kills the recorder process if it is running.
func (p *ProcessOpener) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cmd == nil || p.cmd.Process == nil {
		return
	}
	if err := p.cmd.Process.Kill(); err != nil && p.Logger != nil {
		p.Logger.Warn("killing recorder", slog.Any("error", err))
	}
	p.cmd = nil
}
