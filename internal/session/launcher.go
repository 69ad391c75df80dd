package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"

	"go.uber.org/zap"
)

// Launcher starts a session worker for an accepted request.
// The slot in req is already held; the worker owns its release.
type Launcher interface {
	Launch(ctx context.Context, req Request) error
}

// ProcessLauncher starts each session as a separate worker process:
//
//	<executable> <args...> <wallet> <session_id> <config> <slot>
type ProcessLauncher struct {
	executable string
	args       []string
	configPath string
	logger     *zap.Logger
}

// ProcessLauncherOptions contains configuration for creating a ProcessLauncher.
type ProcessLauncherOptions struct {
	Executable string   // Default: the running binary
	Args       []string // leading arguments, e.g. the worker subcommand
	ConfigPath string   // configuration reference passed to the worker
	Logger     *zap.Logger
}

// NewProcessLauncher creates a new ProcessLauncher.
func NewProcessLauncher(opts ProcessLauncherOptions) (*ProcessLauncher, error) {
	exe := opts.Executable
	if exe == "" {
		self, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("resolve worker executable: %w", err)
		}
		exe = self
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProcessLauncher{
		executable: exe,
		args:       append([]string(nil), opts.Args...),
		configPath: opts.ConfigPath,
		logger:     logger,
	}, nil
}

// Command builds the worker command line for req.
func (l *ProcessLauncher) Command(req Request) *exec.Cmd {
	args := append(append([]string(nil), l.args...), req.Wallet, req.SessionID, l.configPath, req.SlotID)
	return exec.Command(l.executable, args...) //nolint:gosec
}

// Launch starts the worker and returns once the process is running.
// The worker is not tied to ctx: it outlives the request that started it.
func (l *ProcessLauncher) Launch(_ context.Context, req Request) error {
	if req.SlotID == "" {
		return errors.New("launch: slot id is required")
	}
	cmd := l.Command(req)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start worker: %w", err)
	}

	pid := cmd.Process.Pid
	l.logger.Info("worker-started", zap.String("session_id", req.SessionID), zap.String("slot", req.SlotID), zap.Int("pid", pid))
	go func() {
		err := cmd.Wait()
		fields := []zap.Field{zap.String("session_id", req.SessionID), zap.Int("pid", pid)}
		if err != nil {
			l.logger.Warn("worker-exited", append(fields, zap.Error(err))...)
			return
		}
		l.logger.Info("worker-exited", fields...)
	}()
	return nil
}

// Runner executes a session in the current process.
type Runner interface {
	Run(ctx context.Context, req Request) (Outcome, error)
}

// InProcessLauncher runs sessions on goroutines of the serving process.
// Used with the memory coordination backend, where state is not shared
// across processes.
type InProcessLauncher struct {
	runner Runner
	logger *zap.Logger
}

// NewInProcessLauncher creates a launcher backed by runner.
func NewInProcessLauncher(runner Runner, logger *zap.Logger) *InProcessLauncher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InProcessLauncher{runner: runner, logger: logger}
}

// Launch starts the session and returns immediately.
func (l *InProcessLauncher) Launch(ctx context.Context, req Request) error {
	if req.SlotID == "" {
		return errors.New("launch: slot id is required")
	}
	go func() {
		out, err := l.runner.Run(context.WithoutCancel(ctx), req)
		if err != nil {
			l.logger.Warn("session-run-failed", zap.String("session_id", req.SessionID), zap.String("state", string(out.State)), zap.Error(err))
		}
	}()
	return nil
}

var (
	_ Launcher = (*ProcessLauncher)(nil)
	_ Launcher = (*InProcessLauncher)(nil)
	_ Runner   = (*Orchestrator)(nil)
)
