package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessLauncher_Command(t *testing.T) {
	l, err := NewProcessLauncher(ProcessLauncherOptions{
		Executable: "/usr/local/bin/walletlab",
		Args:       []string{"session"},
		ConfigPath: "/etc/walletlab.yaml",
	})
	require.NoError(t, err)

	cmd := l.Command(Request{Wallet: "W", SessionID: "sess-1", SlotID: "bot2"})
	assert.Equal(t, "/usr/local/bin/walletlab", cmd.Path)
	assert.Equal(t, []string{"/usr/local/bin/walletlab", "session", "W", "sess-1", "/etc/walletlab.yaml", "bot2"}, cmd.Args)
}

func TestProcessLauncher_StartFailure(t *testing.T) {
	l, err := NewProcessLauncher(ProcessLauncherOptions{Executable: "/nonexistent/walletlab"})
	require.NoError(t, err)

	err = l.Launch(context.Background(), Request{Wallet: "W", SessionID: "s", SlotID: "bot1"})
	assert.Error(t, err)
}

func TestLaunchers_RequireSlot(t *testing.T) {
	l, err := NewProcessLauncher(ProcessLauncherOptions{Executable: "/bin/true"})
	require.NoError(t, err)
	assert.Error(t, l.Launch(context.Background(), Request{Wallet: "W", SessionID: "s"}))

	assert.Error(t, NewInProcessLauncher(&recordingRunner{}, nil).Launch(context.Background(), Request{Wallet: "W", SessionID: "s"}))
}

type recordingRunner struct {
	got chan Request
}

func (r *recordingRunner) Run(_ context.Context, req Request) (Outcome, error) {
	r.got <- req
	return Outcome{State: StateCompleted}, nil
}

func TestInProcessLauncher_RunsAsync(t *testing.T) {
	runner := &recordingRunner{got: make(chan Request, 1)}
	ctx, cancel := context.WithCancel(context.Background())

	req := Request{Wallet: "W", SessionID: "sess-1", SlotID: "bot1"}
	require.NoError(t, NewInProcessLauncher(runner, nil).Launch(ctx, req))
	cancel() // request context ending must not stop the session

	select {
	case got := <-runner.got:
		assert.Equal(t, req, got)
	case <-time.After(2 * time.Second):
		t.Fatal("session was not started")
	}
}
