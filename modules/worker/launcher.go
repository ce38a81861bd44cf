package worker

import (
	"fmt"
	"github.com/rs/zerolog/log"
	"os"
	"os/exec"
)

// Launcher starts worker processes by re-executing Executable.
type Launcher struct {
	Executable string
}

func NewLauncher() (Launcher, error) {
	exe, err := os.Executable()
	if err != nil {
		return Launcher{}, fmt.Errorf("failed to locate own executable: %w", err)
	}

	return Launcher{Executable: exe}, nil
}

// Start spawns a worker for spec and blocks until it is ready to receive
// coordination signals or has already exited. The caller owns the returned
// process and has to reap it.
func (l Launcher) Start(spec Spec) (*os.Process, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create handshake pipe: %w", err)
	}
	defer r.Close()

	cmd := exec.Command(l.Executable, spec.Args()...)
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	cmd.ExtraFiles = []*os.File{w}

	err = cmd.Start()
	_ = w.Close()
	if err != nil {
		return nil, fmt.Errorf("failed forking worker: %w", err)
	}

	// EOF means the worker died before it got ready; the next liveness check
	// reports how.
	if _, err := r.Read(make([]byte, 1)); err != nil {
		log.Warn().Int("pid", cmd.Process.Pid).Err(err).Msg("worker exited before it was ready")
	}

	return cmd.Process, nil
}
