package hider

import (
	"errors"
	"fmt"
	"github.com/Leantar/inohide/modules/worker"
	"github.com/rs/zerolog/log"
	"golang.org/x/sys/unix"
	"os"
	"sync"
)

// Spawner starts a delay worker process that is ready for coordination
// signals when Start returns.
type Spawner interface {
	Start(spec worker.Spec) (*os.Process, error)
}

// Supervisor keeps at most one delay worker alive. The worker is a child of
// this process and is reaped here, nowhere else.
type Supervisor struct {
	spawner Spawner
	spec    worker.Spec

	mu     sync.Mutex
	proc   *os.Process
	spawns int
	closed bool
}

func NewSupervisor(spawner Spawner, spec worker.Spec) *Supervisor {
	return &Supervisor{
		spawner: spawner,
		spec:    spec,
	}
}

// Trigger extends the debounce window of a live worker or spawns a new one.
func (s *Supervisor) Trigger() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStopped
	}

	alive, err := s.alive()
	if err != nil {
		return err
	}

	if alive {
		return s.extend()
	}

	return s.spawn()
}

// Alive reports whether the current worker is still running.
func (s *Supervisor) Alive() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.alive()
}

// Spawns returns how many workers have been started so far.
func (s *Supervisor) Spawns() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.spawns
}

// Stop refuses further triggers. A live worker is told to restore right away
// and waited for.
func (s *Supervisor) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true

	alive, err := s.alive()
	if err != nil || !alive {
		return err
	}

	pid := s.proc.Pid
	if err := unix.Kill(pid, worker.SignalShutdown); err != nil && !errors.Is(err, unix.ESRCH) {
		return fmt.Errorf("failed sending %s to worker %d: %w", worker.SignalShutdown, pid, err)
	}

	var ws unix.WaitStatus
	if _, err := wait4(pid, &ws, 0); err != nil {
		return fmt.Errorf("failed waiting for worker %d: %w", pid, err)
	}

	logExit(pid, ws)
	s.release()

	return nil
}

func (s *Supervisor) alive() (bool, error) {
	if s.proc == nil {
		return false, nil
	}

	var ws unix.WaitStatus
	pid, err := wait4(s.proc.Pid, &ws, unix.WNOHANG)

	// ECHILD: nothing left to wait for, e.g. reaped elsewhere.
	if errors.Is(err, unix.ECHILD) {
		s.release()
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed querying worker status: %w", err)
	}
	if pid == 0 {
		return true, nil
	}

	logExit(pid, ws)
	s.release()

	return false, nil
}

func (s *Supervisor) extend() error {
	pid := s.proc.Pid
	if err := unix.Kill(pid, worker.SignalExtend); err != nil {
		return fmt.Errorf("failed sending %s to worker %d: %w", worker.SignalExtend, pid, err)
	}

	log.Debug().Int("pid", pid).Msg("extended hide window")

	return nil
}

func (s *Supervisor) spawn() error {
	proc, err := s.spawner.Start(s.spec)
	if err != nil {
		return err
	}

	s.proc = proc
	s.spawns++
	log.Info().Int("pid", proc.Pid).Str("path", s.spec.Path).Msg("spawned worker")

	return nil
}

func (s *Supervisor) release() {
	if s.proc == nil {
		return
	}

	_ = s.proc.Release()
	s.proc = nil
}

func wait4(pid int, ws *unix.WaitStatus, options int) (int, error) {
	for {
		wpid, err := unix.Wait4(pid, ws, options, nil)
		if !errors.Is(err, unix.EINTR) {
			return wpid, err
		}
	}
}

func logExit(pid int, ws unix.WaitStatus) {
	switch {
	case ws.Exited() && ws.ExitStatus() != 0:
		log.Error().Int("pid", pid).Int("status", ws.ExitStatus()).Msg("worker failed")
	case ws.Exited():
		log.Info().Int("pid", pid).Int("status", ws.ExitStatus()).Msg("worker exited")
	case ws.Signaled():
		log.Info().Int("pid", pid).Str("signal", ws.Signal().String()).Msg("worker was terminated by signal")
	}
}
