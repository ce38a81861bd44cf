// Package worker implements the delay worker: a short lived process that
// unlinks the protected file, keeps it hidden while extend signals arrive and
// then recreates it with its original content, mode and ownership.
package worker

import (
	"fmt"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sys/unix"
	"os"
	"os/signal"
)

const (
	// SignalShutdown asks the worker to restore immediately.
	SignalShutdown = unix.SIGUSR1
	// SignalExtend restarts the debounce window.
	SignalExtend = unix.SIGUSR2
)

type Worker struct {
	spec    Spec
	signals chan os.Signal
	file    *os.File
	logger  zerolog.Logger
}

func New(spec Spec) *Worker {
	return &Worker{
		spec:    spec,
		signals: make(chan os.Signal, 8),
		logger:  log.With().Str("component", "worker").Int("pid", os.Getpid()).Logger(),
	}
}

// Run performs one hide cycle. Coordination signals are only observed by the
// debounce wait; ready is called once they can no longer terminate the
// process. Every failure ends the cycle, there are no retries.
func (w *Worker) Run(ready func()) error {
	signal.Notify(w.signals, SignalExtend, SignalShutdown, unix.SIGINT, unix.SIGTERM)
	defer signal.Stop(w.signals)

	if ready != nil {
		ready()
	}

	defer w.closeFile()

	if err := w.openOriginal(); err != nil {
		return err
	}

	if err := w.delete(); err != nil {
		return err
	}

	for w.delay() {
	}

	return w.restore()
}

func (w *Worker) openOriginal() error {
	f, err := os.Open(w.spec.Path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", w.spec.Path, err)
	}
	w.file = f

	return nil
}

func (w *Worker) delete() error {
	if err := unix.Unlink(w.spec.Path); err != nil {
		return fmt.Errorf("failed to delete %s: %w", w.spec.Path, err)
	}

	w.logger.Info().Str("path", w.spec.Path).Msg("file hidden")

	return nil
}

func (w *Worker) closeFile() {
	if w.file == nil {
		return
	}

	if err := w.file.Close(); err != nil {
		w.logger.Warn().Err(err).Msg("failed to close file")
	}
	w.file = nil
}
