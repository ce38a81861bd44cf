package worker

import (
	"time"
)

// delay waits one debounce window for a coordination signal. It returns true
// if the window has to start over.
func (w *Worker) delay() bool {
	t := time.NewTimer(w.spec.Window)
	defer t.Stop()

	select {
	case sig := <-w.signals:
		w.logger.Info().Str("signal", sig.String()).Msg("worker received signal")
		return sig == SignalExtend
	case <-t.C:
		w.logger.Debug().Dur("window", w.spec.Window).Msg("debounce window elapsed")
		return false
	}
}
