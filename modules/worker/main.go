package worker

import (
	"fmt"
	"github.com/Leantar/inohide/modules/logging"
	"github.com/rs/zerolog/log"
	"golang.org/x/sys/unix"
	"os"
)

// readyFd is the descriptor of the handshake pipe inherited from Launcher.
const readyFd = 3

// Main is the entry point of a worker process. args excludes the program
// name. It returns the process exit status.
func Main(args []string) int {
	spec, err := ParseArgs(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "inohide: invalid worker arguments: %v\n", err)
		return 1
	}

	if err := logging.Setup(spec.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "inohide: %v\n", err)
		return 1
	}

	w := New(spec)
	w.logger.Info().Str("path", spec.Path).Dur("window", spec.Window).Msg("forked worker")

	if err := w.Run(signalReady); err != nil {
		w.logger.Error().Caller().Err(err).Msg("worker failed")
		return 1
	}

	w.logger.Info().Msg("worker exiting successfully")

	return 0
}

// signalReady writes the handshake byte. Outside of a Launcher descriptor 3
// may belong to someone else, so it is only touched if it is a pipe.
func signalReady() {
	var st unix.Stat_t
	if err := unix.Fstat(readyFd, &st); err != nil || st.Mode&unix.S_IFMT != unix.S_IFIFO {
		return
	}

	ready := os.NewFile(readyFd, "ready")
	defer ready.Close()

	if _, err := ready.Write([]byte{1}); err != nil {
		log.Debug().Err(err).Msg("no launcher waiting for readiness")
	}
}
