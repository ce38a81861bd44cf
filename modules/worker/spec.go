package worker

import (
	"errors"
	"github.com/alecthomas/kingpin/v2"
	"strconv"
	"time"
)

// FlagWorker as first argument turns an inohide process into a delay worker.
const FlagWorker = "--delay-worker"

// Spec is everything a worker needs. It crosses the process boundary as an
// argument vector, nothing else is shared with the orchestrator.
type Spec struct {
	Path     string
	Mode     uint32
	Uid      uint32
	Gid      uint32
	Window   time.Duration
	LogLevel string
}

func (s Spec) Args() []string {
	return []string{
		FlagWorker,
		"--mode=" + strconv.FormatUint(uint64(s.Mode), 10),
		"--uid=" + strconv.FormatUint(uint64(s.Uid), 10),
		"--gid=" + strconv.FormatUint(uint64(s.Gid), 10),
		"--window=" + s.Window.String(),
		"--log-level=" + s.LogLevel,
		"--",
		s.Path,
	}
}

// Invoked reports whether args (without the program name) request worker mode.
func Invoked(args []string) bool {
	return len(args) > 0 && args[0] == FlagWorker
}

func ParseArgs(args []string) (Spec, error) {
	var spec Spec

	app := kingpin.New("inohide", "Delay worker of inohide.")
	app.Terminate(nil)
	app.Flag("delay-worker", "Run as delay worker.").Required().Bool()
	app.Flag("mode", "Mode of the protected file.").Required().Uint32Var(&spec.Mode)
	app.Flag("uid", "Owning user of the protected file.").Required().Uint32Var(&spec.Uid)
	app.Flag("gid", "Owning group of the protected file.").Required().Uint32Var(&spec.Gid)
	app.Flag("window", "Debounce window.").Required().DurationVar(&spec.Window)
	app.Flag("log-level", "Minimum log level.").Default("info").StringVar(&spec.LogLevel)
	app.Arg("file", "Protected file.").Required().StringVar(&spec.Path)

	if _, err := app.Parse(args); err != nil {
		return Spec{}, err
	}

	if spec.Window <= 0 {
		return Spec{}, errors.New("window must be positive")
	}

	return spec, nil
}
