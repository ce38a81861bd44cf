package main

import (
	"errors"
	"github.com/Leantar/inohide/hider"
	"github.com/Leantar/inohide/modules/config"
	"github.com/Leantar/inohide/modules/logging"
	"github.com/Leantar/inohide/modules/worker"
	"github.com/alecthomas/kingpin/v2"
	"github.com/rs/zerolog/log"
	"io"
	"os"
	"os/signal"
	"syscall"
)

type cli struct {
	app        *kingpin.Application
	file       *string
	configPath *string
}

// newCLI builds the command line. Every termination kingpin asks for, help
// included, is passed to exit as a failure.
func newCLI(out io.Writer, exit func(int)) *cli {
	app := kingpin.New("inohide", "Hide a file from anyone who lists its directory.")
	app.HelpFlag.Short('h')
	app.UsageWriter(out)
	app.ErrorWriter(out)
	app.Terminate(func(int) { exit(1) })

	return &cli{
		app:        app,
		file:       app.Arg("file", "Path of the file to protect.").Required().String(),
		configPath: app.Flag("config", "Optional YAML file with tuning knobs.").PlaceHolder("FILE").String(),
	}
}

// loadConfig returns the defaults, overridden by the YAML file at path if one
// was given.
func loadConfig(path string) (hider.Config, error) {
	conf := hider.DefaultConfig()
	if path != "" {
		if err := config.FromYamlFile(path, &conf); err != nil {
			return hider.Config{}, err
		}
	}

	if err := conf.Validate(); err != nil {
		return hider.Config{}, err
	}

	return conf, nil
}

func main() {
	if worker.Invoked(os.Args[1:]) {
		os.Exit(worker.Main(os.Args[1:]))
	}

	c := newCLI(os.Stderr, os.Exit)
	if _, err := c.app.Parse(os.Args[1:]); err != nil {
		c.app.FatalUsage("%s\n", err)
	}

	conf, err := loadConfig(*c.configPath)
	if err != nil {
		log.Fatal().Caller().Err(err).Msg("failed to read config")
	}

	if err := logging.Setup(conf.LogLevel); err != nil {
		log.Fatal().Caller().Err(err).Msg("failed to set up logging")
	}

	h := hider.New(conf)

	err = h.Register(*c.file)
	if err != nil {
		log.Fatal().Caller().Err(err).Str("path", *c.file).Msg("failed to register file")
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	done := make(chan error, 1)
	go func() {
		done <- h.Run()
	}()

	code := 0
	select {
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-done:
		if !errors.Is(err, hider.ErrStopped) {
			log.Error().Caller().Err(err).Msg("failed to run hider")
			code = 1
		}
	}

	if err := h.Stop(); err != nil {
		log.Error().Caller().Err(err).Msg("failed to stop hider")
		code = 1
	}

	os.Exit(code)
}
