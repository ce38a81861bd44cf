// Package hider watches the directory of a protected file and hides the file
// from whoever opens that directory, restoring it once things are quiet.
package hider

import (
	"errors"
	"fmt"
	"github.com/Leantar/inohide/models"
	"github.com/Leantar/inohide/modules/logging"
	"github.com/Leantar/inohide/modules/watcher"
	"github.com/Leantar/inohide/modules/worker"
	"github.com/h2non/filetype"
	"github.com/rs/zerolog/log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

var (
	ErrNotRegularFile = errors.New("not a regular file")
	ErrNotWritable    = errors.New("not writable")
	ErrNotRegistered  = errors.New("no file registered")
	ErrStopped        = errors.New("hider stopped")
)

type Config struct {
	DebounceWindow time.Duration `yaml:"debounce_window"`
	BatchSize      int           `yaml:"batch_size"`
	LogLevel       string        `yaml:"log_level"`
}

func DefaultConfig() Config {
	return Config{
		DebounceWindow: 4 * time.Second,
		BatchSize:      10,
		LogLevel:       "info",
	}
}

func (c Config) Validate() error {
	var errs []error

	if c.DebounceWindow <= 0 {
		errs = append(errs, fmt.Errorf("debounce_window %s must be positive", c.DebounceWindow))
	}
	if c.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("batch_size %d must be positive", c.BatchSize))
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// EventSource is the kernel notification channel the hider reads from.
type EventSource interface {
	WatchDirectory(dir string, mask uint32) error
	ReadBatch() (*watcher.Batch, error)
	Close() error
}

type SourceFactory func(bufSize int) (EventSource, error)

func openInotify(bufSize int) (EventSource, error) {
	src, err := watcher.Open(bufSize)
	if err != nil {
		return nil, err
	}

	return src, nil
}

type Option func(*Hider)

func WithSourceFactory(f SourceFactory) Option {
	return func(h *Hider) {
		h.openSource = f
	}
}

func WithSpawner(s Spawner) Option {
	return func(h *Hider) {
		h.spawner = s
	}
}

type Hider struct {
	conf       Config
	openSource SourceFactory
	spawner    Spawner

	attr     models.FileAttr
	digest   string
	kind     string
	source   EventSource
	sup      *Supervisor
	stopOnce sync.Once
	stopErr  error
}

func New(conf Config, opts ...Option) *Hider {
	h := &Hider{
		conf:       conf,
		openSource: openInotify,
	}
	for _, opt := range opts {
		opt(h)
	}

	return h
}

// Register validates path and installs the watch on its parent directory.
// Nothing is watched if it fails.
func (h *Hider) Register(path string) error {
	attr, err := models.ReadAttributes(path)
	if err != nil {
		return err
	}

	if !attr.IsRegular() {
		return fmt.Errorf("%w: %s", ErrNotRegularFile, path)
	}
	if !models.IsWritable(path) {
		return fmt.Errorf("%w: %s", ErrNotWritable, path)
	}

	if h.spawner == nil {
		l, err := worker.NewLauncher()
		if err != nil {
			return err
		}
		h.spawner = l
	}

	dir := filepath.Dir(path)
	bufSize := watcher.BufferSize(watcher.MaxNameLen(dir), h.conf.BatchSize)

	src, err := h.openSource(bufSize)
	if err != nil {
		return err
	}

	if err := src.WatchDirectory(dir, watcher.HideMask); err != nil {
		_ = src.Close()
		return err
	}

	h.attr = attr
	h.digest = digest(path)
	h.kind = contentType(path)
	h.source = src
	h.sup = NewSupervisor(h.spawner, worker.Spec{
		Path:     path,
		Mode:     attr.Mode,
		Uid:      attr.Uid,
		Gid:      attr.Gid,
		Window:   h.conf.DebounceWindow,
		LogLevel: h.conf.LogLevel,
	})

	log.Info().
		Str("path", path).
		Str("mode", fmt.Sprintf("%o", attr.Perm())).
		Uint32("uid", attr.Uid).
		Uint32("gid", attr.Gid).
		Str("type", h.kind).
		Str("blake3", h.digest).
		Int("buffer", bufSize).
		Msg("protecting file")

	return nil
}

// Run reads events until the source fails or Stop is called, which yields
// ErrStopped. Every other return is fatal.
func (h *Hider) Run() error {
	if h.source == nil {
		return ErrNotRegistered
	}

	for {
		batch, err := h.source.ReadBatch()
		if errors.Is(err, os.ErrClosed) {
			return ErrStopped
		}
		if err != nil {
			return err
		}

		hide := NeedsHide(traced{seq: batch})
		if err := batch.Err(); err != nil {
			log.Warn().Err(err).Msg("skipped rest of event batch")
		}

		if !hide {
			continue
		}

		if err := h.sup.Trigger(); err != nil {
			return err
		}
	}
}

// Stop restores the file if a worker is hiding it and releases the watch.
// It is safe to call more than once.
func (h *Hider) Stop() error {
	h.stopOnce.Do(func() {
		var errs []error
		if h.sup != nil {
			errs = append(errs, h.sup.Stop())
		}
		if h.source != nil {
			errs = append(errs, h.source.Close())
		}
		h.stopErr = errors.Join(errs...)
	})

	return h.stopErr
}

// Supervisor exposes the worker supervisor, nil before Register.
func (h *Hider) Supervisor() *Supervisor {
	return h.sup
}

func (h *Hider) Attributes() models.FileAttr {
	return h.attr
}

// Digest is the blake3 of the content at registration, empty if the file
// could not be read. A restored file hashes to the same value.
func (h *Hider) Digest() string {
	return h.digest
}

// ContentType is the MIME type sniffed from the file at registration.
func (h *Hider) ContentType() string {
	return h.kind
}

func digest(path string) string {
	sum, err := models.HashFile(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("failed to hash protected file")
		return ""
	}

	return sum
}

func contentType(path string) string {
	kind, err := filetype.MatchFile(path)
	if err != nil {
		log.Debug().Err(err).Str("path", path).Msg("failed to detect content type")
		return "unknown"
	}
	if kind == filetype.Unknown {
		return "unknown"
	}

	return kind.MIME.Value
}
