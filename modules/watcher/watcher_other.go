//go:build !linux

package watcher

import (
	"errors"
	"fmt"
)

var errUnsupported = errors.New("inotify is not supported on this platform")

// Source is a stub; inotify only exists on Linux.
type Source struct{}

func Open(int) (*Source, error) {
	return nil, fmt.Errorf("%w: %w", ErrWatchInit, errUnsupported)
}

func (s *Source) WatchDirectory(string, uint32) error {
	return fmt.Errorf("%w: %w", ErrWatchAdd, errUnsupported)
}

func (s *Source) ReadBatch() (*Batch, error) {
	return nil, fmt.Errorf("%w: %w", ErrWatchRead, errUnsupported)
}

func (s *Source) BufferLen() int {
	return 0
}

func (s *Source) Close() error {
	return nil
}

func MaxNameLen(string) int {
	return DefaultNameMax
}
