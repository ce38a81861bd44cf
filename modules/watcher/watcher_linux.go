//go:build linux

package watcher

import (
	"errors"
	"fmt"
	"github.com/rs/zerolog/log"
	"golang.org/x/sys/unix"
	"io"
	"os"
)

// Source owns one inotify instance and the buffer its events are read into.
type Source struct {
	fd   int
	file *os.File
	buf  []byte
}

// Open creates the inotify instance. The descriptor is non-blocking and
// handed to the runtime poller, so ReadBatch parks only the calling goroutine
// and Close unblocks it.
func Open(bufSize int) (*Source, error) {
	fd, err := unix.InotifyInit1(unix.IN_CLOEXEC | unix.IN_NONBLOCK)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWatchInit, err)
	}

	// The kernel rejects reads that cannot hold one maximal record.
	if minSize := HeaderSize + unix.NAME_MAX + 1; bufSize < minSize {
		bufSize = minSize
	}

	return &Source{
		fd:   fd,
		file: os.NewFile(uintptr(fd), "inotify"),
		buf:  make([]byte, bufSize),
	}, nil
}

// WatchDirectory subscribes to mask events of dir.
func (s *Source) WatchDirectory(dir string, mask uint32) error {
	wd, err := unix.InotifyAddWatch(s.fd, dir, mask)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWatchAdd, dir, err)
	}

	log.Debug().Str("dir", dir).Int("wd", wd).Str("mask", Event{Mask: mask}.Flags()).Msg("watching directory")

	return nil
}

// ReadBatch blocks until the kernel has events and returns a decoder over
// them. The returned Batch is only valid until the next call.
func (s *Source) ReadBatch() (*Batch, error) {
	n, err := s.file.Read(s.buf)
	if errors.Is(err, io.EOF) || (err == nil && n == 0) {
		return nil, fmt.Errorf("%w: no data", ErrWatchRead)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWatchRead, err)
	}

	return NewBatch(s.buf[:n]), nil
}

// BufferLen returns the capacity of the read buffer.
func (s *Source) BufferLen() int {
	return len(s.buf)
}

// Close releases the inotify instance and with it every watch.
func (s *Source) Close() error {
	return s.file.Close()
}

// MaxNameLen returns the maximum filename length of the filesystem holding
// dir, or DefaultNameMax if it cannot be determined.
func MaxNameLen(dir string) int {
	var st unix.Statfs_t

	if err := unix.Statfs(dir, &st); err != nil {
		log.Warn().Err(err).Str("dir", dir).Msg("statfs failed")
	} else if st.Namelen > 0 {
		return int(st.Namelen)
	}

	log.Warn().Int("name_max", DefaultNameMax).Msg("maximum filename length is unknown")

	return DefaultNameMax
}
