// Package fileutil holds the byte-level file helpers used during a hide cycle.
package fileutil

import (
	"errors"
	"fmt"
	"io"
)

// ChunkSize is the size of a single read during CopyAll.
const ChunkSize = 8192

var (
	ErrIoRead  = errors.New("read failed")
	ErrIoWrite = errors.New("write failed")
)

// CopyAll copies src to dst until src reports EOF. Both handles are used at
// their current offsets. A short write is an error and is not retried.
func CopyAll(dst io.Writer, src io.Reader) (int64, error) {
	buf := make([]byte, ChunkSize)

	var copied int64
	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			w, werr := dst.Write(buf[:n])
			copied += int64(w)
			if werr != nil {
				return copied, fmt.Errorf("%w: %w", ErrIoWrite, werr)
			}
			if w != n {
				return copied, fmt.Errorf("%w: %w (%d of %d bytes)", ErrIoWrite, io.ErrShortWrite, w, n)
			}
		}

		if errors.Is(rerr, io.EOF) {
			return copied, nil
		}
		if rerr != nil {
			return copied, fmt.Errorf("%w: %w", ErrIoRead, rerr)
		}
	}
}

// Rewind positions s at its first byte.
func Rewind(s io.Seeker) error {
	if _, err := s.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed seeking to file offset 0: %w", err)
	}

	return nil
}
