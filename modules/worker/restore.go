package worker

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"github.com/Leantar/inohide/modules/fileutil"
	"github.com/zeebo/blake3"
	"golang.org/x/sys/unix"
	"io"
	"os"
)

var ErrDigestMismatch = errors.New("restored content differs from snapshot")

// restore snapshots the unlinked original into a scratch file and recreates
// the path from it. The new file must not exist yet: anything at the path now
// was created by someone else while the original was hidden.
func (w *Worker) restore() error {
	scratch, err := os.CreateTemp("", "inohide-")
	if err != nil {
		return fmt.Errorf("failed to create scratch file: %w", err)
	}
	defer scratch.Close()

	if err := os.Remove(scratch.Name()); err != nil {
		w.logger.Warn().Err(err).Str("scratch", scratch.Name()).Msg("failed to unlink scratch file")
	}

	if err := fileutil.Rewind(w.file); err != nil {
		return err
	}

	snapshot := blake3.New()
	n, err := fileutil.CopyAll(io.MultiWriter(scratch, snapshot), w.file)
	if err != nil {
		return fmt.Errorf("failed to snapshot %s: %w", w.spec.Path, err)
	}

	w.closeFile()

	mode := w.spec.Mode & 0o7777
	f, err := os.OpenFile(w.spec.Path, os.O_RDWR|os.O_CREATE|os.O_EXCL, os.FileMode(mode)&os.ModePerm)
	if err != nil {
		return fmt.Errorf("failed to recreate %s: %w", w.spec.Path, err)
	}
	w.file = f

	if err := f.Chown(int(w.spec.Uid), int(w.spec.Gid)); err != nil {
		w.logger.Warn().Err(err).Uint32("uid", w.spec.Uid).Uint32("gid", w.spec.Gid).Msg("failed setting file ownership")
	}

	// Mode goes last: chown clears setuid and setgid, and create applied the
	// umask.
	if err := unix.Fchmod(int(f.Fd()), mode); err != nil {
		return fmt.Errorf("failed to set mode %o on %s: %w", mode, w.spec.Path, err)
	}

	if err := fileutil.Rewind(scratch); err != nil {
		return err
	}

	restored := blake3.New()
	if _, err := fileutil.CopyAll(io.MultiWriter(f, restored), scratch); err != nil {
		return fmt.Errorf("failed to restore %s: %w", w.spec.Path, err)
	}

	if !bytes.Equal(snapshot.Sum(nil), restored.Sum(nil)) {
		return fmt.Errorf("%w: %s", ErrDigestMismatch, w.spec.Path)
	}

	if err := fileutil.Rewind(f); err != nil {
		return err
	}

	w.logger.Info().
		Str("path", w.spec.Path).
		Int64("bytes", n).
		Str("blake3", hex.EncodeToString(snapshot.Sum(nil))).
		Msg("file restored")

	return nil
}
