//go:build linux

package watcher_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Leantar/inohide/modules/watcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/sys/unix"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func openSource(t *testing.T, dir string) *watcher.Source {
	t.Helper()
	src, err := watcher.Open(watcher.BufferSize(watcher.MaxNameLen(dir), 10))
	require.NoError(t, err)
	t.Cleanup(func() { _ = src.Close() })
	require.NoError(t, src.WatchDirectory(dir, watcher.HideMask))
	return src
}

type readResult struct {
	events []watcher.Event
	err    error
}

func readAsync(src *watcher.Source) <-chan readResult {
	ch := make(chan readResult, 1)
	go func() {
		b, err := src.ReadBatch()
		if err != nil {
			ch <- readResult{err: err}
			return
		}
		ch <- readResult{events: drain(b), err: b.Err()}
	}()
	return ch
}

func waitRead(t *testing.T, ch <-chan readResult) readResult {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("ReadBatch did not return")
		return readResult{}
	}
}

func TestFlagsMatchKernelHeaders(t *testing.T) {
	assert.Equal(t, uint32(unix.IN_OPEN), watcher.FlagOpen)
	assert.Equal(t, uint32(unix.IN_ISDIR), watcher.FlagIsDir)
	assert.Equal(t, uint32(unix.IN_EXCL_UNLINK), watcher.FlagExclUnlink)
	assert.Equal(t, uint32(unix.IN_DELETE), watcher.FlagDelete)
	assert.Equal(t, uint32(unix.IN_CREATE), watcher.FlagCreate)
	assert.Equal(t, uint32(unix.IN_Q_OVERFLOW), watcher.FlagQOverflow)
	assert.Equal(t, unix.SizeofInotifyEvent, watcher.HeaderSize)
}

func TestSource_DirectoryOpen(t *testing.T) {
	dir := t.TempDir()
	src := openSource(t, dir)

	ch := readAsync(src)

	f, err := os.Open(dir)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	r := waitRead(t, ch)
	require.NoError(t, r.err)
	require.NotEmpty(t, r.events)
	assert.True(t, r.events[0].Has(watcher.FlagOpen))
	assert.True(t, r.events[0].IsDir())
	assert.Zero(t, r.events[0].NameLen)
}

func TestSource_ChildOpen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "secret.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))
	src := openSource(t, dir)

	ch := readAsync(src)

	f, err := os.Open(path)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	r := waitRead(t, ch)
	require.NoError(t, r.err)
	require.NotEmpty(t, r.events)
	assert.False(t, r.events[0].IsDir())
	assert.NotZero(t, r.events[0].NameLen)
	assert.Equal(t, "secret.txt", r.events[0].Name)
}

func TestSource_CloseUnblocksRead(t *testing.T) {
	dir := t.TempDir()
	src, err := watcher.Open(watcher.BufferSize(watcher.MaxNameLen(dir), 10))
	require.NoError(t, err)
	require.NoError(t, src.WatchDirectory(dir, watcher.HideMask))

	ch := readAsync(src)
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, src.Close())

	r := waitRead(t, ch)
	assert.ErrorIs(t, r.err, watcher.ErrWatchRead)
	assert.True(t, errors.Is(r.err, os.ErrClosed))
}

func TestSource_WatchMissingDirectory(t *testing.T) {
	src, err := watcher.Open(0)
	require.NoError(t, err)
	defer src.Close()

	err = src.WatchDirectory(filepath.Join(t.TempDir(), "missing"), watcher.HideMask)
	assert.ErrorIs(t, err, watcher.ErrWatchAdd)
	assert.ErrorIs(t, err, unix.ENOENT)
}

func TestSource_MinimumBuffer(t *testing.T) {
	src, err := watcher.Open(1)
	require.NoError(t, err)
	defer src.Close()

	assert.Equal(t, watcher.HeaderSize+unix.NAME_MAX+1, src.BufferLen())
}

func TestMaxNameLen(t *testing.T) {
	assert.Positive(t, watcher.MaxNameLen(t.TempDir()))
	assert.Equal(t, watcher.DefaultNameMax, watcher.MaxNameLen(filepath.Join(t.TempDir(), "missing")))
}
