package fileutil_test

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/Leantar/inohide/modules/fileutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type shortWriter struct {
	limit int
}

func (s *shortWriter) Write(p []byte) (int, error) {
	if len(p) > s.limit {
		return s.limit, nil
	}
	return len(p), nil
}

type failingReader struct {
	served bool
}

func (f *failingReader) Read(p []byte) (int, error) {
	if !f.served {
		f.served = true
		return copy(p, "abc"), nil
	}
	return 0, errors.New("device gone")
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestCopyAll(t *testing.T) {
	for _, size := range []int{0, 1, fileutil.ChunkSize - 1, fileutil.ChunkSize, 3*fileutil.ChunkSize + 17} {
		src := make([]byte, size)
		for i := range src {
			src[i] = byte(i % 251)
		}

		var dst bytes.Buffer
		n, err := fileutil.CopyAll(&dst, bytes.NewReader(src))
		require.NoError(t, err)
		assert.Equal(t, int64(size), n)
		assert.True(t, bytes.Equal(src, dst.Bytes()), "size %d", size)
	}
}

func TestCopyAll_Files(t *testing.T) {
	dir := t.TempDir()
	content := bytes.Repeat([]byte("inohide"), 5000)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src"), content, 0o600))

	src, err := os.Open(filepath.Join(dir, "src"))
	require.NoError(t, err)
	defer src.Close()

	dst, err := os.Create(filepath.Join(dir, "dst"))
	require.NoError(t, err)
	defer dst.Close()

	n, err := fileutil.CopyAll(dst, src)
	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), n)

	require.NoError(t, fileutil.Rewind(dst))
	got, err := io.ReadAll(dst)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestCopyAll_ShortWrite(t *testing.T) {
	_, err := fileutil.CopyAll(&shortWriter{limit: 10}, bytes.NewReader(make([]byte, 100)))
	assert.ErrorIs(t, err, fileutil.ErrIoWrite)
	assert.ErrorIs(t, err, io.ErrShortWrite)
}

func TestCopyAll_WriteError(t *testing.T) {
	_, err := fileutil.CopyAll(failingWriter{}, bytes.NewReader([]byte("x")))
	assert.ErrorIs(t, err, fileutil.ErrIoWrite)
}

func TestCopyAll_ReadError(t *testing.T) {
	var dst bytes.Buffer
	n, err := fileutil.CopyAll(&dst, &failingReader{})
	assert.ErrorIs(t, err, fileutil.ErrIoRead)
	assert.Equal(t, int64(3), n)
	assert.Equal(t, "abc", dst.String())
}
