package archivers

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"io/fs"
	"testing"
	"time"

	"github.com/infracollect/tmpcollect/internal/engine"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// readTarEntries decompresses the gzip'd tar and returns headers and contents in archive order.
func readTarEntries(t *testing.T, data []byte) ([]*tar.Header, map[string]string) {
	t.Helper()
	gr, err := gzip.NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { lo.Must0(gr.Close()) }()

	tr := tar.NewReader(gr)
	var headers []*tar.Header
	found := make(map[string]string)
	for {
		h, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		content, err := io.ReadAll(tr)
		require.NoError(t, err)
		headers = append(headers, h)
		found[h.Name] = string(content)
	}
	return headers, found
}

func entryFor(name, content string) engine.Entry {
	return engine.Entry{
		Name:    name,
		Size:    int64(len(content)),
		Mode:    0640,
		ModTime: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestTarArchiver_AddFile(t *testing.T) {
	var buf bytes.Buffer
	archiver := NewTarArchiver(&buf)

	content := "hello, world!"
	err := archiver.AddFile(t.Context(), entryFor("test.txt", content), bytes.NewReader([]byte(content)))
	require.NoError(t, err)
	require.NoError(t, archiver.Close())

	headers, found := readTarEntries(t, buf.Bytes())
	require.Len(t, headers, 1)
	assert.Equal(t, content, found["test.txt"])
	assert.Equal(t, int64(0640), headers[0].Mode)
	assert.Equal(t, byte(tar.TypeReg), headers[0].Typeflag)
	assert.True(t, headers[0].ModTime.Equal(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)))
}

func TestTarArchiver_MultipleFilesKeepOrder(t *testing.T) {
	var buf bytes.Buffer
	archiver := NewTarArchiver(&buf)

	names := []string{"c.txt", "a.txt", "b.txt"}
	for _, name := range names {
		content := "content of " + name
		require.NoError(t, archiver.AddFile(t.Context(), entryFor(name, content), bytes.NewBufferString(content)))
	}
	require.NoError(t, archiver.Close())

	headers, found := readTarEntries(t, buf.Bytes())
	assert.Equal(t, names, lo.Map(headers, func(h *tar.Header, _ int) string { return h.Name }))
	for _, name := range names {
		assert.Equal(t, "content of "+name, found[name])
	}
}

func TestTarArchiver_KeepsMode(t *testing.T) {
	tests := []struct {
		name string
		mode fs.FileMode
		want int64
	}{
		{name: "no permissions", mode: 0, want: 0},
		{name: "read only", mode: 0400, want: 0400},
		{name: "executable", mode: 0755, want: 0755},
		{name: "type bits dropped", mode: fs.ModeSetuid | 0750, want: 0750},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			archiver := NewTarArchiver(&buf)

			entry := entryFor("mode.txt", "x")
			entry.Mode = tt.mode
			require.NoError(t, archiver.AddFile(t.Context(), entry, bytes.NewBufferString("x")))
			require.NoError(t, archiver.Close())

			headers, _ := readTarEntries(t, buf.Bytes())
			require.Len(t, headers, 1)
			assert.Equal(t, tt.want, headers[0].Mode)
		})
	}
}

func TestTarArchiver_SizeMismatch(t *testing.T) {
	archiver := NewTarArchiver(io.Discard)

	entry := entryFor("short.txt", "0123456789")
	err := archiver.AddFile(t.Context(), entry, bytes.NewBufferString("0123"))
	require.Error(t, err)
	assert.ErrorContains(t, err, "changed size")
}

func TestTarArchiver_CancelledContext(t *testing.T) {
	archiver := NewTarArchiver(io.Discard)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	err := archiver.AddFile(ctx, entryFor("a.txt", "a"), bytes.NewBufferString("a"))
	require.ErrorIs(t, err, context.Canceled)
}

func TestTarArchiver_CloseTwice(t *testing.T) {
	archiver := NewTarArchiver(io.Discard)

	require.NoError(t, archiver.Close())

	// Second close should error
	require.Error(t, archiver.Close(), "Close() second call should error")
}

func TestTarArchiver_AddFileAfterClose(t *testing.T) {
	archiver := NewTarArchiver(io.Discard)

	require.NoError(t, archiver.Close())

	err := archiver.AddFile(t.Context(), entryFor("test.txt", "content"), bytes.NewBufferString("content"))
	require.Error(t, err, "AddFile() after Close() should error")
}

func TestTarArchiver_EmptyArchiveIsValid(t *testing.T) {
	var buf bytes.Buffer
	archiver := NewTarArchiver(&buf)
	require.NoError(t, archiver.Close())

	headers, found := readTarEntries(t, buf.Bytes())
	assert.Empty(t, headers)
	assert.Empty(t, found)
}
