package tree

import (
	"context"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/hdfs-mirror/internal/attr"
	"github.com/tonimelisma/hdfs-mirror/internal/webhdfs"
	"github.com/tonimelisma/hdfs-mirror/testutil"
)

func newFakeClient(t *testing.T) (*testutil.FakeHDFS, *webhdfs.Client) {
	t.Helper()

	fake := testutil.NewFakeHDFS(t)
	c := webhdfs.NewClient(fake.Endpoint(), http.DefaultClient, webhdfs.Auth{User: "hdfs"}, slog.Default())

	return fake, c
}

func TestBuildRemote(t *testing.T) {
	fake, c := newFakeClient(t)
	fake.AddDir("/data/set", 0o755, "hdfs", "hadoop")
	fake.AddFile("/data/set/a.txt", make([]byte, 10), 1000, 0o644, "alice", "staff")
	fake.AddFile("/data/set/b/c.txt", make([]byte, 5), 2000, 0o600, "bob", "staff")
	fake.AddDir("/data/set/b/empty", 0o700, "bob", "staff")

	s, err := BuildRemote(context.Background(), c, "/data/set", Options{})
	require.NoError(t, err)

	assert.Equal(t, "/data/set", s.Root)
	assert.False(t, s.SlashTerminated)
	require.NotNil(t, s.RootMeta)
	assert.Equal(t, "hadoop", s.RootMeta.Group)

	assert.Equal(t, []string{"a.txt", "b/c.txt"}, s.SortedFiles())
	assert.Equal(t, []string{"b", "b/empty"}, s.SortedDirectories())
	assert.Equal(t, FileMeta{Size: 10, ModTime: 1000, Mode: attr.Mode(0o644), Owner: "alice", Group: "staff"},
		s.Files["a.txt"])
	assert.Equal(t, attr.Mode(0o700), s.Directories["b/empty"].Mode)
}

func TestBuildRemote_RootSlash(t *testing.T) {
	fake, c := newFakeClient(t)
	fake.AddFile("/top.txt", []byte("x"), 1, 0o644, "u", "g")
	fake.AddFile("/d/f", []byte("x"), 1, 0o644, "u", "g")

	s, err := BuildRemote(context.Background(), c, "/", Options{})
	require.NoError(t, err)

	assert.Equal(t, "/", s.Root)
	assert.Equal(t, []string{"d/f", "top.txt"}, s.SortedFiles())
	assert.Equal(t, "/d/f", s.Path("d/f"))
}

func TestBuildRemote_InaccessibleDirectory(t *testing.T) {
	fake, c := newFakeClient(t)
	fake.AddFile("/r/ok.txt", []byte("x"), 1, 0o644, "u", "g")
	fake.AddFile("/r/locked/secret", []byte("x"), 1, 0o644, "u", "g")
	fake.Forbid("/r/locked")

	s, err := BuildRemote(context.Background(), c, "/r/", Options{})
	require.NoError(t, err)

	assert.True(t, s.SlashTerminated)
	assert.Equal(t, []string{"/r/locked"}, s.Inaccessible)
	assert.Contains(t, s.Directories, "locked")
	assert.Equal(t, []string{"ok.txt"}, s.SortedFiles())
}

func TestBuildRemote_RootErrors(t *testing.T) {
	fake, c := newFakeClient(t)
	fake.AddFile("/file", []byte("x"), 1, 0o644, "u", "g")
	fake.AddDir("/denied", 0o700, "root", "root")
	fake.Forbid("/denied")

	_, err := BuildRemote(context.Background(), c, "/missing", Options{})
	assert.ErrorIs(t, err, ErrRootNotFound)

	_, err = BuildRemote(context.Background(), c, "/file", Options{})
	assert.ErrorIs(t, err, ErrRootNotDirectory)

	_, err = BuildRemote(context.Background(), c, "/denied", Options{})
	assert.ErrorIs(t, err, ErrRootNoAccess)
}

func TestBuildRemote_Exclude(t *testing.T) {
	fake, c := newFakeClient(t)
	fake.AddFile("/r/keep", []byte("x"), 1, 0o644, "u", "g")
	fake.AddFile("/r/tmp/skip", []byte("x"), 1, 0o644, "u", "g")

	s, err := BuildRemote(context.Background(), c, "/r", Options{Exclude: []string{"tmp"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"keep"}, s.SortedFiles())
	assert.Empty(t, s.Directories)
	assert.Equal(t, 0, countListing(fake.Ops(), "/r/tmp"))
}

func countListing(ops []string, p string) int {
	n := 0

	for _, op := range ops {
		if op == "LISTSTATUS "+p {
			n++
		}
	}

	return n
}

func TestBuildRemote_ProtocolErrorIsFatal(t *testing.T) {
	fake, c := newFakeClient(t)
	fake.AddDir("/r/bad", 0o755, "u", "g")
	fake.FailOp("LISTSTATUS", "/r/bad")

	_, err := BuildRemote(context.Background(), c, "/r", Options{})
	assert.ErrorIs(t, err, webhdfs.ErrUnexpectedStatus)
}

func TestBuildRemote_DecomposedNames(t *testing.T) {
	fake, c := newFakeClient(t)
	fake.AddFile("/data/set/cafe\u0301/the\u0301.txt", []byte("x"), 1, 0o644, "u", "g")
	fake.AddFile("/data/set/cafe\u0301/skipe\u0301", []byte("x"), 1, 0o644, "u", "g")

	// exclusion matches the composed form
	s, err := BuildRemote(context.Background(), c, "/data/set", Options{Exclude: []string{"caf\u00e9/skip\u00e9"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"caf\u00e9"}, s.SortedDirectories())
	assert.Equal(t, []string{"caf\u00e9/th\u00e9.txt"}, s.SortedFiles())
	assert.Equal(t, "/data/set/cafe\u0301/the\u0301.txt", s.Path("caf\u00e9/th\u00e9.txt"))
	assert.Equal(t, "/data/set/cafe\u0301", s.Path("caf\u00e9"))
}
