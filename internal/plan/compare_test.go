package plan

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/hdfs-mirror/internal/tree"
)

func TestCompare(t *testing.T) {
	a := snapshot("/local", false)
	b := snapshot("/hdfs", false)

	a.Directories["shared"] = tree.DirMeta{}
	b.Directories["shared"] = tree.DirMeta{}
	a.Directories["only-a"] = tree.DirMeta{}
	b.Directories["only-b"] = tree.DirMeta{}

	a.Files["same"] = tree.FileMeta{Size: 1, ModTime: 1}
	b.Files["same"] = tree.FileMeta{Size: 1, ModTime: 1, Owner: "ignored"}
	a.Files["size"] = tree.FileMeta{Size: 1, ModTime: 1}
	b.Files["size"] = tree.FileMeta{Size: 2, ModTime: 1}
	a.Files["mtime"] = tree.FileMeta{Size: 1, ModTime: 1}
	b.Files["mtime"] = tree.FileMeta{Size: 1, ModTime: 2}
	a.Files["only-a/f"] = tree.FileMeta{}
	b.Files["only-b/g"] = tree.FileMeta{}

	c := Compare(a, b)

	assert.Equal(t, []string{"only-a/f"}, c.FilesOnlyInA)
	assert.Equal(t, []string{"only-b/g"}, c.FilesOnlyInB)
	assert.Equal(t, []string{"only-a"}, c.DirsOnlyInA)
	assert.Equal(t, []string{"only-b"}, c.DirsOnlyInB)
	assert.Equal(t, []string{"mtime", "size"}, c.Differ)
	assert.False(t, c.Equal())
	assert.Equal(t, 6, c.Count())

	var buf bytes.Buffer
	require.NoError(t, WriteComparison(&buf, c, "local", "HDFS"))
	assert.Contains(t, buf.String(), "1 files only in local\n\tonly-a/f\n")
	assert.Contains(t, buf.String(), "1 directories only in HDFS\n\tonly-b\n")
	assert.Contains(t, buf.String(), "2 files differ in size or modification time\n\tmtime\n\tsize\n")
}

func TestCompare_Equal(t *testing.T) {
	a := snapshot("/a", false)
	b := snapshot("/b", false)
	a.Files["x"] = tree.FileMeta{Size: 3, ModTime: 3}
	b.Files["x"] = tree.FileMeta{Size: 3, ModTime: 3}

	c := Compare(a, b)
	assert.True(t, c.Equal())
	assert.Zero(t, c.Count())
}
