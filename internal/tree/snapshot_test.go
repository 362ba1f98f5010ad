package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeRoot(t *testing.T) {
	tests := []struct {
		root      string
		stripped  string
		slash     bool
		prefixLen int
	}{
		{root: "/", stripped: "/", slash: false, prefixLen: 0},
		{root: "/data/set", stripped: "/data/set", slash: false, prefixLen: 10},
		{root: "/data/set/", stripped: "/data/set", slash: true, prefixLen: 10},
		{root: "/data/set//", stripped: "/data/set", slash: true, prefixLen: 10},
		{root: "rel", stripped: "rel", slash: false, prefixLen: 4},
	}

	for _, tt := range tests {
		t.Run(tt.root, func(t *testing.T) {
			stripped, slash, prefixLen := NormalizeRoot(tt.root)
			assert.Equal(t, tt.stripped, stripped)
			assert.Equal(t, tt.slash, slash)
			assert.Equal(t, tt.prefixLen, prefixLen)
		})
	}
}

func TestRelKey(t *testing.T) {
	assert.Equal(t, "a/b.txt", relKey("/data/set/a/b.txt", 10))
	assert.Equal(t, "etc/hosts", relKey("/etc/hosts", 0))
	assert.Equal(t, "", relKey("/data/set", 10))
}

func TestJoin(t *testing.T) {
	assert.Equal(t, "/out", Join("/out", ""))
	assert.Equal(t, "/a.txt", Join("/", "a.txt"))
	assert.Equal(t, "/out/b/c.txt", Join("/out", "b/c.txt"))
	assert.Equal(t, "rel/x", Join("rel", "x"))
}

func TestSnapshot_PathAndBase(t *testing.T) {
	s := newSnapshot("/data/set", false)
	s.names = map[string]string{"caf\u00e9": "cafe\u0301"}

	assert.Equal(t, "/data/set/x", s.Path("x"))
	assert.Equal(t, "/data/set/cafe\u0301", s.Path("caf\u00e9"))
	assert.Equal(t, "/data/set", s.Path(""))
	assert.Equal(t, "set", s.Base())

	assert.Equal(t, "", newSnapshot("/", false).Base())
}

func TestBuildEmpty(t *testing.T) {
	s := BuildEmpty("/out/")

	assert.True(t, s.Absent)
	assert.True(t, s.SlashTerminated)
	assert.Equal(t, "/out", s.Root)
	assert.Empty(t, s.Files)
	assert.Empty(t, s.Directories)
	assert.Nil(t, s.RootMeta)
}

func TestSortedKeys(t *testing.T) {
	s := newSnapshot("/r", false)
	s.Directories["b"] = DirMeta{}
	s.Directories["a/b"] = DirMeta{}
	s.Directories["a"] = DirMeta{}
	s.Files["z"] = FileMeta{}
	s.Files["a/x"] = FileMeta{}

	assert.Equal(t, []string{"a", "a/b", "b"}, s.SortedDirectories())
	assert.Equal(t, []string{"a/x", "z"}, s.SortedFiles())
}

func TestValidatePatterns(t *testing.T) {
	assert.NoError(t, ValidatePatterns([]string{"**/*.tmp", "logs/**"}))
	assert.ErrorIs(t, ValidatePatterns([]string{"ok", "[unclosed"}), ErrInvalidPattern)
}

func TestOptions_Excluded(t *testing.T) {
	o := Options{Exclude: []string{"**/*.tmp", "cache"}}

	assert.True(t, o.excluded("a/b/x.tmp"))
	assert.True(t, o.excluded("x.tmp"))
	assert.True(t, o.excluded("cache"))
	assert.False(t, o.excluded("cache2"))
	assert.False(t, o.excluded("a/x.txt"))
}

func TestDestPath(t *testing.T) {
	const (
		cafeNFC = "caf\u00e9"
		cafeNFD = "cafe\u0301"
		theNFC  = "th\u00e9.txt"
		theNFD  = "the\u0301.txt"
		xeNFC   = "x\u00e9.txt"
		xeNFD   = "xe\u0301.txt"
	)

	// source names are stored decomposed
	src := newSnapshot("/data/set", false)
	src.Directories[src.key(cafeNFD)] = DirMeta{}
	src.Directories[src.key(cafeNFD+"/new")] = DirMeta{}
	src.Files[src.key(cafeNFD+"/"+theNFD)] = FileMeta{}
	src.Files[src.key(cafeNFD+"/new/"+xeNFD)] = FileMeta{}
	src.Files[src.key("plain.txt")] = FileMeta{}

	require.Contains(t, src.Files, cafeNFC+"/"+theNFC)

	t.Run("absent destination follows the source spelling", func(t *testing.T) {
		dst := BuildEmpty("/out/set")

		assert.Equal(t, "/out/set/"+cafeNFD, DestPath(src, dst, cafeNFC))
		assert.Equal(t, "/out/set/"+cafeNFD+"/"+theNFD, DestPath(src, dst, cafeNFC+"/"+theNFC))
		assert.Equal(t, "/out/set/plain.txt", DestPath(src, dst, "plain.txt"))
		assert.Equal(t, "/out/set", DestPath(src, dst, ""))
	})

	t.Run("existing destination entries keep their spelling", func(t *testing.T) {
		// destination names are stored composed
		dst := newSnapshot("/out/set", false)
		dst.Directories[dst.key(cafeNFC)] = DirMeta{}
		dst.Files[dst.key(cafeNFC+"/"+theNFC)] = FileMeta{}

		assert.Equal(t, "/out/set/"+cafeNFC, DestPath(src, dst, cafeNFC))
		assert.Equal(t, "/out/set/"+cafeNFC+"/"+theNFC, DestPath(src, dst, cafeNFC+"/"+theNFC))
		assert.Equal(t, "/out/set/"+cafeNFC+"/new", DestPath(src, dst, cafeNFC+"/new"))
		assert.Equal(t, "/out/set/"+cafeNFC+"/new/"+xeNFD, DestPath(src, dst, cafeNFC+"/new/"+xeNFC))
	})
}
