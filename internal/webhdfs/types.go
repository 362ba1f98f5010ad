package webhdfs

import (
	"github.com/tonimelisma/hdfs-mirror/internal/attr"
)

// EntryType classifies a path on the remote filesystem.
type EntryType int

// Entry types. NotFound and NoAccess are results of a lookup, not kinds of
// stored objects.
const (
	TypeNotFound EntryType = iota
	TypeNoAccess
	TypeFile
	TypeDirectory
)

func (t EntryType) String() string {
	switch t {
	case TypeNotFound:
		return "NOT_FOUND"
	case TypeNoAccess:
		return "NO_ACCESS"
	case TypeFile:
		return "FILE"
	case TypeDirectory:
		return "DIRECTORY"
	default:
		return "UNKNOWN"
	}
}

// ListStatus is the outcome of a directory listing.
type ListStatus int

// Listing outcomes.
const (
	ListOK ListStatus = iota
	ListNotFound
	ListNoAccess
)

// Entry is the normalized form of a WebHDFS FileStatus. GETFILESTATUS and
// LISTSTATUS both decode into it, so every caller sees the same fields.
// ModTime is in whole seconds, truncated from the server's milliseconds.
type Entry struct {
	Name    string // pathSuffix; empty for GetStatus results
	Type    EntryType
	Size    uint64
	ModTime int64
	Mode    attr.Mode
	Owner   string
	Group   string
}

// Listing is the content of one remote directory.
type Listing struct {
	Status      ListStatus
	Files       []Entry
	Directories []Entry
}

// fileStatusJSON mirrors the WebHDFS FileStatus JSON object.
type fileStatusJSON struct {
	PathSuffix       string `json:"pathSuffix"`
	Type             string `json:"type"`
	Length           uint64 `json:"length"`
	ModificationTime int64  `json:"modificationTime"`
	Permission       string `json:"permission"`
	Owner            string `json:"owner"`
	Group            string `json:"group"`
}

type fileStatusResponse struct {
	FileStatus fileStatusJSON `json:"FileStatus"`
}

type listStatusResponse struct {
	FileStatuses struct {
		FileStatus []fileStatusJSON `json:"FileStatus"`
	} `json:"FileStatuses"`
}

type booleanResponse struct {
	Boolean bool `json:"boolean"`
}

type tokenResponse struct {
	Token struct {
		URLString string `json:"urlString"`
	} `json:"Token"`
}

// millisPerSecond converts WebHDFS millisecond timestamps.
const millisPerSecond = 1000
