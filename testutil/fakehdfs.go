// Package testutil provides an in-memory WebHDFS server for tests. It
// depends only on the standard library so every package can use it.
package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

const (
	namenodePrefix = "/webhdfs/v1"
	datanodePrefix = "/datanode/v1"

	defaultDirPerm  = 0o755
	defaultFilePerm = 0o644
	defaultGroup    = "supergroup"
)

// FakeNode is one file or directory held by FakeHDFS.
type FakeNode struct {
	Dir     bool
	Data    []byte
	ModTime int64 // milliseconds
	Perm    uint32
	Owner   string
	Group   string
}

// FakeHDFS is a WebHDFS namenode plus datanode served by httptest. CREATE
// and OPEN redirect to a datanode path on the same server.
type FakeHDFS struct {
	Server *httptest.Server

	mu        sync.Mutex
	nodes     map[string]*FakeNode
	forbidden map[string]bool
	failing   map[string]int
	ops       []string
	users     map[string]bool

	// token state
	issued   []string
	canceled []string

	// RequireNegotiate makes token operations demand a Negotiate header.
	RequireNegotiate bool
}

// NewFakeHDFS starts a server with an empty root directory. The server is
// closed when the test ends.
func NewFakeHDFS(t *testing.T) *FakeHDFS {
	t.Helper()

	f := &FakeHDFS{
		nodes:     map[string]*FakeNode{"/": {Dir: true, Perm: defaultDirPerm, Owner: "hdfs", Group: defaultGroup}},
		forbidden: make(map[string]bool),
		failing:   make(map[string]int),
		users:     make(map[string]bool),
	}

	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Server.Close)

	return f
}

// Endpoint returns the server address as "host:port".
func (f *FakeHDFS) Endpoint() string {
	return strings.TrimPrefix(f.Server.URL, "http://")
}

// AddDir creates a directory and its missing parents.
func (f *FakeHDFS) AddDir(p string, perm uint32, owner, group string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.mkdirsLocked(clean(p), perm, owner, group)
}

// AddFile stores a file, creating missing parents. mtime is in seconds.
func (f *FakeHDFS) AddFile(p string, data []byte, mtime int64, perm uint32, owner, group string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	p = clean(p)
	f.mkdirsLocked(path.Dir(p), defaultDirPerm, owner, group)
	f.nodes[p] = &FakeNode{Data: data, ModTime: mtime * 1000, Perm: perm, Owner: owner, Group: group}
}

// Forbid makes every request on p or below it answer 403.
func (f *FakeHDFS) Forbid(p string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.forbidden[clean(p)] = true
}

// FailOp makes the given op on p answer 500 with a RemoteException.
func (f *FakeHDFS) FailOp(op, p string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.failing[op+" "+clean(p)] = http.StatusInternalServerError
}

// Node returns a copy of the node at p.
func (f *FakeHDFS) Node(p string) (FakeNode, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	n, ok := f.nodes[clean(p)]
	if !ok {
		return FakeNode{}, false
	}

	return *n, true
}

// Paths returns every stored path, sorted.
func (f *FakeHDFS) Paths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]string, 0, len(f.nodes))
	for p := range f.nodes {
		out = append(out, p)
	}

	sort.Strings(out)

	return out
}

// Ops returns the namenode operations received, as "OP /path".
func (f *FakeHDFS) Ops() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.ops...)
}

// CountOp returns how many times op was received.
func (f *FakeHDFS) CountOp(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0

	for _, o := range f.ops {
		if strings.HasPrefix(o, op+" ") {
			n++
		}
	}

	return n
}

// SawUser reports whether any request carried user.name=u.
func (f *FakeHDFS) SawUser(u string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.users[u]
}

// IssuedTokens returns the delegation tokens handed out so far.
func (f *FakeHDFS) IssuedTokens() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.issued...)
}

// CanceledTokens returns the tokens received by CANCELDELEGATIONTOKEN.
func (f *FakeHDFS) CanceledTokens() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.canceled...)
}

func clean(p string) string {
	return path.Clean("/" + p)
}

func (f *FakeHDFS) mkdirsLocked(p string, perm uint32, owner, group string) bool {
	if p == "/" {
		return true
	}

	if n, ok := f.nodes[p]; ok {
		return n.Dir
	}

	if !f.mkdirsLocked(path.Dir(p), perm, owner, group) {
		return false
	}

	f.nodes[p] = &FakeNode{Dir: true, Perm: perm, Owner: owner, Group: group, ModTime: time.Now().UnixMilli()}

	return true
}

func (f *FakeHDFS) isForbiddenLocked(p string) bool {
	for {
		if f.forbidden[p] {
			return true
		}

		if p == "/" {
			return false
		}

		p = path.Dir(p)
	}
}

type fakeStatus struct {
	PathSuffix       string `json:"pathSuffix"`
	Type             string `json:"type"`
	Length           int    `json:"length"`
	ModificationTime int64  `json:"modificationTime"`
	Permission       string `json:"permission"`
	Owner            string `json:"owner"`
	Group            string `json:"group"`
}

func statusOf(name string, n *FakeNode) fakeStatus {
	s := fakeStatus{
		PathSuffix:       name,
		Type:             "FILE",
		Length:           len(n.Data),
		ModificationTime: n.ModTime,
		Permission:       strconv.FormatUint(uint64(n.Perm), 8),
		Owner:            n.Owner,
		Group:            n.Group,
	}

	if n.Dir {
		s.Type = "DIRECTORY"
		s.Length = 0
	}

	return s
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if v != nil {
		_ = json.NewEncoder(w).Encode(v) //nolint:errcheck // test server
	}
}

func writeException(w http.ResponseWriter, code int, exception, msg string) {
	writeJSON(w, code, map[string]any{
		"RemoteException": map[string]string{
			"exception":     exception,
			"javaClassName": "org.apache.hadoop." + exception,
			"message":       msg,
		},
	})
}

func (f *FakeHDFS) serve(w http.ResponseWriter, r *http.Request) {
	switch {
	case strings.HasPrefix(r.URL.Path, datanodePrefix):
		f.serveDatanode(w, r, clean(strings.TrimPrefix(r.URL.Path, datanodePrefix)))
	case strings.HasPrefix(r.URL.Path, namenodePrefix):
		f.serveNamenode(w, r, clean(strings.TrimPrefix(r.URL.Path, namenodePrefix)))
	default:
		http.NotFound(w, r)
	}
}

func (f *FakeHDFS) redirect(w http.ResponseWriter, r *http.Request, p string) {
	loc := url.URL{Path: datanodePrefix + p, RawQuery: r.URL.RawQuery}
	w.Header().Set("Location", f.Server.URL+loc.String())
	w.WriteHeader(http.StatusTemporaryRedirect)
}

func (f *FakeHDFS) caller(q url.Values) string {
	if u := q.Get("user.name"); u != "" {
		return u
	}

	return "hdfs"
}

//nolint:gocyclo,funlen // one switch over the protocol's operations
func (f *FakeHDFS) serveNamenode(w http.ResponseWriter, r *http.Request, p string) {
	q := r.URL.Query()
	op := strings.ToUpper(q.Get("op"))

	f.mu.Lock()
	defer f.mu.Unlock()

	f.ops = append(f.ops, op+" "+p)

	if u := q.Get("user.name"); u != "" {
		f.users[u] = true
	}

	switch op {
	case "GETDELEGATIONTOKEN":
		if f.RequireNegotiate && !strings.HasPrefix(r.Header.Get("Authorization"), "Negotiate") {
			writeException(w, http.StatusUnauthorized, "SecurityException", "authentication required")
			return
		}

		tok := fmt.Sprintf("token-%d", len(f.issued)+1)
		f.issued = append(f.issued, tok)
		writeJSON(w, http.StatusOK, map[string]any{"Token": map[string]string{"urlString": tok}})

		return
	case "CANCELDELEGATIONTOKEN":
		f.canceled = append(f.canceled, q.Get("token"))
		w.WriteHeader(http.StatusOK)

		return
	}

	if code, ok := f.failing[op+" "+p]; ok {
		writeException(w, code, "IOException", "injected failure")
		return
	}

	if f.isForbiddenLocked(p) {
		writeException(w, http.StatusForbidden, "AccessControlException", "Permission denied: "+p)
		return
	}

	n, exists := f.nodes[p]

	switch op {
	case "GETFILESTATUS":
		if !exists {
			writeException(w, http.StatusNotFound, "FileNotFoundException", "File does not exist: "+p)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"FileStatus": statusOf("", n)})

	case "LISTSTATUS":
		if !exists {
			writeException(w, http.StatusNotFound, "FileNotFoundException", "File "+p+" does not exist.")
			return
		}

		entries := []fakeStatus{}

		if !n.Dir {
			entries = append(entries, statusOf("", n))
		} else {
			for child, cn := range f.nodes {
				if child != "/" && path.Dir(child) == p {
					entries = append(entries, statusOf(path.Base(child), cn))
				}
			}

			sort.Slice(entries, func(i, j int) bool { return entries[i].PathSuffix < entries[j].PathSuffix })
		}

		writeJSON(w, http.StatusOK, map[string]any{"FileStatuses": map[string]any{"FileStatus": entries}})

	case "MKDIRS":
		perm := uint32(defaultDirPerm)

		if s := q.Get("permission"); s != "" {
			v, err := strconv.ParseUint(s, 8, 32)
			if err != nil {
				writeException(w, http.StatusBadRequest, "IllegalArgumentException", "bad permission "+s)
				return
			}

			perm = uint32(v)
		}

		ok := f.mkdirsLocked(p, perm, f.caller(q), defaultGroup)
		writeJSON(w, http.StatusOK, map[string]bool{"boolean": ok})

	case "CREATE":
		if exists && (n.Dir || q.Get("overwrite") != "true") {
			writeException(w, http.StatusForbidden, "FileAlreadyExistsException", p+" already exists")
			return
		}

		f.redirect(w, r, p)

	case "OPEN":
		if !exists || n.Dir {
			writeException(w, http.StatusNotFound, "FileNotFoundException", "File does not exist: "+p)
			return
		}

		f.redirect(w, r, p)

	case "RENAME":
		dst := clean(q.Get("destination"))
		if !exists {
			writeJSON(w, http.StatusOK, map[string]bool{"boolean": false})
			return
		}

		if _, taken := f.nodes[dst]; taken {
			writeJSON(w, http.StatusOK, map[string]bool{"boolean": false})
			return
		}

		moved := make(map[string]*FakeNode)

		for old, node := range f.nodes {
			if old == p || strings.HasPrefix(old, p+"/") {
				moved[dst+strings.TrimPrefix(old, p)] = node
				delete(f.nodes, old)
			}
		}

		for np, node := range moved {
			f.nodes[np] = node
		}

		writeJSON(w, http.StatusOK, map[string]bool{"boolean": true})

	case "SETOWNER", "SETPERMISSION", "SETTIMES":
		if !exists {
			writeException(w, http.StatusNotFound, "FileNotFoundException", "File does not exist: "+p)
			return
		}

		f.setAttrLocked(w, op, q, n)

	default:
		writeException(w, http.StatusBadRequest, "IllegalArgumentException", "Invalid value for webhdfs parameter \"op\": "+op)
	}
}

func (f *FakeHDFS) setAttrLocked(w http.ResponseWriter, op string, q url.Values, n *FakeNode) {
	switch op {
	case "SETOWNER":
		if o := q.Get("owner"); o != "" {
			n.Owner = o
		}

		if g := q.Get("group"); g != "" {
			n.Group = g
		}
	case "SETPERMISSION":
		v, err := strconv.ParseUint(q.Get("permission"), 8, 32)
		if err != nil {
			writeException(w, http.StatusBadRequest, "IllegalArgumentException", "bad permission")
			return
		}

		n.Perm = uint32(v)
	case "SETTIMES":
		if ms, err := strconv.ParseInt(q.Get("modificationtime"), 10, 64); err == nil && ms != -1 {
			n.ModTime = ms
		}
	}

	w.WriteHeader(http.StatusOK)
}

func (f *FakeHDFS) serveDatanode(w http.ResponseWriter, r *http.Request, p string) {
	q := r.URL.Query()

	switch r.Method {
	case http.MethodPut:
		data, err := io.ReadAll(r.Body)
		if err != nil {
			writeException(w, http.StatusInternalServerError, "IOException", err.Error())
			return
		}

		f.mu.Lock()
		owner := f.caller(q)
		f.mkdirsLocked(path.Dir(p), defaultDirPerm, owner, defaultGroup)
		f.nodes[p] = &FakeNode{
			Data:    data,
			ModTime: time.Now().UnixMilli(),
			Perm:    defaultFilePerm,
			Owner:   owner,
			Group:   defaultGroup,
		}
		f.mu.Unlock()

		w.Header().Set("Location", "hdfs://fake"+p)
		w.WriteHeader(http.StatusCreated)

	case http.MethodGet:
		f.mu.Lock()
		n, ok := f.nodes[p]

		var data []byte
		if ok {
			data = append([]byte(nil), n.Data...)
		}
		f.mu.Unlock()

		if !ok {
			writeException(w, http.StatusNotFound, "FileNotFoundException", p)
			return
		}

		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write(data) //nolint:errcheck // test server

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}
