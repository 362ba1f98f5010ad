package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/hdfs-mirror/internal/localfs"
	"github.com/tonimelisma/hdfs-mirror/internal/webhdfs"
	"github.com/tonimelisma/hdfs-mirror/testutil"
)

// isolateEnv keeps the developer's environment and config file out of the
// command tests.
func isolateEnv(t *testing.T) {
	t.Helper()

	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	for _, k := range []string{
		"HDFS_MIRROR_CONFIG", "HADOOP_CONF_DIR", "HADOOP_USER_NAME",
		"WEBHDFS_ENDPOINT", "KRB5_CONFIG", "KRB5CCNAME",
	} {
		t.Setenv(k, "")
	}
}

// runCmd executes the root command with args and returns its stdout.
func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer

	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)

	err := cmd.Execute()

	return out.String(), err
}

func writeFile(t *testing.T, path string, data []byte, mtime int64) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
	require.NoError(t, os.Chtimes(path, time.Unix(mtime, 0), time.Unix(mtime, 0)))
}

// scenarioSource creates set/a.txt (10 bytes, mtime 1000) and
// set/b/c.txt (5 bytes, mtime 2000) and returns the set directory.
func scenarioSource(t *testing.T) string {
	t.Helper()

	dir := filepath.Join(t.TempDir(), "set")
	writeFile(t, filepath.Join(dir, "a.txt"), []byte("0123456789"), 1000)
	writeFile(t, filepath.Join(dir, "b", "c.txt"), []byte("abcde"), 2000)

	return dir
}

func newFake(t *testing.T) *testutil.FakeHDFS {
	t.Helper()

	fake := testutil.NewFakeHDFS(t)
	fake.AddDir("/out", 0o755, "hdfs", "hadoop")

	return fake
}

func TestPut_EmptyDestination(t *testing.T) {
	isolateEnv(t)

	fake := newFake(t)
	src := scenarioSource(t)

	out, err := runCmd(t, "put", "--src", src, "--dest", "/out",
		"--webhdfsEndpoint", fake.Endpoint(), "--hdfsUser", "alice", "--nbrThreads", "2")
	require.NoError(t, err)

	assert.Contains(t, out, "Operation count: 4\n")

	a, ok := fake.Node("/out/set/a.txt")
	require.True(t, ok)
	assert.Len(t, a.Data, 10)
	assert.Equal(t, int64(1000*1000), a.ModTime)
	assert.Equal(t, "alice", a.Owner)

	c, ok := fake.Node("/out/set/b/c.txt")
	require.True(t, ok)
	assert.Len(t, c.Data, 5)
	assert.Equal(t, int64(2000*1000), c.ModTime)

	assert.True(t, fake.SawUser("alice"))
}

func TestPut_CheckModeReport(t *testing.T) {
	isolateEnv(t)

	fake := newFake(t)

	out, err := runCmd(t, "put", "--src", scenarioSource(t), "--dest", "/out",
		"--webhdfsEndpoint", fake.Endpoint(), "--checkMode", "--reportFiles")
	require.NoError(t, err)

	assert.Contains(t, out, "2 directories to be created on HDFS target")
	assert.Contains(t, out, "/out/set/b")
	assert.Contains(t, out, "Operation count: 4\n")

	_, ok := fake.Node("/out/set")
	assert.False(t, ok)
}

func TestPut_StaleFile(t *testing.T) {
	isolateEnv(t)

	fake := newFake(t)
	fake.AddFile("/out/set/a.txt", []byte("oldcontent"), 999, 0o644, "hdfs", "hadoop")
	src := scenarioSource(t)

	out, err := runCmd(t, "put", "--src", src, "--dest", "/out", "--webhdfsEndpoint", fake.Endpoint(), "--report")
	require.NoError(t, err)

	assert.Contains(t, out, "1 files differs from source in HDFS target (use --force [--backup] to overwrite)")
	assert.Contains(t, out, "Operation count: 2\n")

	a, _ := fake.Node("/out/set/a.txt")
	assert.Equal(t, []byte("oldcontent"), a.Data)

	out, err = runCmd(t, "put", "--src", src, "--dest", "/out", "--webhdfsEndpoint", fake.Endpoint(), "--force")
	require.NoError(t, err)

	// b and b/c.txt were created by the first run
	assert.Contains(t, out, "Operation count: 1\n")

	a, _ = fake.Node("/out/set/a.txt")
	assert.Equal(t, []byte("0123456789"), a.Data)
	assert.Equal(t, int64(1000*1000), a.ModTime)
}

func TestGet_EmptyDestination(t *testing.T) {
	isolateEnv(t)

	fake := testutil.NewFakeHDFS(t)
	fake.AddFile("/data/set/a.txt", []byte("0123456789"), 1000, 0o644, "hdfs", "hadoop")
	fake.AddFile("/data/set/b/c.txt", []byte("abcde"), 2000, 0o644, "hdfs", "hadoop")

	dest := t.TempDir()

	out, err := runCmd(t, "get", "--src", "/data/set", "--dest", dest, "--webhdfsEndpoint", fake.Endpoint())
	require.NoError(t, err)
	assert.Contains(t, out, "Operation count: 4\n")

	info, err := localfs.Stat(filepath.Join(dest, "set", "b", "c.txt"))
	require.NoError(t, err)
	assert.Equal(t, uint64(5), info.Size)
	assert.Equal(t, int64(2000), info.ModTime)
}

func TestDiff(t *testing.T) {
	isolateEnv(t)

	fake := testutil.NewFakeHDFS(t)
	fake.AddFile("/data/set/a.txt", []byte("0123456789"), 1000, 0o644, "hdfs", "hadoop")

	out, err := runCmd(t, "diff", "--local", scenarioSource(t), "--hdfs", "/data/set",
		"--webhdfsEndpoint", fake.Endpoint())
	require.NoError(t, err)

	assert.Contains(t, out, "1 files only in local")
	assert.Contains(t, out, "Difference count: 2\n")
}

func TestPut_ConfigFile(t *testing.T) {
	isolateEnv(t)

	fake := newFake(t)

	cfgPath := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(
		"webhdfs_endpoint = \""+fake.Endpoint()+"\"\nhdfs_user = \"carol\"\nexclude = [\"b/**\", \"b\"]\n"), 0o600))

	out, err := runCmd(t, "put", "--config", cfgPath, "--src", scenarioSource(t), "--dest", "/out")
	require.NoError(t, err)

	assert.Contains(t, out, "Operation count: 2\n")
	assert.True(t, fake.SawUser("carol"))

	_, ok := fake.Node("/out/set/b")
	assert.False(t, ok)
}

func TestPut_EnvironmentEndpoint(t *testing.T) {
	isolateEnv(t)

	fake := newFake(t)
	t.Setenv("WEBHDFS_ENDPOINT", fake.Endpoint())
	t.Setenv("HADOOP_USER_NAME", "dave")

	_, err := runCmd(t, "put", "--src", scenarioSource(t), "--dest", "/out")
	require.NoError(t, err)
	assert.True(t, fake.SawUser("dave"))
}

func TestCommandErrors(t *testing.T) {
	isolateEnv(t)

	fake := newFake(t)
	src := scenarioSource(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing dest", []string{"put", "--src", src, "--webhdfsEndpoint", fake.Endpoint()}, "dest: required"},
		{"relative hdfs path", []string{"put", "--src", src, "--dest", "out", "--webhdfsEndpoint", fake.Endpoint()},
			"must be absolute"},
		{"owner conflict", []string{
			"put", "--src", src, "--dest", "/out", "--owner", "a", "--defaultOwner", "b",
			"--webhdfsEndpoint", fake.Endpoint(),
		}, "owner and defaultOwner"},
		{"absent hdfs destination", []string{"put", "--src", src, "--dest", "/nope", "--webhdfsEndpoint", fake.Endpoint()},
			"path does not exist"},
		{"no endpoint", []string{"put", "--src", src, "--dest", "/out", "--webhdfsEndpoint", "127.0.0.1:1"},
			"no usable endpoint"},
		{"bad mode", []string{"put", "--src", src, "--dest", "/out", "--mode", "rwx", "--webhdfsEndpoint", fake.Endpoint()},
			"mode"},
		{"positional args", []string{"put", src, "/out"}, "unknown command"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCmd(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestKerberos_MissingConfig(t *testing.T) {
	isolateEnv(t)

	fake := newFake(t)
	t.Setenv("KRB5_CONFIG", filepath.Join(t.TempDir(), "absent.conf"))

	_, err := runCmd(t, "put", "--src", scenarioSource(t), "--dest", "/out",
		"--webhdfsEndpoint", fake.Endpoint(), "--hdfsUser", "KERBEROS")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kerberos config")
	assert.Empty(t, fake.IssuedTokens())
}

// negotiateDoer stands in for the SPNEGO client.
type negotiateDoer struct{}

func (negotiateDoer) Do(req *http.Request) (*http.Response, error) {
	req.Header.Set("Authorization", "Negotiate ZmFrZQ==")
	return http.DefaultClient.Do(req)
}

func stubKerberos(t *testing.T) {
	t.Helper()

	orig := newKerberosDoer
	newKerberosDoer = func(webhdfs.KerberosConfig, *http.Client) (webhdfs.Doer, error) {
		return negotiateDoer{}, nil
	}

	t.Cleanup(func() { newKerberosDoer = orig })
}

func TestKerberos_TokenCanceledOnce(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(fake *testutil.FakeHDFS)
		src     func(t *testing.T) string
		wantErr string
	}{
		{
			name:  "successful run",
			setup: func(*testutil.FakeHDFS) {},
			src:   scenarioSource,
		},
		{
			name:    "missing source",
			setup:   func(*testutil.FakeHDFS) {},
			src:     func(t *testing.T) string { return filepath.Join(t.TempDir(), "gone") },
			wantErr: "path does not exist",
		},
		{
			name:    "failing upload",
			setup:   func(fake *testutil.FakeHDFS) { fake.FailOp("CREATE", "/out/set/a.txt") },
			src:     scenarioSource,
			wantErr: "a.txt",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateEnv(t)
			stubKerberos(t)

			fake := newFake(t)
			fake.RequireNegotiate = true
			tt.setup(fake)

			_, err := runCmd(t, "put", "--src", tt.src(t), "--dest", "/out",
				"--webhdfsEndpoint", fake.Endpoint(), "--hdfsUser", "KERBEROS")

			if tt.wantErr == "" {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}

			assert.Equal(t, []string{"token-1"}, fake.IssuedTokens())
			assert.Equal(t, []string{"token-1"}, fake.CanceledTokens())
		})
	}
}

func TestMirrorHelp_DescribesOperationCount(t *testing.T) {
	for _, command := range []string{"put", "get"} {
		t.Run(command, func(t *testing.T) {
			out, err := runCmd(t, command, "--help")
			require.NoError(t, err)
			assert.Contains(t, out, "Replaced files are counted only with --force.")
			assert.Contains(t, out, "Attribute fixes are counted only with --forceExt.")
		})
	}
}

func TestBootstrapLogger(t *testing.T) {
	tests := []struct {
		name                   string
		verbose, debug, quiet  bool
		enabled, disabledLevel slog.Level
	}{
		{"default", false, false, false, slog.LevelWarn, slog.LevelInfo},
		{"verbose", true, false, false, slog.LevelInfo, slog.LevelDebug},
		{"debug", false, true, false, slog.LevelDebug, slog.LevelDebug - 1},
		{"quiet", false, false, true, slog.LevelError, slog.LevelWarn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			newRootCmd() // resets the flag globals

			flagVerbose, flagDebug, flagQuiet = tt.verbose, tt.debug, tt.quiet

			t.Cleanup(func() { flagVerbose, flagDebug, flagQuiet = false, false, false })

			h := bootstrapLogger(io.Discard).Handler()
			assert.True(t, h.Enabled(context.Background(), tt.enabled))
			assert.False(t, h.Enabled(context.Background(), tt.disabledLevel))
		})
	}
}

func TestPrintCount(t *testing.T) {
	var buf bytes.Buffer

	printCount(&buf, "Operation count", 4)
	assert.Equal(t, "Operation count: 4\n", buf.String())
}

func TestShutdownContext_SignalRunsCleanup(t *testing.T) {
	called := make(chan struct{})

	ctx, stop := shutdownContext(context.Background(), slog.New(slog.NewTextHandler(io.Discard, nil)), func() {
		close(called)
	})
	defer stop()

	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGINT))

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context not canceled after SIGINT")
	}

	select {
	case <-called:
	case <-time.After(2 * time.Second):
		t.Fatal("cleanup not run after SIGINT")
	}
}

func TestShutdownContext_StopWithoutSignal(t *testing.T) {
	ctx, stop := shutdownContext(context.Background(), slog.Default(), func() {
		t.Error("cleanup must not run without a signal")
	})

	stop()
	stop()

	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}
