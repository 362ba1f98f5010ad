// Package config resolves hdfs-mirror settings through a four-layer
// override chain (defaults -> TOML config file -> environment -> CLI
// flags) into one validated, immutable Options value.
package config

import (
	"log/slog"
	"time"

	"github.com/tonimelisma/hdfs-mirror/internal/attr"
)

// File is the content of the TOML config file. Every key is optional;
// decoding starts from DefaultFile so unset keys keep their defaults.
type File struct {
	HDFSUser        string   `toml:"hdfs_user"`
	HadoopConfDir   string   `toml:"hadoop_conf_dir"`
	WebHDFSEndpoint string   `toml:"webhdfs_endpoint"`
	NbrThreads      int      `toml:"nbr_threads"`
	DirectoryMode   string   `toml:"directory_mode"`
	LogLevel        string   `toml:"log_level"`
	BandwidthLimit  string   `toml:"bandwidth_limit"`
	ConnectTimeout  string   `toml:"connect_timeout"`
	DataTimeout     string   `toml:"data_timeout"`
	Krb5Config      string   `toml:"krb5_config"`
	Krb5CCache      string   `toml:"krb5_ccache"`
	KerberosSPN     string   `toml:"kerberos_spn"`
	Exclude         []string `toml:"exclude"`
}

// Command is the subcommand being configured. It decides which side of
// the run is remote.
type Command int

// Commands.
const (
	CommandPut Command = iota
	CommandGet
	CommandDiff
)

func (c Command) String() string {
	switch c {
	case CommandGet:
		return "get"
	case CommandDiff:
		return "diff"
	default:
		return "put"
	}
}

// CLIOverrides holds the command-line flags. Pointer fields distinguish
// "not given" (nil) from an explicit value, so a flag only overrides the
// file and environment when the user actually passed it.
type CLIOverrides struct {
	ConfigPath string
	Command    Command

	// Src and Dest are local/HDFS for put, HDFS/local for get and
	// local/HDFS for diff.
	Src  string
	Dest string

	CheckMode   bool
	Report      bool
	ReportFiles bool
	Force       bool
	ForceExt    bool
	Backup      bool

	Owner         string
	Group         string
	Mode          string
	DefaultOwner  string
	DefaultGroup  string
	DefaultMode   string
	DirectoryMode *string

	NbrThreads      *int
	HDFSUser        *string
	HadoopConfDir   *string
	WebHDFSEndpoint *string
	BandwidthLimit  *string
	Exclude         []string

	Verbose bool
	Debug   bool
	Quiet   bool
}

// Options is the fully resolved configuration of one run. It is built and
// validated once by Resolve and never modified afterwards.
type Options struct {
	Command Command
	Src     string
	Dest    string

	CheckMode   bool
	Report      bool
	ReportFiles bool
	Force       bool
	ForceExt    bool
	Backup      bool

	NbrThreads int
	Policy     attr.Policy
	Exclude    []string

	// HDFSUser is empty when Kerberos is set.
	HDFSUser        string
	Kerberos        bool
	HadoopConfDir   string
	WebHDFSEndpoint string
	Krb5Config      string
	Krb5CCache      string
	KerberosSPN     string

	BandwidthLimit string
	ConnectTimeout time.Duration
	DataTimeout    time.Duration

	LogLevel   slog.Level
	ConfigPath string
}

// Local returns the local path of the run.
func (o Options) Local() string {
	if o.Command == CommandGet {
		return o.Dest
	}

	return o.Src
}

// Remote returns the HDFS path of the run.
func (o Options) Remote() string {
	if o.Command == CommandGet {
		return o.Src
	}

	return o.Dest
}
