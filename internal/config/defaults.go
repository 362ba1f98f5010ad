package config

// Layer 0 of the override chain.
const (
	defaultHDFSUser       = "hdfs"
	defaultHadoopConfDir  = "/etc/hadoop/conf"
	defaultNbrThreads     = 1
	defaultLogLevel       = "warn"
	defaultBandwidthLimit = "0"
	defaultConnectTimeout = "10s"
	defaultDataTimeout    = "0"
	defaultKrb5Config     = "/etc/krb5.conf"
)

// DefaultFile returns a File holding every default. It is the starting
// point for TOML decoding and the value used when no config file exists.
func DefaultFile() *File {
	return &File{
		HDFSUser:       defaultHDFSUser,
		HadoopConfDir:  defaultHadoopConfDir,
		NbrThreads:     defaultNbrThreads,
		LogLevel:       defaultLogLevel,
		BandwidthLimit: defaultBandwidthLimit,
		ConnectTimeout: defaultConnectTimeout,
		DataTimeout:    defaultDataTimeout,
		Krb5Config:     defaultKrb5Config,
	}
}
