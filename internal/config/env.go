package config

import (
	"log/slog"
	"os"
)

// Environment variables consulted between the config file and the flags.
const (
	EnvConfig          = "HDFS_MIRROR_CONFIG"
	EnvHadoopConfDir   = "HADOOP_CONF_DIR"
	EnvHadoopUserName  = "HADOOP_USER_NAME"
	EnvWebHDFSEndpoint = "WEBHDFS_ENDPOINT"
	EnvKrb5Config      = "KRB5_CONFIG"
	EnvKrb5CCache      = "KRB5CCNAME"
)

// EnvOverrides holds the values found in the environment. Empty means unset.
type EnvOverrides struct {
	ConfigPath      string
	HadoopConfDir   string
	HDFSUser        string
	WebHDFSEndpoint string
	Krb5Config      string
	Krb5CCache      string
}

// ReadEnvOverrides reads the environment. It does not touch any config.
func ReadEnvOverrides(logger *slog.Logger) EnvOverrides {
	env := EnvOverrides{
		ConfigPath:      os.Getenv(EnvConfig),
		HadoopConfDir:   os.Getenv(EnvHadoopConfDir),
		HDFSUser:        os.Getenv(EnvHadoopUserName),
		WebHDFSEndpoint: os.Getenv(EnvWebHDFSEndpoint),
		Krb5Config:      os.Getenv(EnvKrb5Config),
		Krb5CCache:      os.Getenv(EnvKrb5CCache),
	}

	if logger != nil {
		logger.Debug("read environment overrides",
			slog.String("config_path", env.ConfigPath),
			slog.String("hadoop_conf_dir", env.HadoopConfDir),
			slog.String("hdfs_user", env.HDFSUser),
			slog.String("webhdfs_endpoint", env.WebHDFSEndpoint),
		)
	}

	return env
}
