package config

import (
	"strings"
)

// Option changes a Config.
type Option func(*Config)

func OptDatabaseHost(s string) Option {
	return stringOpt("database.host", s, func(c *Config, v string) {
		c.Database.Host = v
	})
}

func OptDatabasePort(i int) Option {
	return intOpt("database.port", i, func(c *Config, v int) {
		c.Database.Port = v
	})
}

func OptDatabaseUser(s string) Option {
	return stringOpt("database.user", s, func(c *Config, v string) {
		c.Database.User = v
	})
}

// OptDatabasePassword sets the password. Unlike other strings it is not
// trimmed.
func OptDatabasePassword(s string) Option {
	return func(c *Config) {
		if isValidString("database.password", s) {
			c.Database.Password = s
		}
	}
}

func OptDatabaseDatabase(s string) Option {
	return stringOpt("database.database", s, func(c *Config, v string) {
		c.Database.Database = v
	})
}

func OptDatabaseSSLMode(s string) Option {
	return enumOpt("database.ssl_mode", s, func(c *Config, v string) {
		c.Database.SSLMode = v
	})
}

func OptDatabaseBatchSize(i int) Option {
	return intOpt("database.batch_size", i, func(c *Config, v int) {
		c.Database.BatchSize = v
	})
}

func OptBuildLookupDir(s string) Option {
	return stringOpt("build.lookup_dir", s, func(c *Config, v string) {
		c.Build.LookupDir = v
	})
}

func OptBuildMaxSynonymChain(i int) Option {
	return intOpt("build.max_synonym_chain", i, func(c *Config, v int) {
		c.Build.MaxSynonymChain = v
	})
}

func OptBuildFirstKey(i int) Option {
	return intOpt("build.first_key", i, func(c *Config, v int) {
		c.Build.FirstKey = v
	})
}

func OptBuildWithDatabase(b bool) Option {
	return func(c *Config) {
		c.Build.WithDatabase = b
	}
}

// OptBuildDatasetIDs selects datasets to import. An empty slice keeps
// the current selection.
func OptBuildDatasetIDs(ii []int) Option {
	return func(c *Config) {
		if len(ii) > 0 {
			c.Build.DatasetIDs = ii
		}
	}
}

func OptLogLevel(s string) Option {
	return enumOpt("log.level", s, func(c *Config, v string) {
		c.Log.Level = v
	})
}

func OptLogFormat(s string) Option {
	return enumOpt("log.format", s, func(c *Config, v string) {
		c.Log.Format = v
	})
}

func OptLogDestination(s string) Option {
	return enumOpt("log.destination", s, func(c *Config, v string) {
		c.Log.Destination = v
	})
}

func OptJobsNumber(i int) Option {
	return intOpt("jobs_number", i, func(c *Config, v int) {
		c.JobsNumber = v
	})
}

func OptHomeDir(s string) Option {
	return stringOpt("home directory", s, func(c *Config, v string) {
		c.HomeDir = v
	})
}

func stringOpt(name, s string, set func(*Config, string)) Option {
	s = strings.TrimSpace(s)
	return func(c *Config) {
		if isValidString(name, s) {
			set(c, s)
		}
	}
}

func intOpt(name string, i int, set func(*Config, int)) Option {
	return func(c *Config) {
		if isValidInt(name, i) {
			set(c, i)
		}
	}
}

// enumOpt accepts values case-insensitively and stores them lower-cased.
func enumOpt(name, s string, set func(*Config, string)) Option {
	s = strings.ToLower(strings.TrimSpace(s))
	return func(c *Config) {
		if isValidEnum(name, s) {
			set(c, s)
		}
	}
}
