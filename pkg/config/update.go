package config

import (
	"slices"
	"strings"

	"github.com/gnames/gn"
)

var enums = map[string][]string{
	"database.ssl_mode": {"disable", "require", "verify-ca", "verify-full"},
	"log.level":         {"debug", "info", "warn", "error"},
	"log.format":        {"json", "text", "tint"},
	"log.destination":   {"file", "stdout", "stderr"},
}

// Update applies options in order.
func (c *Config) Update(opts []Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// ToOptions returns options that recreate fields stored in config.yaml.
// Empty and zero fields are skipped.
func (c *Config) ToOptions() []Option {
	var res []Option
	str := func(s string, opt func(string) Option) {
		if s != "" {
			res = append(res, opt(s))
		}
	}
	num := func(i int, opt func(int) Option) {
		if i > 0 {
			res = append(res, opt(i))
		}
	}

	str(c.Database.Host, OptDatabaseHost)
	num(c.Database.Port, OptDatabasePort)
	str(c.Database.User, OptDatabaseUser)
	str(c.Database.Password, OptDatabasePassword)
	str(c.Database.Database, OptDatabaseDatabase)
	str(c.Database.SSLMode, OptDatabaseSSLMode)
	num(c.Database.BatchSize, OptDatabaseBatchSize)

	str(c.Build.LookupDir, OptBuildLookupDir)
	num(c.Build.MaxSynonymChain, OptBuildMaxSynonymChain)
	num(c.Build.FirstKey, OptBuildFirstKey)
	if c.Build.WithDatabase {
		res = append(res, OptBuildWithDatabase(true))
	}

	str(c.Log.Format, OptLogFormat)
	str(c.Log.Level, OptLogLevel)
	str(c.Log.Destination, OptLogDestination)

	num(c.JobsNumber, OptJobsNumber)
	return res
}

func isValidString(name, s string) bool {
	if s == "" {
		gn.Warn("<em>%s</em> cannot be empty, ignoring", name)
		return false
	}
	return true
}

func isValidInt(name string, i int) bool {
	if i <= 0 {
		gn.Warn("<em>%s</em> has to be positive number, ignoring %d", name, i)
		return false
	}
	return true
}

func isValidEnum(name, val string) bool {
	vals := enums[name]
	if slices.Contains(vals, val) {
		return true
	}
	gn.Warn(
		"<em>%s</em> does not support '%s', valid values: %s. Ignoring...",
		name, val, strings.Join(vals, ", "),
	)
	return false
}
