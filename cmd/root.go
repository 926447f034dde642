/*
Copyright © 2025 Dmitry Mozzherin <dmozzherin@gmail.com>

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/gnames/gn"
	"github.com/gnames/gnnub/internal/iofs"
	"github.com/gnames/gnnub/internal/iologger"
	app "github.com/gnames/gnnub/pkg"
	"github.com/gnames/gnnub/pkg/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfg *config.Config

// getRootCmd returns the root command with all subcommands attached.
func getRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Version: fmt.Sprintf("version: %s\nbuild:   %s", app.Version, app.Build),
		Use:     "gnnub",
		Short:   "GNnub builds a nub backbone taxonomy from SFGA checklists",
		Long: `GNnub merges source checklists into a single backbone taxonomy, the
"nub". Sources are read from SFGA files in the order of sources.yaml, the
first source lays down the skeleton and later sources add missing names.

Backbone keys are stable between builds: a name that survives a rebuild
keeps its key. The backbone is saved to ~/.local/share/gnnub/backbone.sqlite,
a key-value lookup store of backbone names is kept in the cache directory.

Commands:
  build:  import sources into the backbone
  match:  find the backbone usage of a name
  lookup: list backbone names by a canonical name prefix

Configuration files are in ~/.config/gnnub:
  config.yaml   general settings
  sources.yaml  source checklists in priority order
  policy.yaml   blacklist and homonym exclusions

Environment variables with GNNUB_ prefix override config.yaml, for example
GNNUB_DATABASE_HOST or GNNUB_BUILD_FIRST_KEY.`,
		PersistentPreRunE: bootstrap,
		RunE:              runRoot,
		SilenceErrors:     true,
		SilenceUsage:      true,
	}

	// Remove the automatic "gnnub version" prefix
	rootCmd.SetVersionTemplate("{{.Version}}\n")

	// Override version flag to use -V (consistent with other gn projects)
	rootCmd.Flags().BoolP("version", "V", false, "version for gnnub")

	rootCmd.AddCommand(
		getBuildCmd(),
		getMatchCmd(),
		getLookupCmd(),
	)
	return rootCmd
}

// Execute runs the root command. This is called by main.main().
func Execute() {
	if err := getRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func bootstrap(cmd *cobra.Command, args []string) error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	if err = iofs.EnsureDirs(homeDir); err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	// Initialize logging with hardcoded defaults
	// Will be reconfigured later with user's config settings
	defaultLog := config.LogConfig{
		Format:      "json",
		Level:       "info",
		Destination: "file",
	}
	if err = iologger.Init(config.LogDir(homeDir), defaultLog, false); err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	for _, ensure := range []func(string) error{
		iofs.EnsureConfigFile,
		iofs.EnsureSourcesFile,
		iofs.EnsurePolicyFile,
	} {
		if err = ensure(homeDir); err != nil {
			gn.PrintErrorMessage(err)
			return err
		}
	}

	var cfgViper *config.Config
	if cfgViper, err = initConfig(homeDir); err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	cfg = config.New()
	cfg.Update(cfgViper.ToOptions())

	// Set HomeDir after config is loaded
	cfg.Update([]config.Option{config.OptHomeDir(homeDir)})

	// Reconfigure logging with user's settings, keep the lines written so far
	if err = iologger.Init(config.LogDir(homeDir), cfg.Log, true); err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	slog.Info("Configuration loaded",
		"config_file", config.ConfigFilePath(homeDir),
		"command", cmd.Name(),
	)
	return nil
}

func runRoot(cmd *cobra.Command, args []string) error {
	gn.Info(
		"Configuration files are available at <em>%s</em>",
		config.ConfigDir(cfg.HomeDir),
	)
	return cmd.Help()
}

func initConfig(home string) (*config.Config, error) {
	var err error
	cfgPath := config.ConfigFilePath(home)
	v := viper.New()
	v.SetConfigFile(cfgPath)

	initEnvVars(v)

	if err = v.ReadInConfig(); err != nil {
		return nil, iofs.ReadFileError(cfgPath, err)
	}

	var res config.Config
	if err = v.Unmarshal(&res); err != nil {
		return nil, iofs.ReadFileError(cfgPath, err)
	}

	return &res, nil
}

func initEnvVars(v *viper.Viper) {
	// We bind variables manually so it is clear which of them are allowed.
	// They match the fields of config.ToOptions(), i.e. the persistent
	// configuration that can be stored in config.yaml.
	v.SetEnvPrefix("GNNUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Database configuration
	v.BindEnv("database.host", "GNNUB_DATABASE_HOST")
	v.BindEnv("database.port", "GNNUB_DATABASE_PORT")
	v.BindEnv("database.user", "GNNUB_DATABASE_USER")
	v.BindEnv("database.password", "GNNUB_DATABASE_PASSWORD")
	v.BindEnv("database.database", "GNNUB_DATABASE_DATABASE")
	v.BindEnv("database.ssl_mode", "GNNUB_DATABASE_SSL_MODE")
	v.BindEnv("database.batch_size", "GNNUB_DATABASE_BATCH_SIZE")

	// Build configuration
	v.BindEnv("build.lookup_dir", "GNNUB_BUILD_LOOKUP_DIR")
	v.BindEnv("build.max_synonym_chain", "GNNUB_BUILD_MAX_SYNONYM_CHAIN")
	v.BindEnv("build.first_key", "GNNUB_BUILD_FIRST_KEY")
	v.BindEnv("build.with_database", "GNNUB_BUILD_WITH_DATABASE")

	// Log configuration
	v.BindEnv("log.level", "GNNUB_LOG_LEVEL")
	v.BindEnv("log.format", "GNNUB_LOG_FORMAT")
	v.BindEnv("log.destination", "GNNUB_LOG_DESTINATION")

	// General configuration
	v.BindEnv("jobs_number", "GNNUB_JOBS_NUMBER")

	v.AutomaticEnv()
}
