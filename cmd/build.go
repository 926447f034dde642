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
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gnames/gn"
	"github.com/gnames/gnnub/internal/iobuild"
	"github.com/gnames/gnnub/internal/iometrics"
	"github.com/gnames/gnnub/internal/iosources"
	"github.com/gnames/gnnub/pkg/config"
	"github.com/gnames/gnnub/pkg/sources"
	"github.com/spf13/cobra"
)

// getBuildCmd returns the build command.
func getBuildCmd() *cobra.Command {
	var (
		filter       string
		metricsFile  string
		firstKey     int
		withDatabase bool
		quiet        bool
	)

	buildCmd := &cobra.Command{
		Use:   "build",
		Short: "Build the backbone from source checklists",
		Long: `Import source checklists into the backbone.

This command:
  1. Reads sources.yaml and policy.yaml
  2. Loads the backbone saved by the previous build, if any
  3. Downloads/opens SFGA files of selected sources (local or remote)
  4. Imports sources in the order of sources.yaml. Every usage is
     matched against the backbone, matched usages merge into existing
     backbone usages, unmatched ones create new usages.
  5. Finalizes and validates the backbone, saves it and rebuilds the
     lookup store

A source that fails to import is reported and skipped, the build fails
only when all sources fail. Interrupting the build keeps the previously
saved backbone intact.

Sources marked 'exclude: true' are imported only when selected
explicitly with --sources.

Examples:
  # Import all sources from sources.yaml
  gnnub build

  # Import selected sources only
  gnnub build --sources 1,3,100-200
  gnnub build -s main

  # Save source usages and mappings to PostgreSQL, write metrics
  gnnub build --with-database --metrics-file /tmp/gnnub.prom`,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := runBuild(cmd, filter, metricsFile, firstKey, withDatabase, quiet)
			if err != nil {
				gn.PrintErrorMessage(err)
			}
			return err
		},
	}

	buildCmd.Flags().StringVarP(
		&filter, "sources", "s", "",
		"sources to import: IDs, ranges, 'main' or 'exclude main' (empty = all)",
	)
	buildCmd.Flags().StringVarP(
		&metricsFile, "metrics-file", "m", "",
		"write build metrics in Prometheus text format to a file",
	)
	buildCmd.Flags().IntVarP(
		&firstKey, "first-key", "k", 0,
		"first key of a new backbone",
	)
	buildCmd.Flags().BoolVarP(
		&withDatabase, "with-database", "d", false,
		"save source usages and mappings to PostgreSQL",
	)
	buildCmd.Flags().BoolVarP(
		&quiet, "quiet", "q", false,
		"do not show progress",
	)

	return buildCmd
}

func runBuild(
	cmd *cobra.Command,
	filter string,
	metricsFile string,
	firstKey int,
	withDatabase bool,
	quiet bool,
) error {
	ctx, stop := signal.NotifyContext(
		context.Background(), os.Interrupt, syscall.SIGTERM,
	)
	defer stop()

	sc, err := iosources.New(cfg).Load()
	if err != nil {
		return err
	}

	buildOpts, err := buildOptions(cmd, sc.DataSources, filter, firstKey, withDatabase)
	if err != nil {
		return err
	}
	if len(buildOpts) > 0 {
		cfg.Update(buildOpts)
	}

	metrics := iometrics.New()
	b := iobuild.New(cfg,
		iobuild.OptSources(sc.DataSources),
		iobuild.OptMetrics(metrics),
		iobuild.OptQuiet(quiet),
	)
	res, err := b.Build(ctx)

	// metrics of a failed build are useful too
	if metricsFile != "" {
		if werr := metrics.WriteToTextfile(metricsFile); werr != nil {
			gn.PrintErrorMessage(werr)
		} else {
			slog.Info("Metrics written", "path", metricsFile)
		}
	}
	if err != nil {
		return err
	}

	slog.Info("Build finished",
		"datasets", res.Datasets,
		"failed", res.Failed,
		"nodes", res.Nodes,
	)
	return nil
}

// buildOptions converts explicitly set flags to config options.
func buildOptions(
	cmd *cobra.Command,
	dss []sources.DataSourceConfig,
	filter string,
	firstKey int,
	withDatabase bool,
) ([]config.Option, error) {
	var res []config.Option

	if cmd.Flags().Changed("sources") {
		sel, warnings, err := sources.Filter(dss, filter)
		if err != nil {
			return nil, err
		}
		for _, w := range warnings {
			gn.Warn("<warn>%s</warn>", w)
		}
		// excluded sources are kept, an explicit selection overrides
		// 'exclude: true'
		ids := make([]int, 0, len(sel))
		for _, v := range sel {
			ids = append(ids, v.ID)
		}
		res = append(res, config.OptBuildDatasetIDs(ids))
	}

	if cmd.Flags().Changed("first-key") {
		res = append(res, config.OptBuildFirstKey(firstKey))
	}

	if cmd.Flags().Changed("with-database") {
		res = append(res, config.OptBuildWithDatabase(withDatabase))
	}

	return res, nil
}
