/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/carverauto/netinventory/pkg/config"
	"github.com/carverauto/netinventory/pkg/lifecycle"
	"github.com/carverauto/netinventory/pkg/logger"
	"github.com/carverauto/netinventory/pkg/models"
	"github.com/carverauto/netinventory/pkg/pipeline"
	"github.com/carverauto/netinventory/pkg/probe"
)

const defaultConfigPath = "optionsconfig.yaml"

var errUnknownKind = errors.New("unknown source kind")

type rootOptions struct {
	configPath string
	debug      bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:          "netinventory",
		Short:        "Network inventory import, liveness probing and availability dashboard",
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", defaultConfigPath, "path to the configuration file")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")

	root.AddCommand(
		newImportCmd(opts),
		newProbeCmd(opts),
		newDashboardCmd(opts),
		newRunCmd(opts),
	)

	return root
}

func newImportCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import [kind...]",
		Short: "Import device inventories into the store",
		Long: "Import device inventories from the configured management servers. " +
			"Kinds: " + kindList() + ". With no kinds every configured kind is imported.",
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds, err := parseKinds(args)
			if err != nil {
				return err
			}

			return withPipeline(cmd, opts, func(ctx context.Context, p *pipeline.Pipeline, _ logger.Logger) error {
				summary, err := p.Importer.Run(ctx, kinds...)
				if summary != nil {
					printSummary(cmd.OutOrStdout(), summary)
				}

				return err
			})
		},
	}
}

func newProbeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Probe every monitored device once and record the results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withPipeline(cmd, opts, func(ctx context.Context, p *pipeline.Pipeline, log logger.Logger) error {
				res, err := p.Monitor.RunCycle(ctx)
				if errors.Is(err, probe.ErrEmptyMonitorList) {
					log.Warn().Msg("No monitored devices; run import first")

					return nil
				}

				if err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "probed %d: %d up, %d down, %d rejected\n",
					res.Probed, len(res.Reduction.Up), len(res.Reduction.Down), len(res.Reduction.Rejected))

				return nil
			})
		},
	}
}

func newDashboardCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Render the availability dashboard from the stored state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withPipeline(cmd, opts, func(ctx context.Context, p *pipeline.Pipeline, _ logger.Logger) error {
				report, err := p.Reporter.Publish(ctx)
				if err != nil {
					return err
				}

				c := report.Counts
				fmt.Fprintf(cmd.OutOrStdout(), "up %d, latent %d, dropping %d, down %d\n", c.Up, c.Latent, c.Dropping, c.Down)

				return nil
			})
		},
	}
}

func newRunCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Import, probe and publish the dashboard in one pass",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withPipeline(cmd, opts, func(ctx context.Context, p *pipeline.Pipeline, _ logger.Logger) error {
				return p.RunAll(ctx)
			})
		},
	}
}

// withPipeline loads the configuration, builds the pipeline, runs fn and
// tears everything down. SIGINT and SIGTERM cancel fn's context.
func withPipeline(cmd *cobra.Command, opts *rootOptions, fn func(context.Context, *pipeline.Pipeline, logger.Logger) error) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bootCfg := logger.DefaultConfig()
	bootCfg.Debug = bootCfg.Debug || opts.debug

	bootLog, err := lifecycle.CreateComponentLogger("config", bootCfg)
	if err != nil {
		return err
	}

	var cfg pipeline.Config

	if err := config.NewConfig(bootLog).LoadAndValidate(ctx, opts.configPath, &cfg); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logCfg := cfg.Log
	if logCfg == nil {
		logCfg = bootCfg
	}

	if opts.debug {
		logCfg.Debug = true
	}

	log, err := lifecycle.CreateComponentLogger("netinventory", logCfg)
	if err != nil {
		return err
	}

	p, err := pipeline.New(ctx, &cfg, log)
	if err != nil {
		return fmt.Errorf("failed to start pipeline: %w", err)
	}

	runErr := fn(ctx, p, log)

	if err := p.Close(context.WithoutCancel(ctx)); err != nil {
		log.Warn().Err(err).Msg("Shutdown did not complete cleanly")
	}

	if runErr != nil {
		log.Error().Err(runErr).Str("command", cmd.Name()).Msg("Command failed")
	}

	return runErr
}

func parseKinds(args []string) ([]models.SourceKind, error) {
	kinds := make([]models.SourceKind, 0, len(args))

	for _, arg := range args {
		kind := models.SourceKind(strings.ToLower(arg))
		if !kind.Valid() {
			return nil, fmt.Errorf("%w: %q (expected one of %s)", errUnknownKind, arg, kindList())
		}

		kinds = append(kinds, kind)
	}

	return kinds, nil
}

func kindList() string {
	all := models.AllSourceKinds()
	names := make([]string, len(all))

	for i, k := range all {
		names[i] = string(k)
	}

	return strings.Join(names, ", ")
}

func printSummary(w io.Writer, summary *pipeline.ImportSummary) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, "KIND\tSOURCE\tHOST\tFETCHED\tAFFECTED\tSTATUS")

	for i := range summary.Results {
		r := &summary.Results[i]

		status := "ok"
		if r.Err != nil {
			status = r.Err.Error()
		}

		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n", r.Kind, r.Source, r.Host, r.Fetched, r.Affected, status)
	}

	_ = tw.Flush()

	fmt.Fprintf(w, "%d servers, %d failed, %d rows affected\n", len(summary.Results), summary.Failed(), summary.Affected())
}
