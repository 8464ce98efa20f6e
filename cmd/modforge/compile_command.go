package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"modforge/internal/catalog"
	"modforge/internal/compile"
	"modforge/internal/logging"
	"modforge/internal/patchset"
	"modforge/internal/probe"
)

func newCompileCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	var layoutsPath string

	cmd := &cobra.Command{
		Use:   "compile <merged-set.json>",
		Short: "Run a full mutation pass and write the output bundle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("initialize logging: %w", err)
			}

			set, err := patchset.Load(args[0])
			if err != nil {
				return err
			}

			registry := probe.NewRegistry()
			descPath := strings.TrimSpace(layoutsPath)
			if descPath == "" {
				descPath = cfg.Compile.LayoutsPath
			}
			if descPath != "" {
				descs, err := probe.LoadDescriptors(descPath)
				if err != nil {
					return err
				}
				for _, desc := range descs {
					registry.Register(desc)
				}
			}

			opts := []compile.Option{compile.WithRegistry(registry)}
			if cfg.Catalog.Enabled {
				store, err := catalog.Open(cfg)
				if err != nil {
					logger.Warn("scan catalog unavailable; rescanning every pass", logging.Error(err))
				} else {
					defer store.Close()
					opts = append(opts, compile.WithCatalog(store))
				}
			}

			res := compile.New(cfg, logger, set, opts...).Run(cmd.Context())
			if jsonOut {
				if err := writeJSON(cmd, res); err != nil {
					return err
				}
			} else {
				printResult(cmd, res)
			}
			if !res.Success {
				return fmt.Errorf("compile failed in stage %s: %s", res.Stage, res.Message)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the result as JSON")
	cmd.Flags().StringVar(&layoutsPath, "layouts", "", "Extra layout descriptor file (overrides config)")
	return cmd
}

func printResult(cmd *cobra.Command, res *compile.Result) {
	out := cmd.OutOrStdout()
	rows := [][]string{
		{"cloned", fmt.Sprintf("%d", res.Counts.Cloned)},
		{"patched", fmt.Sprintf("%d", res.Counts.Patched)},
		{"media built", fmt.Sprintf("%d", res.Counts.MediaBuilt)},
		{"index replaced", fmt.Sprintf("%d", res.Counts.IndexReplaced)},
		{"index inserted", fmt.Sprintf("%d", res.Counts.IndexInserted)},
	}
	fmt.Fprintln(out, renderTable([]string{"Mutation", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
	for _, warning := range res.Warnings {
		fmt.Fprintf(out, "warning: %s\n", warning)
	}
	if res.FallbackManifest != "" {
		fmt.Fprintf(out, "loose assets written; manifest at %s\n", res.FallbackManifest)
	}
	if res.Success {
		fmt.Fprintf(out, "%s\n", res.Message)
	}
}
