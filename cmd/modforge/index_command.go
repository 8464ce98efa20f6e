package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"modforge/internal/container"
	"modforge/internal/globalindex"
)

func newIndexCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "index [container]",
		Short: "Dump the entries of the global index container",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := cfg.GlobalIndexPath()
			if len(args) == 1 {
				path = args[0]
			}
			c, err := container.Load(path)
			if err != nil {
				return fmt.Errorf("load global index container %s: %w", path, err)
			}
			recs := c.RecordsByType(container.TypeGlobalIndex)
			if len(recs) == 0 {
				return fmt.Errorf("container %s holds no global index record", path)
			}
			table, err := globalindex.Parse(recs[0].Data)
			if err != nil {
				return err
			}

			if jsonOut {
				type entryView struct {
					Path       string `json:"path"`
					OriginType int32  `json:"origin_type"`
					NumericID  int64  `json:"numeric_id"`
				}
				views := make([]entryView, 0, len(table.Entries))
				for _, e := range table.Entries {
					views = append(views, entryView{e.Path, e.OriginType, e.NumericID})
				}
				return writeJSON(cmd, struct {
					Path      string      `json:"path"`
					Entries   []entryView `json:"entries"`
					TailBytes int         `json:"tail_bytes"`
				}{path, views, len(table.Tail)})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%d entries, %d trailing bytes)\n", path, len(table.Entries), len(table.Tail))
			rows := make([][]string, 0, len(table.Entries))
			for _, e := range table.Entries {
				rows = append(rows, []string{
					e.Path,
					fmt.Sprintf("%d", e.OriginType),
					fmt.Sprintf("%d", e.NumericID),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Path", "Origin", "ID"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the index as JSON")
	return cmd
}
