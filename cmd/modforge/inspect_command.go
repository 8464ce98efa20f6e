package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"modforge/internal/container"
	"modforge/internal/identity"
)

type recordView struct {
	NumericID   int64  `json:"numeric_id"`
	TypeTag     int32  `json:"type_tag"`
	ScriptIndex int16  `json:"script_index"`
	Size        int    `json:"size"`
	Name        string `json:"name,omitempty"`
}

func newInspectCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "inspect [container]",
		Short: "List the records of a container with scanned identities",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := cfg.PrimaryContainerPath()
			if len(args) == 1 {
				path = args[0]
			}
			c, err := container.Load(path)
			if err != nil {
				return fmt.Errorf("load container %s: %w", path, err)
			}

			views := make([]recordView, 0, len(c.Records))
			for _, rec := range c.Records {
				view := recordView{
					NumericID:   rec.NumericID,
					TypeTag:     rec.TypeTag,
					ScriptIndex: rec.ScriptIndex,
					Size:        len(rec.Data),
				}
				if m, ok := identity.Scan(rec.Data, cfg.Compile.IdentityWindow); ok {
					view.Name = m.Name
				}
				views = append(views, view)
			}

			if jsonOut {
				return writeJSON(cmd, struct {
					Path              string       `json:"path"`
					StructuralVersion uint32       `json:"structural_version"`
					EngineVersion     string       `json:"engine_version"`
					Records           []recordView `json:"records"`
				}{path, c.StructuralVersion, c.EngineVersion, views})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (structural %d, engine %s)\n", path, c.StructuralVersion, c.EngineVersion)
			rows := make([][]string, 0, len(views))
			for _, v := range views {
				rows = append(rows, []string{
					fmt.Sprintf("%d", v.NumericID),
					fmt.Sprintf("%d", v.TypeTag),
					fmt.Sprintf("%d", v.ScriptIndex),
					fmt.Sprintf("%d", v.Size),
					v.Name,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Type", "Script", "Bytes", "Identity"},
				rows,
				[]columnAlignment{alignRight, alignRight, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit records as JSON")
	return cmd
}
