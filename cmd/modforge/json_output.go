package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

// writeJSON serves the --json view of a command: v indented on the
// command's stdout, one document per invocation.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
