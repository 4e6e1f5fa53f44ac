package cli

import (
	"github.com/spf13/cobra"

	"github.com/xrmkit/xrmsoap/pkg/cli/internal/output"
)

// printResult outputs a single operation result.
//
// Contract: when --json is active, ONLY the JSON encoding of data is written
// to stdout. Human-readable prose must go to stderr or be omitted entirely.
// textFn is called only in text mode.
func printResult(cmd *cobra.Command, data any, textFn func()) error {
	if jsonOutput {
		return output.JSON(cmd.OutOrStdout(), data)
	}
	textFn()
	return nil
}
