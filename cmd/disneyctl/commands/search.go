package commands

import (
	"context"
	"strings"

	"github.com/spf13/cobra"
)

// search: print characters whose name matches NAME.
func searchCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "search NAME",
		Short: "Search characters by name",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), e.timeout)
			defer cancel()

			result, err := e.source.SearchByName(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			printCharacters(cmd.OutOrStdout(), result.Items)
			return nil
		},
	}
}
