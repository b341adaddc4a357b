package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// list: print one page of the character list.
func listCmd(e *env) *cobra.Command {
	var page int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print one page of characters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if page < 1 {
				return fmt.Errorf("--page must be 1 or greater")
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), e.timeout)
			defer cancel()

			result, err := e.source.ListCharacters(ctx, page, e.cfg.PageSize)
			if err != nil {
				return err
			}
			printCharacters(cmd.OutOrStdout(), result.Items)
			fmt.Fprintf(cmd.OutOrStdout(), "ページ %d / %d\n", page, result.TotalPages)
			return nil
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	return cmd
}
