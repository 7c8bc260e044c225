package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/inkdash/inkdash/history"
	"github.com/inkdash/inkdash/internal/config"
)

func newHistoryCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent refresh cycle outcomes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printHistory(cmd, limit)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", config.Int("INKDASH_HISTORY_LIMIT", 20), "maximum rows to list")
	return cmd
}

func printHistory(cmd *cobra.Command, limit int) error {
	outcomes, err := history.ListRecent(cmd.Context(), "", limit)
	if err != nil {
		return err
	}
	if len(outcomes) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no refresh history")
		return nil
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tSTATUS\tPLAYLIST\tPLUGIN\tSTEP\tERROR")
	for _, o := range outcomes {
		errText := o.Error
		if len(errText) > 60 {
			errText = errText[:57] + "..."
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			o.StartedAt.Local().Format(time.DateTime),
			o.Status, o.PlaylistID, o.PluginID, o.Step, errText)
	}
	return w.Flush()
}
