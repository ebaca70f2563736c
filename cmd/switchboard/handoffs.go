package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/aretw0/switchboard/internal/cli"
	"github.com/spf13/cobra"
)

var handoffsCmd = &cobra.Command{
	Use:   "handoffs",
	Short: "List pending escalation tickets",
	Long: `Lists the tickets waiting in the handoff queue, oldest first.
Only the redis driver keeps tickets across processes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		if app.Queue == nil {
			return fmt.Errorf("%w: %s", cli.ErrNoQueue, app.Config.Handoff.Driver)
		}

		limit, _ := cmd.Flags().GetInt("limit")
		tickets, err := app.Queue.Pending(cmd.Context(), limit)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if jsonMode, _ := cmd.Flags().GetBool("json"); jsonMode {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(tickets)
		}
		if len(tickets) == 0 {
			fmt.Fprintln(out, "No pending handoffs.")
			return nil
		}

		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tCREATED\tUSER\tREASON\tQUERY")
		for _, t := range tickets {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", t.ID, t.CreatedAt.Format(time.RFC3339), t.UserID, t.Reason, t.Query)
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(handoffsCmd)
	handoffsCmd.Flags().Int("limit", 20, "Maximum number of tickets to show (0 for all)")
	handoffsCmd.Flags().Bool("json", false, "Print as JSON")
}
