package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	httpadapter "github.com/aretw0/switchboard/pkg/adapters/http"
	"github.com/spf13/cobra"
)

var capabilitiesCmd = &cobra.Command{
	Use:   "capabilities",
	Short: "List the capabilities the agent can call",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		infos := httpadapter.Describe(app.Engine.Registry())
		out := cmd.OutOrStdout()

		if jsonMode, _ := cmd.Flags().GetBool("json"); jsonMode {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(infos)
		}

		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tPARAMETERS\tDESCRIPTION")
		for _, info := range infos {
			params := make([]string, 0, len(info.Parameters))
			for name, typ := range info.Parameters {
				params = append(params, name+":"+typ)
			}
			sort.Strings(params)
			fmt.Fprintf(tw, "%s\t%s\t%s\n", info.Name, strings.Join(params, ", "), info.Description)
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(capabilitiesCmd)
	capabilitiesCmd.Flags().Bool("json", false, "Print as JSON")
}
