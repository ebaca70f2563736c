package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/switchboard/internal/presentation/graph"
	"github.com/aretw0/switchboard/internal/runtime"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph [query]",
	Short: "Export the workflow graph visualization",
	Long: `Outputs a Mermaid diagram (graph TD) of the support workflow.
With a query, runs one turn first and highlights the path it took.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if len(args) == 0 {
			fmt.Fprint(out, graph.GenerateMermaid(runtime.DefaultTransitions, nil))
			return nil
		}

		app, err := buildApp(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		userID, _ := cmd.Flags().GetString("user")
		state, err := app.Engine.Run(cmd.Context(), strings.Join(args, " "), userID)
		if err != nil {
			app.Logger.Warn("turn failed, showing partial path", "error", err)
		}
		fmt.Fprint(out, graph.GenerateMermaid(runtime.DefaultTransitions, graph.OverlayFromSteps(state.StepLog)))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().StringP("user", "u", "cli", "User ID attached to the turn")
}
