package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/aretw0/switchboard"
	"github.com/aretw0/switchboard/internal/presentation/graph"
	"github.com/aretw0/switchboard/internal/presentation/tui"
	"github.com/aretw0/switchboard/internal/runtime"
	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/runner"
	"github.com/spf13/cobra"
)

var askCmd = &cobra.Command{
	Use:   "ask [query]",
	Short: "Ask the agent a question",
	Long: `With a query argument, runs a single turn and prints the reply.
Without one, starts an interactive session on stdin. Ctrl+C interrupts the
running turn; type 'exit' or send EOF to leave.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		app, err := buildApp(ctx, cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		userID, _ := cmd.Flags().GetString("user")
		jsonMode, _ := cmd.Flags().GetBool("json")
		showGraph, _ := cmd.Flags().GetBool("graph")
		out := cmd.OutOrStdout()

		limits := inputLimits(app.Config)
		if err := limits.CheckUserID(userID); err != nil {
			return err
		}

		if len(args) > 0 {
			query, err := limits.CleanQuery(strings.Join(args, " "))
			if err != nil {
				return err
			}

			state, runErr := app.Engine.Run(ctx, query, userID)
			reply := domain.TurnReply{Response: state.Response, TurnID: state.TurnID, Escalated: state.NeedsEscalation}
			switch {
			case runErr != nil:
				app.Logger.Error("turn failed", "error", runErr)
				reply.Response = switchboard.ErrorResponse
			case strings.TrimSpace(reply.Response) == "":
				reply.Response = switchboard.NoResponse
			}

			if jsonMode {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(reply); err != nil {
					return err
				}
			} else {
				var opts []runner.TextHandlerOption
				if r := tui.NewRenderer(os.Stdout); r != nil {
					opts = append(opts, runner.WithTextHandlerRenderer(r))
				}
				if err := runner.NewTextHandler(nil, out, opts...).Reply(ctx, reply); err != nil {
					return err
				}
			}
			if showGraph {
				fmt.Fprint(out, graph.GenerateMermaid(runtime.DefaultTransitions, graph.OverlayFromSteps(state.StepLog)))
			}
			return runErr
		}

		var handler runner.IOHandler
		if jsonMode {
			handler = runner.NewJSONHandler(os.Stdin, out)
		} else {
			var opts []runner.TextHandlerOption
			if r := tui.NewRenderer(os.Stdout); r != nil {
				opts = append(opts, runner.WithTextHandlerRenderer(r))
			}
			if tui.IsTerminal(os.Stdout) {
				tui.PrintBanner(out, switchboard.Version)
			}
			handler = runner.NewTextHandler(os.Stdin, out, opts...)
		}

		r := runner.NewRunner(
			runner.WithHandler(handler),
			runner.WithLogger(app.Logger),
			runner.WithUserID(userID),
			runner.WithTurnTimeout(app.Config.Timeouts.Turn),
			runner.WithLimits(limits),
			runner.WithInterrupts(),
		)
		return r.Run(ctx, app.Engine)
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringP("user", "u", runner.DefaultUserID, "User ID attached to the turns")
	askCmd.Flags().Bool("json", false, "Read and write JSON instead of text")
	askCmd.Flags().Bool("graph", false, "Print the workflow graph with the path taken (one-shot only)")
}
