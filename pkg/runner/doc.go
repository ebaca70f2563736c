/*
Package runner implements the interactive chat loop used by the CLI.

Each line read from the IOHandler is checked against the configured Limits and handed to a TurnHandler as
one independent turn; the reply is written back through the same handler.
With WithInterrupts, Ctrl+C cancels the turn in flight without ending the session.

# Usage

	r := runner.NewRunner(
		runner.WithUserID("cli"),
		runner.WithHandler(runner.NewTextHandler(os.Stdin, os.Stdout)),
	)

	if err := r.Run(ctx, engine); err != nil {
		log.Fatal(err)
	}
*/
package runner
