package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func Main() {
	_ = godotenv.Load() // best-effort: load .env if present

	if err := newRoot(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRoot(stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:          "brollcut",
		Short:        "Plan and render B-roll insertions over a talking-head video",
		SilenceUsage: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SilenceErrors = true

	pf := root.PersistentFlags()
	pf.String("config", "", "YAML config file")
	pf.String("out", "", "Output directory (overrides config)")
	pf.String("log-level", "", "Log level: debug, info, warn, error")
	pf.String("log-file", "", "Also write JSON logs to this file")
	pf.Duration("timeout", 0, "Abort the command after this long (overrides config)")

	plan := &cobra.Command{
		Use:   "plan <request.json>",
		Short: "Transcribe the A-roll and write a validated insertion plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(cmd, args[0])
		},
	}

	render := &cobra.Command{
		Use:   "render <request.json>",
		Short: "Compose insertions over the A-roll and publish the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, args[0])
		},
	}
	render.Flags().String("plan", "", "plan.json whose insertions replace the request's")

	root.AddCommand(plan, render)
	return root
}
