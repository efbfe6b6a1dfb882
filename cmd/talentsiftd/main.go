package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/talentsift/talentsift/internal/cli"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "talentsiftd",
		Short: "Talentsift daemon and CLI",
		Long:  "Talentsift daemon for running the screening API server, ingesting ground-truth documents, and evaluating applications",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(cli.ServeCmd())
	rootCmd.AddCommand(cli.IngestCmd())
	rootCmd.AddCommand(cli.EvaluateCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
