package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/career-navigator/internal/workflow"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Print the workflow graph as a Mermaid flowchart",
	RunE:  runGraph,
}

func init() {
	rootCmd.AddCommand(graphCmd)
}

// runGraph compiles the graph without touching the database or the LLM.
func runGraph(cmd *cobra.Command, _ []string) error {
	runnable, err := workflow.BuildGraph(nil, nil, nil).Compile()
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), runnable.Mermaid())
	return err
}
