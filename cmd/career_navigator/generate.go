package main

import (
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/career-navigator/internal/workflow"
)

var (
	generateKind   string
	generateReview bool
)

var generateCmd = &cobra.Command{
	Use:   "generate <user-id>",
	Short: "Generate an artifact from a validated profile",
	Long: "Generate one artifact (" + artifactKindList() + ") from a validated profile.\n\n" +
		"With --review the run pauses before the artifact is stored; continue it with\n" +
		"`career_navigator resume user_<user-id> --decision approve`.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind := workflow.ArtifactKind(generateKind)
		return withUser(cmd, args, func(a *app, userID uuid.UUID) (any, error) {
			if generateReview {
				return a.service.GenerateForReview(commandContext(cmd), userID, kind)
			}
			return a.service.Generate(commandContext(cmd), userID, kind)
		})
	},
}

func init() {
	generateCmd.Flags().StringVarP(&generateKind, "kind", "k", string(workflow.ArtifactCV), "Artifact kind: "+artifactKindList())
	generateCmd.Flags().BoolVar(&generateReview, "review", false, "Pause for review before storing the artifact")
	rootCmd.AddCommand(generateCmd)
}

func artifactKindList() string {
	kinds := workflow.ArtifactKinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}
