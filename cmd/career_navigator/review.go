package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/career-navigator/internal/workflow"
)

var confirmCmd = &cobra.Command{
	Use:   "confirm <user-id>",
	Short: "Confirm a user's draft profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withUser(cmd, args, func(a *app, userID uuid.UUID) (any, error) {
			return a.service.Confirm(commandContext(cmd), userID)
		})
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate <user-id>",
	Short: "Run guardrail validation on a confirmed profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withUser(cmd, args, func(a *app, userID uuid.UUID) (any, error) {
			return a.service.Validate(commandContext(cmd), userID)
		})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status <run-id>",
	Short: "Show the last checkpoint of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app) (any, error) {
			return a.service.GetStatus(commandContext(cmd), args[0])
		})
	},
}

var resumeDecision string

var resumeCmd = &cobra.Command{
	Use:   "resume <run-id>",
	Short: "Apply a review decision to a paused run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app) (any, error) {
			return a.service.Resume(commandContext(cmd), args[0], workflow.Decision(resumeDecision))
		})
	},
}

func init() {
	resumeCmd.Flags().StringVar(&resumeDecision, "decision", string(workflow.DecisionApprove), "Decision: approve, edit or reject")
	rootCmd.AddCommand(confirmCmd, validateCmd, statusCmd, resumeCmd)
}

// withApp opens the application, runs fn and prints its result.
func withApp(cmd *cobra.Command, fn func(*app) (any, error)) error {
	a, err := openApp(commandContext(cmd), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := fn(a)
	if err != nil {
		return err
	}
	return printResult(cmd.OutOrStdout(), outputFormat, result)
}

// withUser parses the user id argument before opening the application.
func withUser(cmd *cobra.Command, args []string, fn func(*app, uuid.UUID) (any, error)) error {
	userID, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid user id %q: %w", args[0], err)
	}
	return withApp(cmd, func(a *app) (any, error) {
		return fn(a, userID)
	})
}
