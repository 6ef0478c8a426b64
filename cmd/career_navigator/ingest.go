package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/career-navigator/internal/ingestion"
	"github.com/jonathan/career-navigator/internal/workflow"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Extract a CV or network profile into a draft profile",
	Long: `Extract raw profile content into a draft profile and pause for review.

Content comes from a plain text or HTML file (--file) or, for network
profiles, a profile URL (--url).`,
	RunE: runIngest,
}

var (
	ingestFile   string
	ingestURL    string
	ingestKind   string
	ingestUserID string
	ingestEmail  string
	ingestName   string
)

func init() {
	ingestCmd.Flags().StringVarP(&ingestFile, "file", "f", "", "Path to a .txt, .md or .html file")
	ingestCmd.Flags().StringVar(&ingestURL, "url", "", "Network profile URL")
	ingestCmd.Flags().StringVar(&ingestKind, "kind", "", "Input kind: cv or network_profile (default cv, or network_profile with --url)")
	ingestCmd.Flags().StringVar(&ingestUserID, "user-id", "", "Existing user to attach the draft to")
	ingestCmd.Flags().StringVar(&ingestEmail, "email", "", "Email for a newly created user")
	ingestCmd.Flags().StringVar(&ingestName, "name", "", "Name for a newly created user")
	ingestCmd.MarkFlagsOneRequired("file", "url")

	rootCmd.AddCommand(ingestCmd)
}

func buildIngestRequest() (workflow.IngestRequest, error) {
	req := workflow.IngestRequest{
		InputKind: workflow.InputKind(ingestKind),
		SourceURL: ingestURL,
		Email:     ingestEmail,
		Name:      ingestName,
	}
	if req.InputKind == "" {
		req.InputKind = workflow.InputCV
		if ingestURL != "" {
			req.InputKind = workflow.InputNetworkProfile
		}
	}
	if ingestUserID != "" {
		id, err := uuid.Parse(ingestUserID)
		if err != nil {
			return req, fmt.Errorf("invalid --user-id: %w", err)
		}
		req.UserID = id
	}
	if ingestFile != "" {
		text, _, err := ingestion.IngestFromFile(ingestFile)
		if err != nil {
			return req, fmt.Errorf("failed to read %s: %w", ingestFile, err)
		}
		req.RawText = text
	}
	return req, nil
}

func runIngest(cmd *cobra.Command, _ []string) error {
	req, err := buildIngestRequest()
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	a, err := openApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.service.Ingest(ctx, req)
	if err != nil {
		return err
	}
	return printResult(cmd.OutOrStdout(), outputFormat, result)
}
