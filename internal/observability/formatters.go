// Package observability provides human-readable summaries of workflow results
// for the CLI text output mode.
package observability

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jonathan/career-navigator/internal/db"
	"github.com/jonathan/career-navigator/internal/workflow"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for text mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// truncate shortens s to at most n runes, ending in "..." when cut.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// Print dispatches on the result type. Unknown values are printed as indented JSON.
func (p *Printer) Print(v any) error {
	switch r := v.(type) {
	case *workflow.IngestResult:
		p.PrintIngestResult(r)
	case *workflow.ConfirmResult:
		p.PrintConfirmResult(r)
	case *workflow.ValidationReport:
		p.PrintValidationReport(r)
	case *workflow.RunStatus:
		p.PrintRunStatus(r)
	case *db.GeneratedProduct:
		p.PrintProduct(r)
	default:
		raw, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to format result: %w", err)
		}
		_, err = fmt.Fprintln(p.out, string(raw))
		return err
	}
	return nil
}

// PrintIngestResult outputs the draft created by an ingestion run.
func (p *Printer) PrintIngestResult(r *workflow.IngestResult) {
	if r == nil {
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Run:      %s\n", r.RunID)
	fmt.Fprintf(&sb, "User:     %s\n", r.UserID)
	fmt.Fprintf(&sb, "Profile:  %s\n", r.ProfileID)
	fmt.Fprintf(&sb, "\nJobs: %d  Courses: %d  Academic: %d\n",
		len(r.JobExperienceIDs), len(r.CourseIDs), len(r.AcademicRecordIDs))
	if r.NeedsHumanReview {
		sb.WriteString("\nDraft is waiting for review.")
	}

	p.printBox("DRAFT PROFILE", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintConfirmResult outputs the confirmation of a draft.
func (p *Printer) PrintConfirmResult(r *workflow.ConfirmResult) {
	if r == nil {
		return
	}
	p.printBox("CONFIRMED", fmt.Sprintf("Profile:  %s\n%s", r.ProfileID, r.Message))
}

// PrintValidationReport outputs the verdict, score and the first issues found.
func (p *Printer) PrintValidationReport(r *workflow.ValidationReport) {
	if r == nil {
		return
	}

	var sb strings.Builder
	verdict := "✗ invalid"
	if r.IsValid {
		verdict = "✓ valid"
	}
	fmt.Fprintf(&sb, "Result:        %s\n", verdict)
	fmt.Fprintf(&sb, "Completeness:  %.0f%%\n", r.CompletenessScore*100)

	if len(r.Errors) > 0 {
		issues := append([]workflow.ValidationIssue(nil), r.Errors...)
		// Critical issues first
		sort.SliceStable(issues, func(i, j int) bool {
			return issues[i].Severity == workflow.SeverityCritical && issues[j].Severity != workflow.SeverityCritical
		})
		fmt.Fprintf(&sb, "\nErrors (%d):\n", len(issues))
		writeItems(&sb, len(issues), func(i int) string {
			e := issues[i]
			return fmt.Sprintf("[%s] %s: %s", e.Severity, e.Field, e.Message)
		})
	}

	if len(r.Warnings) > 0 {
		fmt.Fprintf(&sb, "\nWarnings (%d):\n", len(r.Warnings))
		writeItems(&sb, len(r.Warnings), func(i int) string {
			w := r.Warnings[i]
			if w.Field == "" {
				return w.Message
			}
			return w.Field + ": " + w.Message
		})
	}

	if len(r.Recommendations) > 0 {
		sb.WriteString("\nRecommendations:\n")
		writeItems(&sb, len(r.Recommendations), func(i int) string { return r.Recommendations[i] })
	}

	p.printBox("VALIDATION REPORT", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintRunStatus outputs the projection of a run checkpoint.
func (p *Printer) PrintRunStatus(r *workflow.RunStatus) {
	if r == nil {
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Run:     %s\n", r.RunID)
	fmt.Fprintf(&sb, "Status:  %s\n", r.Status)
	if r.CurrentStep != "" {
		fmt.Fprintf(&sb, "Step:    %s\n", r.CurrentStep)
	}
	if r.ResumeAt != "" {
		fmt.Fprintf(&sb, "Resume:  %s\n", r.ResumeAt)
	}
	if r.ArtifactKind != "" {
		fmt.Fprintf(&sb, "Kind:    %s\n", r.ArtifactKind)
	}
	if r.ArtifactID != nil {
		fmt.Fprintf(&sb, "Product: %s\n", *r.ArtifactID)
	}
	fmt.Fprintf(&sb, "\ndraft=%t confirmed=%t validated=%t review=%t\n",
		r.IsDraft, r.IsConfirmed, r.IsValidated, r.NeedsHumanReview)
	if r.Error != "" {
		fmt.Fprintf(&sb, "\nError: %s\n", r.Error)
	}

	p.printBox("RUN STATUS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintProduct outputs a stored artifact's metadata and top-level content keys.
func (p *Printer) PrintProduct(r *db.GeneratedProduct) {
	if r == nil {
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Product:  %s\n", r.ID)
	fmt.Fprintf(&sb, "Type:     %s (v%d)\n", r.ProductType, r.Version)
	if r.ModelUsed != "" {
		fmt.Fprintf(&sb, "Model:    %s\n", r.ModelUsed)
	}

	if cv, ok := r.Content["cv_content"].(string); ok {
		sb.WriteString("\n")
		lines := strings.Split(strings.TrimSpace(cv), "\n")
		writeItems(&sb, len(lines), func(i int) string { return lines[i] })
	} else if len(r.Content) > 0 {
		keys := make([]string, 0, len(r.Content))
		for k := range r.Content {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteString("\nSections:\n")
		writeItems(&sb, len(keys), func(i int) string { return keys[i] })
	}

	p.printBox("GENERATED "+strings.ToUpper(string(r.ProductType)), strings.TrimSuffix(sb.String(), "\n"))
}

// writeItems writes up to maxItemsToShow bulleted lines and a remainder note.
func writeItems(sb *strings.Builder, n int, item func(int) string) {
	for i := range min(n, maxItemsToShow) {
		fmt.Fprintf(sb, "  • %s\n", item(i))
	}
	if n > maxItemsToShow {
		fmt.Fprintf(sb, "  ... and %d more\n", n-maxItemsToShow)
	}
}
