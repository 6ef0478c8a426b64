package main

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/jonathan/career-navigator/internal/observability"
)

// Output formats
const (
	outputJSON = "json"
	outputYAML = "yaml"
	outputText = "text"
)

// printResult writes v to w in the selected output format.
func printResult(w io.Writer, format string, v any) error {
	switch format {
	case outputText:
		return observability.NewPrinter(w).Print(v)
	case outputYAML:
		// Round-trip through JSON so yaml keys follow the json tags.
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
		var generic any
		if err := json.Unmarshal(raw, &generic); err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(generic); err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
		return nil
	}
}
