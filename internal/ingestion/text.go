// Package ingestion turns raw profile sources (plain-text files, profile URLs)
// into cleaned text ready for extraction.
package ingestion

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/jonathan/career-navigator/internal/fetch"
)

// MaxFileBytes caps the size of an ingested file.
const MaxFileBytes = 2 << 20

var (
	// ErrEmptyContent is returned when a source yields no text
	ErrEmptyContent = errors.New("no text content")
	// ErrUnsupportedFile is returned for files that are not text or HTML
	ErrUnsupportedFile = errors.New("unsupported file type")
)

var (
	spaceRun     = regexp.MustCompile(`[ \t\f\v]+`)
	blankLineRun = regexp.MustCompile(`\n\n\n+`)
)

// CleanText cleans and normalizes text content while preserving structure
func CleanText(content string) string {
	if content == "" {
		return ""
	}

	content = strings.ToValidUTF8(content, "")
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	content = strings.ReplaceAll(content, "\u00a0", " ")

	lines := strings.Split(content, "\n")
	cleanedLines := make([]string, 0, len(lines))
	for _, line := range lines {
		cleanedLines = append(cleanedLines, cleanLine(line))
	}

	result := blankLineRun.ReplaceAllString(strings.Join(cleanedLines, "\n"), "\n\n")
	return strings.TrimSpace(result)
}

// cleanLine trims trailing space, collapses inner runs and normalizes bullets.
func cleanLine(line string) string {
	line = strings.TrimRight(line, " \t")
	trimmed := strings.TrimLeft(line, " \t")
	if trimmed == "" {
		return ""
	}

	if strings.HasPrefix(trimmed, "#") {
		return trimmed
	}

	indent := len(line) - len(trimmed)
	if isBulletLine(trimmed) {
		_, rest, _ := strings.Cut(trimmed, " ")
		trimmed = "- " + strings.TrimSpace(rest)
	}
	trimmed = spaceRun.ReplaceAllString(trimmed, " ")
	if indent > 0 {
		return strings.Repeat(" ", indent) + trimmed
	}
	return trimmed
}

func isBulletLine(line string) bool {
	return strings.HasPrefix(line, "- ") || strings.HasPrefix(line, "* ") ||
		strings.HasPrefix(line, "• ") || strings.HasPrefix(line, "· ")
}

// IngestFromFile reads a plain-text or HTML file and returns cleaned text with metadata.
func IngestFromFile(path string) (string, *Metadata, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil, fmt.Errorf("file not found: %w", err)
		}
		return "", nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		return "", nil, fmt.Errorf("%w: %s is a directory", ErrUnsupportedFile, path)
	}
	if info.Size() > MaxFileBytes {
		return "", nil, fmt.Errorf("file too large: %d bytes (max %d)", info.Size(), MaxFileBytes)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read file: %w", err)
	}

	text := string(content)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		text, err = fetch.ExtractMainText(text, fetch.DefaultTextSelectors())
		if err != nil {
			return "", nil, fmt.Errorf("failed to extract HTML text: %w", err)
		}
	case ".pdf", ".docx", ".doc":
		return "", nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, filepath.Ext(path))
	default:
		if !utf8.Valid(content) {
			return "", nil, fmt.Errorf("%w: %s is not UTF-8 text", ErrUnsupportedFile, path)
		}
	}

	cleaned := CleanText(text)
	if cleaned == "" {
		return "", nil, fmt.Errorf("%s: %w", path, ErrEmptyContent)
	}

	metadata := NewMetadata(cleaned, SourceFile)
	metadata.Path = path
	return cleaned, metadata, nil
}
