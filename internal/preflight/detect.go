package preflight

import (
	"path"
	"strings"
)

// stackHint maps a file extension to a language and its default test
// framework. Used as a fallback when the reasoning engine cannot
// predict a stack.
type stackHint struct {
	language  string
	framework string
}

var extensionHints = map[string]stackHint{
	".py":    {"Python", "Pytest"},
	".ts":    {"TypeScript", "Jest"},
	".tsx":   {"TypeScript", "Jest"},
	".js":    {"JavaScript", "Jest"},
	".jsx":   {"JavaScript", "Jest"},
	".go":    {"Go", "go test"},
	".rs":    {"Rust", "cargo test"},
	".java":  {"Java", "JUnit"},
	".kt":    {"Kotlin", "JUnit"},
	".rb":    {"Ruby", "RSpec"},
	".php":   {"PHP", "PHPUnit"},
	".cs":    {"C#", "xUnit"},
	".swift": {"Swift", "XCTest"},
	".ex":    {"Elixir", "ExUnit"},
	".exs":   {"Elixir", "ExUnit"},
}

// DetectStack guesses the dominant language of a file tree by counting
// source file extensions. Returns a human-readable "Language (Framework)"
// string, or a generic fallback when nothing matches.
func DetectStack(fileTree []string) string {
	counts := make(map[string]int)
	for _, p := range fileTree {
		ext := strings.ToLower(path.Ext(p))
		if _, ok := extensionHints[ext]; ok {
			counts[ext]++
		}
	}

	best, bestCount := "", 0
	for ext, n := range counts {
		if n > bestCount {
			best, bestCount = ext, n
		}
	}
	if best == "" {
		return "Unknown Stack"
	}
	hint := extensionHints[best]
	return hint.language + " (" + hint.framework + ")"
}
