// Package diff produces unified diffs and structured hunks from two text
// blobs. It backs the diff command and the interactive adopt workflow and
// knows nothing about dotm's state model.
package diff

import (
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

const contextRadius = 3

// Format returns a unified diff between original and modified with the
// given file labels. Identical inputs produce only the two header lines.
func Format(original, modified, labelA, labelB string) (string, error) {
	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(original),
		B:        difflib.SplitLines(modified),
		FromFile: labelA,
		ToFile:   labelB,
		Context:  contextRadius,
	})
	if err != nil {
		return "", fmt.Errorf("failed to compute diff: %w", err)
	}
	if text == "" {
		return fmt.Sprintf("--- %s\n+++ %s\n", labelA, labelB), nil
	}
	return text, nil
}

// Hunk is one localized change between the original and modified text
type Hunk struct {
	// Header is the unified diff header, e.g. "@@ -1,3 +1,4 @@"
	Header string

	// Display is the formatted hunk text with +/- markers and context
	Display string

	// OldStart/OldEnd delimit the original lines this hunk covers
	// (start inclusive, end exclusive)
	OldStart int
	OldEnd   int

	// OldLines are the original lines being replaced
	OldLines []string

	// NewLines are the replacement lines from the modified version
	NewLines []string
}

// splitLines splits keeping each line's trailing newline, with no phantom
// final element. Hunk indexes computed over these slices are valid for
// reassembling the text byte for byte.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// ExtractHunks computes the structured hunks between original and modified
func ExtractHunks(original, modified string) []Hunk {
	a := splitLines(original)
	b := splitLines(modified)

	matcher := difflib.NewMatcher(a, b)
	var hunks []Hunk

	for _, group := range matcher.GetGroupedOpCodes(contextRadius) {
		if len(group) == 0 {
			continue
		}
		if len(group) == 1 && group[0].Tag == 'e' {
			continue
		}

		first, last := group[0], group[len(group)-1]
		header := fmt.Sprintf("@@ -%d,%d +%d,%d @@",
			first.I1+1, last.I2-first.I1, first.J1+1, last.J2-first.J1)

		hunk := Hunk{
			Header:   header,
			OldStart: first.I1,
			OldEnd:   last.I2,
		}

		var display strings.Builder
		display.WriteString(header)
		display.WriteString("\n")

		for _, op := range group {
			switch op.Tag {
			case 'e':
				for _, line := range a[op.I1:op.I2] {
					writeMarked(&display, " ", line)
					hunk.OldLines = append(hunk.OldLines, line)
					hunk.NewLines = append(hunk.NewLines, line)
				}
			case 'd':
				for _, line := range a[op.I1:op.I2] {
					writeMarked(&display, "-", line)
					hunk.OldLines = append(hunk.OldLines, line)
				}
			case 'i':
				for _, line := range b[op.J1:op.J2] {
					writeMarked(&display, "+", line)
					hunk.NewLines = append(hunk.NewLines, line)
				}
			case 'r':
				for _, line := range a[op.I1:op.I2] {
					writeMarked(&display, "-", line)
					hunk.OldLines = append(hunk.OldLines, line)
				}
				for _, line := range b[op.J1:op.J2] {
					writeMarked(&display, "+", line)
					hunk.NewLines = append(hunk.NewLines, line)
				}
			}
		}

		hunk.Display = display.String()
		hunks = append(hunks, hunk)
	}

	return hunks
}

func writeMarked(sb *strings.Builder, marker, line string) {
	sb.WriteString(marker)
	sb.WriteString(line)
	if !strings.HasSuffix(line, "\n") {
		sb.WriteString("\n")
	}
}

// ApplyHunks rebuilds the text, taking the modified side for each accepted
// hunk and the original side for the rest. Lines outside any hunk are
// always preserved from the original.
func ApplyHunks(original string, hunks []Hunk, accepted []bool) string {
	origLines := strings.Split(original, "\n")
	if original == "" {
		origLines = nil
	} else if strings.HasSuffix(original, "\n") {
		origLines = origLines[:len(origLines)-1]
	}

	var result []string
	pos := 0

	for i, hunk := range hunks {
		for _, line := range origLines[pos:hunk.OldStart] {
			result = append(result, line)
		}

		if accepted[i] {
			for _, line := range hunk.NewLines {
				result = append(result, strings.TrimSuffix(line, "\n"))
			}
		} else {
			for _, line := range origLines[hunk.OldStart:hunk.OldEnd] {
				result = append(result, line)
			}
		}

		pos = hunk.OldEnd
	}

	for _, line := range origLines[pos:] {
		result = append(result, line)
	}

	output := strings.Join(result, "\n")
	if strings.HasSuffix(original, "\n") && output != "" {
		output += "\n"
	}
	return output
}
