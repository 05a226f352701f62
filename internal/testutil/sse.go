// Package testutil provides shared helpers for tests.
package testutil

import (
	"bufio"
	"strings"
	"testing"
)

// ParseSSEData parses a data-only SSE stream into its data payloads,
// one string per frame.
//
// Handles the W3C SSE spec for the subset the server emits:
//   - Multiple "data:" lines within one frame are joined with newline
//   - An empty line terminates a frame
//   - Comments starting with ":" are ignored
//
// Example:
//
//	frames := testutil.ParseSSEData(t, rec.Body.String())
//	if len(frames) != 3 {
//		t.Fatalf("got %d frames, want 3", len(frames))
//	}
func ParseSSEData(t *testing.T, body string) []string {
	t.Helper()

	var frames []string
	var dataLines []string
	lineNum := 0

	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()

		switch {
		case strings.HasPrefix(line, "data: "):
			dataLines = append(dataLines, strings.TrimPrefix(line, "data: "))

		case line == "":
			if len(dataLines) > 0 {
				frames = append(frames, strings.Join(dataLines, "\n"))
				dataLines = nil
			}

		case strings.HasPrefix(line, ":"):
			// comment, ignored

		default:
			t.Fatalf("SSE parse error at line %d: unexpected line %q", lineNum, line)
		}
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("SSE scan error: %v", err)
	}

	if len(dataLines) > 0 {
		t.Fatalf("SSE stream ended without terminating frame (missing empty line)")
	}

	return frames
}
