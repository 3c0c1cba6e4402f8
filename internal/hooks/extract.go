package hooks

import (
	"strings"

	"github.com/strandmem/strand/pkg/types"
)

// Learning is one structured lesson pulled out of agent output
type Learning struct {
	Content    string
	Type       types.MemoryType
	Confidence float64
	Tags       []string
}

// Pattern confidences. Decisions carry explicit rationale and rank high;
// recommendations are softer; anti-patterns and error/solution pairs are the
// most valuable things an agent can pass forward.
const (
	decisionConfidence       = 0.8
	recommendationConfidence = 0.7
	antiPatternConfidence    = 0.85
	errorSolutionConfidence  = 0.9
)

// ExtractLearnings scans agent output for fixed structural patterns:
//
//	Decision: ... (with optional What:/Why: continuation lines)
//	Recommendation: ... (or bulleted lines directly under it)
//	Warning: ... / Anti-pattern: ...
//	Error: ... Solution: ... pairs
//
// Free-form prose with none of these markers yields zero learnings, which is
// not an error.
func ExtractLearnings(output string) []Learning {
	var learnings []Learning
	lines := strings.Split(output, "\n")

	var pendingError string

	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}

		switch {
		case hasMarker(line, "Decision:"):
			content := afterMarker(line, "Decision:")
			// What:/Why: lines directly below belong to the decision.
			for i+1 < len(lines) {
				next := strings.TrimSpace(lines[i+1])
				if hasMarker(next, "What:") || hasMarker(next, "Why:") {
					content += " " + next
					i++
					continue
				}
				break
			}
			if content != "" {
				learnings = append(learnings, Learning{
					Content:    content,
					Type:       types.TypeDeclarative,
					Confidence: decisionConfidence,
					Tags:       []string{"decision"},
				})
			}

		case hasMarker(line, "Recommendation:"):
			content := afterMarker(line, "Recommendation:")
			if content != "" {
				learnings = append(learnings, Learning{
					Content:    content,
					Type:       types.TypeProcedural,
					Confidence: recommendationConfidence,
					Tags:       []string{"recommendation"},
				})
			}
			// A bare "Recommendation:" header introduces a bulleted list.
			for content == "" && i+1 < len(lines) {
				next := strings.TrimSpace(lines[i+1])
				bullet := strings.TrimLeft(next, "-* ")
				if bullet == next || bullet == "" {
					break
				}
				learnings = append(learnings, Learning{
					Content:    bullet,
					Type:       types.TypeProcedural,
					Confidence: recommendationConfidence,
					Tags:       []string{"recommendation"},
				})
				i++
			}

		case hasMarker(line, "Warning:"), hasMarker(line, "Anti-pattern:"):
			marker := "Warning:"
			if hasMarker(line, "Anti-pattern:") {
				marker = "Anti-pattern:"
			}
			content := afterMarker(line, marker)
			if content != "" {
				learnings = append(learnings, Learning{
					Content:    content,
					Type:       types.TypeAntiPattern,
					Confidence: antiPatternConfidence,
					Tags:       []string{"warning"},
				})
			}

		case hasMarker(line, "Error:"):
			pendingError = afterMarker(line, "Error:")

		case hasMarker(line, "Solution:"):
			solution := afterMarker(line, "Solution:")
			if pendingError != "" && solution != "" {
				learnings = append(learnings, Learning{
					Content:    "Error: " + pendingError + " Solution: " + solution,
					Type:       types.TypeAntiPattern,
					Confidence: errorSolutionConfidence,
					Tags:       []string{"error-solution"},
				})
			}
			pendingError = ""
		}
	}

	return learnings
}

func hasMarker(line, marker string) bool {
	return strings.HasPrefix(strings.ToLower(line), strings.ToLower(marker))
}

func afterMarker(line, marker string) string {
	return strings.TrimSpace(line[len(marker):])
}
