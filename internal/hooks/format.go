package hooks

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/strandmem/strand/pkg/types"
)

// Context block bounds: up to 5 same-role and 3 cross-role memories inside a
// ~1200 character budget.
const (
	sameRoleLimit  = 5
	crossRoleLimit = 3
	contextBudget  = 1200
	perEntryLimit  = 180
)

// FormatContext renders recalled memories into the text block injected ahead
// of an agent turn. Output never exceeds the character budget by more than
// one truncated entry.
func FormatContext(role types.AgentRole, sameRole, crossRole []*types.Memory) string {
	if len(sameRole) > sameRoleLimit {
		sameRole = sameRole[:sameRoleLimit]
	}
	if len(crossRole) > crossRoleLimit {
		crossRole = crossRole[:crossRoleLimit]
	}

	if len(sameRole) == 0 && len(crossRole) == 0 {
		return fmt.Sprintf("No relevant memories for %s on this task.", role)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Relevant memories (%s)\n", role))
	for _, m := range sameRole {
		writeEntry(&sb, m)
		if sb.Len() >= contextBudget {
			return sb.String()
		}
	}

	if len(crossRole) > 0 {
		sb.WriteString("\n## From other roles\n")
		for _, m := range crossRole {
			writeEntry(&sb, m)
			if sb.Len() >= contextBudget {
				return sb.String()
			}
		}
	}

	return sb.String()
}

func writeEntry(sb *strings.Builder, m *types.Memory) {
	line := fmt.Sprintf("- [%s] (q=%.2f) %s", m.Category, m.Quality, singleLine(m.Content))
	if m.Metadata.Outcome != "" {
		line += " - outcome: " + singleLine(m.Metadata.Outcome)
	}
	if len(line) > perEntryLimit {
		// Back off to a rune boundary so truncation never emits invalid UTF-8.
		cut := perEntryLimit - 3
		for cut > 0 && !utf8.RuneStart(line[cut]) {
			cut--
		}
		line = line[:cut] + "..."
	}
	sb.WriteString(line)
	sb.WriteString("\n")
}

func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
