package core

import (
	"strings"
	"time"
	"unicode"

	"github.com/strandmem/strand/internal/db"
	"github.com/strandmem/strand/internal/similarity"
	"github.com/strandmem/strand/pkg/types"
)

// Demotion applied to a superseded memory: confidence halves, floored so the
// record is demoted, not erased. The heuristic below can false-positive on
// topically similar but unrelated facts; keeping the penalty soft is the
// accepted trade-off.
const (
	demotionFactor = 0.5
	demotionFloor  = 0.1
)

// detectSupersessions finds older memories the new memory invalidates and
// returns the supersedes edges plus confidence demotions to apply in the
// same transaction as the insert.
//
// A candidate is superseded when it shares the new memory's category, its
// concept words overlap, it was created earlier (creation order, not wall
// clock), and its numeric content differs: "Norway won 9 gold medals"
// giving way to "Norway won 10 gold medals".
func detectSupersessions(newMem *types.Memory, existing []*types.Memory, now time.Time) ([]types.Edge, []db.Demotion) {
	newNumbers := extractNumbers(newMem.Content)
	if len(newNumbers) == 0 {
		return nil, nil
	}
	newConcepts := similarity.ConceptWords(newMem.Content)

	var edges []types.Edge
	var demotions []db.Demotion
	for _, old := range existing {
		if old.Superseded {
			continue
		}
		if old.Category != newMem.Category {
			continue
		}
		if !similarity.Overlaps(newConcepts, similarity.ConceptWords(old.Content)) {
			continue
		}
		oldNumbers := extractNumbers(old.Content)
		if len(oldNumbers) == 0 || numbersEqual(newNumbers, oldNumbers) {
			continue
		}

		edges = append(edges, types.Edge{
			ID:        generateID(),
			FromID:    newMem.ID,
			ToID:      old.ID,
			Type:      types.EdgeSupersedes,
			CreatedAt: now,
		})
		demotions = append(demotions, db.Demotion{
			MemoryID: old.ID,
			Factor:   demotionFactor,
			Floor:    demotionFloor,
		})
	}
	return edges, demotions
}

// extractNumbers pulls numeric tokens out of content, in order.
func extractNumbers(content string) []string {
	var numbers []string
	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			numbers = append(numbers, current.String())
			current.Reset()
		}
	}
	for _, r := range content {
		if unicode.IsDigit(r) || (r == '.' && current.Len() > 0) {
			current.WriteRune(r)
			continue
		}
		flush()
	}
	flush()
	return numbers
}

func numbersEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if strings.TrimSuffix(a[i], ".") != strings.TrimSuffix(b[i], ".") {
			return false
		}
	}
	return true
}
