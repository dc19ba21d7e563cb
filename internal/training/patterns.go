package training

import (
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// PatternGroup is a cluster of near-duplicate questions, surfaced in the
// report so recurring asks stand out as documentation gaps.
type PatternGroup struct {
	Representative string `json:"representative"`
	Count          int    `json:"count"`
}

const (
	patternSimilarity = 0.6
	patternMinGroup   = 2
)

// commonPatterns greedily clusters questions whose term-frequency vectors
// have cosine similarity at or above patternSimilarity. The earliest
// question of a group is its representative; groups are ordered by size,
// then representative, so repeated runs agree.
func commonPatterns(questions []string) []PatternGroup {
	vectors := make([]map[string]float64, len(questions))
	for i, q := range questions {
		vectors[i] = termFrequencies(q)
	}

	grouped := make([]bool, len(questions))
	var groups []PatternGroup

	for i := range questions {
		if grouped[i] || len(vectors[i]) == 0 {
			continue
		}
		grouped[i] = true
		group := PatternGroup{Representative: questions[i], Count: 1}

		for j := i + 1; j < len(questions); j++ {
			if grouped[j] || len(vectors[j]) == 0 {
				continue
			}
			if cosineSimilarity(vectors[i], vectors[j]) >= patternSimilarity {
				grouped[j] = true
				group.Count++
			}
		}

		if group.Count >= patternMinGroup {
			groups = append(groups, group)
		}
	}

	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Count != groups[j].Count {
			return groups[i].Count > groups[j].Count
		}
		return groups[i].Representative < groups[j].Representative
	})

	return groups
}

// termFrequencies drops words under three letters so articles and
// pronouns do not dominate the vectors.
func termFrequencies(text string) map[string]float64 {
	freq := make(map[string]float64)
	for _, field := range strings.Fields(strings.ToLower(text)) {
		word := strings.Trim(field, ".,!?;:\"'()")
		if len(word) < 3 {
			continue
		}
		freq[word]++
	}
	return freq
}

func cosineSimilarity(a, b map[string]float64) float64 {
	vocab := make(map[string]struct{}, len(a)+len(b))
	for word := range a {
		vocab[word] = struct{}{}
	}
	for word := range b {
		vocab[word] = struct{}{}
	}

	va := make([]float64, 0, len(vocab))
	vb := make([]float64, 0, len(vocab))
	for word := range vocab {
		va = append(va, a[word])
		vb = append(vb, b[word])
	}

	normA := floats.Norm(va, 2)
	normB := floats.Norm(vb, 2)
	if normA == 0 || normB == 0 {
		return 0
	}

	return floats.Dot(va, vb) / (normA * normB)
}
