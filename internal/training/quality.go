package training

import (
	"strings"

	"github.com/jdkato/prose/v2"
)

// genericPhrases mark an answer as hedged rather than source-grounded.
var genericPhrases = []string{
	"i don't know",
	"i'm not sure",
	"i cannot",
	"i don't have",
	"please check",
	"contact",
	"refer to",
}

var questionKeywords = map[string][]string{
	"policy":        {"policy", "policies", "rule", "rules", "regulation"},
	"procedure":     {"procedure", "process", "step", "how to", "what is"},
	"clarification": {"clarify", "explain", "what do you mean", "can you explain"},
	"complaint":     {"complaint", "issue", "problem", "wrong", "incorrect"},
}

// categoryOrder fixes the match precedence so a question hitting several
// keyword sets always lands in the same category.
var categoryOrder = []string{"policy", "procedure", "clarification", "complaint"}

func categorizeQuestion(question string) string {
	lower := strings.ToLower(question)

	for _, category := range categoryOrder {
		for _, keyword := range questionKeywords[category] {
			if strings.Contains(lower, keyword) {
				return category
			}
		}
	}

	return "general"
}

// wordCount tokenizes with prose; tagging and entity extraction are
// disabled since only the token count matters here.
func wordCount(text string) int {
	doc, err := prose.NewDocument(text,
		prose.WithSegmentation(false),
		prose.WithTagging(false),
		prose.WithExtraction(false),
	)
	if err != nil {
		return len(strings.Fields(text))
	}
	return len(doc.Tokens())
}

// isSpecific applies the answer-quality heuristic: long enough and free
// of hedging phrases.
func (a *Analyzer) isSpecific(text string, words int) bool {
	if words < a.minAnswerWords {
		return false
	}

	lower := strings.ToLower(text)
	for _, phrase := range genericPhrases {
		if strings.Contains(lower, phrase) {
			return false
		}
	}

	return true
}
