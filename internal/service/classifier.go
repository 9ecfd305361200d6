package service

import "strings"

// Intent is what the user wants back for a question.
type Intent string

const (
	IntentSQL Intent = "sql"
	IntentViz Intent = "viz"
)

// ParseIntent accepts a classifier answer such as "viz" or " SQL\n".
func ParseIntent(s string) (Intent, bool) {
	switch Intent(strings.ToLower(strings.Trim(strings.TrimSpace(s), `"'.`))) {
	case IntentSQL:
		return IntentSQL, true
	case IntentViz:
		return IntentViz, true
	}
	return "", false
}

// Action decides how the result leaves the pipeline.
type Action string

const (
	ActionDisplay  Action = "display"
	ActionDownload Action = "download"
)

var chartKeywords = []string{
	"chart", "plot", "graph",
	"תרשים", "גרף",
}

var downloadKeywords = []string{
	"download", "export", "save",
	"הורד", "ייצא", "שמור",
}

// ClassifyResult explains a keyword decision.
type ClassifyResult struct {
	Intent    Intent
	Matched   []string
	Reasoning string
}

// KeywordClassifier is the deterministic fallback used when the text
// generation service cannot classify a question.
type KeywordClassifier struct{}

func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{}
}

// Intent returns viz when the question mentions a chart keyword and sql
// otherwise.
func (c *KeywordClassifier) Intent(query string) ClassifyResult {
	matched := matchKeywords(query, chartKeywords)
	if len(matched) == 0 {
		return ClassifyResult{
			Intent:    IntentSQL,
			Reasoning: "no chart keywords, defaulting to sql",
		}
	}
	return ClassifyResult{
		Intent:    IntentViz,
		Matched:   matched,
		Reasoning: "question asks for a chart",
	}
}

// Action returns download when the question asks to download, export or save
// the result.
func (c *KeywordClassifier) Action(query string) Action {
	if len(matchKeywords(query, downloadKeywords)) > 0 {
		return ActionDownload
	}
	return ActionDisplay
}

func matchKeywords(query string, keywords []string) []string {
	lower := strings.ToLower(query)
	var matched []string
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			matched = append(matched, kw)
		}
	}
	return matched
}
