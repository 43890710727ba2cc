package evaluation

import (
	"context"
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/stemsi/quizlr/internal/question"
)

// Interview scoring weights: term coverage of the topic and opening
// question, and answer depth measured in words.
const (
	InterviewCoverageWeight = 0.7
	InterviewDepthWeight    = 0.3
	InterviewDepthWords     = 30
)

var stopWords = map[string]struct{}{
	"about": {}, "does": {}, "from": {}, "have": {}, "into": {}, "that": {},
	"their": {}, "them": {}, "there": {}, "these": {}, "they": {}, "this": {},
	"what": {}, "when": {}, "where": {}, "which": {}, "while": {}, "with": {},
	"would": {}, "your": {}, "explain": {}, "describe": {},
}

// KeywordEvaluator scores free text by keyword coverage. Topic
// explanations are scored by the share of key concepts mentioned;
// interviews by the share of topic terms mentioned plus answer depth.
type KeywordEvaluator struct{}

// NewKeywordEvaluator creates a KeywordEvaluator.
func NewKeywordEvaluator() *KeywordEvaluator { return &KeywordEvaluator{} }

func (e *KeywordEvaluator) EvaluateFreeText(ctx context.Context, q *question.Question, text string) (question.Evaluation, error) {
	if err := ctx.Err(); err != nil {
		return question.Evaluation{}, err
	}
	if q == nil {
		return question.Evaluation{}, fmt.Errorf("evaluate: nil question")
	}

	lower := strings.ToLower(text)
	switch v := q.Variant.(type) {
	case question.TopicExplanation:
		return explanationScore(v, lower), nil
	case question.InteractiveInterview:
		return interviewScore(v, lower), nil
	default:
		return question.Evaluation{}, notFreeText(q)
	}
}

func explanationScore(v question.TopicExplanation, text string) question.Evaluation {
	words := question.WordCount(text)
	if len(v.KeyConcepts) == 0 {
		need := max(v.MinWordCount, 1)
		return question.Evaluation{
			Score:    math.Min(1, float64(words)/float64(need)),
			Feedback: fmt.Sprintf("%d words", words),
		}
	}

	var missing []string
	for _, c := range v.KeyConcepts {
		if !strings.Contains(text, strings.ToLower(strings.TrimSpace(c))) {
			missing = append(missing, c)
		}
	}
	covered := len(v.KeyConcepts) - len(missing)

	feedback := fmt.Sprintf("covered %d of %d key concepts", covered, len(v.KeyConcepts))
	if len(missing) > 0 {
		feedback += "; missing: " + strings.Join(missing, ", ")
	}
	if words < v.MinWordCount {
		feedback += fmt.Sprintf("; %d of %d required words", words, v.MinWordCount)
	}
	return question.Evaluation{
		Score:    float64(covered) / float64(len(v.KeyConcepts)),
		Feedback: feedback,
	}
}

func interviewScore(v question.InteractiveInterview, text string) question.Evaluation {
	terms := significantTerms(v.Topic + " " + v.InitialQuestion)
	coverage := 1.0
	if len(terms) > 0 {
		hit := 0
		for _, t := range terms {
			if strings.Contains(text, t) {
				hit++
			}
		}
		coverage = float64(hit) / float64(len(terms))
	}

	words := question.WordCount(text)
	if words == 0 {
		return question.Evaluation{Score: 0, Feedback: "no response"}
	}
	depth := math.Min(1, float64(words)/InterviewDepthWords)

	return question.Evaluation{
		Score:    InterviewCoverageWeight*coverage + InterviewDepthWeight*depth,
		Feedback: fmt.Sprintf("term coverage %.0f%%, %d words", coverage*100, words),
	}
}

// significantTerms lowercases s and keeps distinct words of at least four
// letters that are not stop words. A plural "s" is trimmed so singular
// mentions match.
func significantTerms(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	var terms []string
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if len(f) < 4 {
			continue
		}
		if _, stop := stopWords[f]; stop {
			continue
		}
		f = strings.TrimSuffix(f, "s")
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		terms = append(terms, f)
	}
	return terms
}
