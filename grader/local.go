package grader

import (
	"context"
	"crypto/sha256"
	"math"
	"strings"
	"unicode"

	"github.com/skillbridge/skillbridge/server/apperr"
	"github.com/skillbridge/skillbridge/server/progression"
)

// Local grades with a fixed heuristic: response length, overlap with the
// prompt's keywords and visible structure. Identical input always yields
// the identical result.
type Local struct{}

func NewLocal() *Local { return &Local{} }

const (
	lengthPoints    = 50
	keywordPoints   = 35
	structurePoints = 15
	targetWords     = 150
)

var stopwords = map[string]struct{}{
	"about": {}, "after": {}, "also": {}, "because": {}, "before": {},
	"could": {}, "does": {}, "from": {}, "have": {}, "into": {},
	"that": {}, "their": {}, "there": {}, "these": {}, "they": {},
	"this": {}, "what": {}, "when": {}, "where": {}, "which": {},
	"while": {}, "will": {}, "with": {}, "would": {}, "your": {},
}

var feedbackBands = []struct {
	below    int
	variants []string
}{
	{40, []string{
		"Your answer is too thin to show the skill. Address the scenario directly and explain each step.",
		"Expand your response: name the concrete actions you would take and why.",
	}},
	{70, []string{
		"Good start. Tie your answer more closely to the details in the prompt.",
		"Solid foundation. Add specifics such as numbers, timelines or examples.",
	}},
	{101, []string{
		"Strong answer that covers the scenario clearly and in order.",
		"Well reasoned and well structured. You are ready for harder scenarios.",
	}},
}

func (l *Local) Grade(ctx context.Context, s Submission) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, apperr.Wrap("grader.Local.Grade", apperr.ErrTimeout, "grading cancelled", err)
	}
	score := Score(s.Prompt, s.Response)
	return Result{
		Score:    score,
		Feedback: feedback(score, s.Prompt, s.Response),
		GradedBy: progression.SourceLocal,
	}, nil
}

// Score computes the local heuristic score in [0,100].
func Score(prompt, response string) int {
	words := tokenize(response)
	if len(words) == 0 {
		return 0
	}

	length := math.Min(float64(len(words)), targetWords) / targetWords * lengthPoints

	keys := keywords(prompt)
	var overlap float64
	if len(keys) > 0 {
		seen := make(map[string]struct{}, len(words))
		for _, w := range words {
			seen[w] = struct{}{}
		}
		hits := 0
		for k := range keys {
			if _, ok := seen[k]; ok {
				hits++
			}
		}
		overlap = float64(hits) / float64(len(keys)) * keywordPoints
	} else {
		// Nothing to match against; award overlap in proportion to length.
		overlap = length / lengthPoints * keywordPoints
	}

	structure := 0.0
	switch n := sentences(response); {
	case n >= 3:
		structure = structurePoints
	case n == 2:
		structure = structurePoints / 2
	}

	total := int(math.Round(length + overlap + structure))
	if total > 100 {
		total = 100
	}
	return total
}

func feedback(score int, prompt, response string) string {
	if strings.TrimSpace(response) == "" {
		return "No response submitted."
	}
	sum := sha256.Sum256([]byte(prompt + "\x00" + response))
	for _, b := range feedbackBands {
		if score < b.below {
			return b.variants[int(sum[0])%len(b.variants)]
		}
	}
	return ""
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func keywords(prompt string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, w := range tokenize(prompt) {
		if len(w) < 4 {
			continue
		}
		if _, stop := stopwords[w]; stop {
			continue
		}
		out[w] = struct{}{}
	}
	return out
}

// sentences counts terminated sentences and list lines.
func sentences(s string) int {
	n := 0
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "-") || strings.HasPrefix(line, "*") || (len(line) > 1 && unicode.IsDigit(rune(line[0])) && line[1] == '.') {
			n++
			continue
		}
		n += strings.Count(line, ".") + strings.Count(line, "!") + strings.Count(line, "?")
	}
	return n
}
