package assistant

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/cvforge/cvforge/pkg/models"
)

// Analysis is the result of an analyze request. Score is 0 when the model
// omitted the score marker.
type Analysis struct {
	Text  string `json:"text"`
	Score int    `json:"score"`
}

// CoverLetter is a generated letter. Subject is empty when the model
// returned plain text instead of JSON.
type CoverLetter struct {
	Subject string `json:"subject,omitempty"`
	Text    string `json:"letter"`
}

// Question is one likely interview question.
type Question struct {
	Question string `json:"question"`
	Category string `json:"category,omitempty"`
	Tip      string `json:"tip,omitempty"`
}

// InterviewQuestions is the result of an interview-questions request.
type InterviewQuestions struct {
	Questions []Question `json:"questions"`
	Raw       string     `json:"raw,omitempty"`
}

// SkillsGap is the result of a skills-gap request. Raw holds the model text
// when it could not be parsed.
type SkillsGap struct {
	Matched         []string `json:"matched"`
	Missing         []string `json:"missing"`
	Recommendations []string `json:"recommendations"`
	MatchPercent    int      `json:"match_percent"`
	Raw             string   `json:"raw,omitempty"`
}

// LanguageIssue is one grammar or style problem found in the résumé.
type LanguageIssue struct {
	Type       string `json:"type"`
	Text       string `json:"text"`
	Correction string `json:"correction,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
	Section    string `json:"section,omitempty"`
}

// GrammarCheck is the result of a grammar and style review. Scores are in
// [0,10]; 0 means the model gave none. Raw holds the model text when it
// could not be parsed.
type GrammarCheck struct {
	GrammarScore         int             `json:"grammar_score"`
	StyleScore           int             `json:"style_score"`
	ProfessionalismScore int             `json:"professionalism_score"`
	Errors               []LanguageIssue `json:"errors"`
	StyleSuggestions     []string        `json:"style_suggestions"`
	OverallQuality       string          `json:"overall_quality,omitempty"`
	Summary              string          `json:"summary"`
	Raw                  string          `json:"raw,omitempty"`
}

var scoreRe = regexp.MustCompile(`(?i)(?:score|ocena)\s*:\s*(\d{1,3})\s*/\s*100`)

// ParseAnalysis extracts the SCORE: NN/100 marker.
func ParseAnalysis(text string) Analysis {
	a := Analysis{Text: text}
	if m := scoreRe.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n <= 100 {
			a.Score = n
		}
	}
	return a
}

// ParseCoverLetter decodes the JSON letter, falling back to the raw text.
func ParseCoverLetter(text string) CoverLetter {
	var c CoverLetter
	if err := decodeJSON(text, &c); err != nil || strings.TrimSpace(c.Text) == "" {
		return CoverLetter{Text: strings.TrimSpace(text)}
	}
	return c
}

// ParseInterviewQuestions decodes the JSON question list. Plain text falls
// back to one question per line ending in a question mark.
func ParseInterviewQuestions(text string) InterviewQuestions {
	var q InterviewQuestions
	if err := decodeJSON(text, &q); err == nil && len(q.Questions) > 0 {
		return q
	}
	q = InterviewQuestions{Raw: text}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-*0123456789.) "))
		if strings.HasSuffix(line, "?") {
			q.Questions = append(q.Questions, Question{Question: line})
		}
	}
	return q
}

// ParseSkillsGap decodes the JSON gap analysis, falling back to the raw text.
func ParseSkillsGap(text string) SkillsGap {
	var g SkillsGap
	if err := decodeJSON(text, &g); err != nil {
		return SkillsGap{Raw: text}
	}
	g.MatchPercent = min(100, max(0, g.MatchPercent))
	return g
}

// ParseGrammarCheck decodes the JSON language review, falling back to the
// raw text. Scores outside [0,10] are clamped.
func ParseGrammarCheck(text string) GrammarCheck {
	var g GrammarCheck
	if err := decodeJSON(text, &g); err != nil {
		return GrammarCheck{Raw: text}
	}
	for _, n := range []*int{&g.GrammarScore, &g.StyleScore, &g.ProfessionalismScore} {
		*n = min(10, max(0, *n))
	}
	return g
}

// Decode returns the structured result for task.
func Decode(task models.TaskType, text string) any {
	switch task {
	case models.TaskAnalyze:
		return ParseAnalysis(text)
	case models.TaskCoverLetter:
		return ParseCoverLetter(text)
	case models.TaskInterviewQuestions:
		return ParseInterviewQuestions(text)
	case models.TaskSkillsGap:
		return ParseSkillsGap(text)
	case models.TaskGrammarCheck:
		return ParseGrammarCheck(text)
	}
	return map[string]string{"text": text}
}

// decodeJSON decodes the first fenced block of text, or the span between its
// outermost braces.
func decodeJSON(text string, v any) error {
	s := strings.TrimSpace(text)
	if i := strings.Index(s, "```"); i >= 0 {
		s = s[i+3:]
		s = strings.TrimPrefix(s, "json")
		if j := strings.Index(s, "```"); j >= 0 {
			s = s[:j]
		}
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		s = s[start : end+1]
	}
	return json.Unmarshal([]byte(s), v)
}
