package assistant

import (
	"testing"

	"github.com/cvforge/cvforge/pkg/models"
)

func TestParseAnalysis(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"SCORE: 72/100\nSTRENGTHS:", 72},
		{"score:85 / 100", 85},
		{"OCENA: 64/100", 64},
		{"no score here", 0},
		{"SCORE: 250/100", 0},
	}
	for _, tt := range tests {
		if got := ParseAnalysis(tt.text).Score; got != tt.want {
			t.Errorf("ParseAnalysis(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}

func TestParseCoverLetterFallback(t *testing.T) {
	c := ParseCoverLetter("  Dear hiring manager,\nI am writing...  ")
	if c.Subject != "" || c.Text != "Dear hiring manager,\nI am writing..." {
		t.Errorf("unexpected fallback: %+v", c)
	}
}

func TestParseInterviewQuestionsFallback(t *testing.T) {
	text := "Here are some questions:\n1. Why do you want this role?\n- Describe a hard bug you fixed?\nGood luck."
	q := ParseInterviewQuestions(text)
	if len(q.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %+v", q.Questions)
	}
	if q.Questions[0].Question != "Why do you want this role?" {
		t.Errorf("unexpected first question: %q", q.Questions[0].Question)
	}
	if q.Raw != text {
		t.Error("raw text should be kept on fallback")
	}
}

func TestParseSkillsGapFallback(t *testing.T) {
	g := ParseSkillsGap("You are missing Kubernetes.")
	if g.Raw != "You are missing Kubernetes." || len(g.Missing) != 0 {
		t.Errorf("unexpected fallback: %+v", g)
	}
}

func TestParseGrammarCheck(t *testing.T) {
	text := "```json\n" + `{"grammar_score": 7, "style_score": 12, "professionalism_score": -1,
"errors": [{"type": "grammar", "text": "I has led", "correction": "I led", "section": "Experience"}],
"style_suggestions": ["Use action verbs"], "summary": "Mostly clean"}` + "\n```"
	g := ParseGrammarCheck(text)
	if g.GrammarScore != 7 || g.StyleScore != 10 || g.ProfessionalismScore != 0 {
		t.Errorf("unexpected scores: %+v", g)
	}
	if len(g.Errors) != 1 || g.Errors[0].Correction != "I led" || g.Errors[0].Section != "Experience" {
		t.Errorf("unexpected errors: %+v", g.Errors)
	}
	if len(g.StyleSuggestions) != 1 || g.Summary != "Mostly clean" || g.Raw != "" {
		t.Errorf("unexpected review: %+v", g)
	}
}

func TestParseGrammarCheckFallback(t *testing.T) {
	g := ParseGrammarCheck("The résumé reads well.")
	if g.Raw != "The résumé reads well." || g.GrammarScore != 0 {
		t.Errorf("unexpected fallback: %+v", g)
	}
}

func TestDecode(t *testing.T) {
	if _, ok := Decode(models.TaskAnalyze, "SCORE: 1/100").(Analysis); !ok {
		t.Error("analyze should decode to Analysis")
	}
	if _, ok := Decode(models.TaskSkillsGap, "{}").(SkillsGap); !ok {
		t.Error("skills gap should decode to SkillsGap")
	}
	if _, ok := Decode(models.TaskGrammarCheck, "{}").(GrammarCheck); !ok {
		t.Error("grammar check should decode to GrammarCheck")
	}
	if m, ok := Decode(models.TaskOptimize, "cv").(map[string]string); !ok || m["text"] != "cv" {
		t.Error("optimize should decode to a text map")
	}
}
