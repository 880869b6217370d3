package prompt

import (
	"errors"
	"strings"
	"testing"

	"github.com/cvforge/cvforge/pkg/models"
)

func TestBuildIncludesFields(t *testing.T) {
	f := Fields{
		ResumeText:     "John Doe, 5 years Python",
		JobTitle:       "Backend Engineer",
		JobDescription: "Build APIs in Go",
		CompanyName:    "Acme",
	}
	for _, task := range models.Tasks {
		p, err := Build(task, f)
		if err != nil {
			t.Fatalf("%s: %v", task, err)
		}
		if !strings.Contains(p, f.ResumeText) {
			t.Errorf("%s: résumé text missing", task)
		}
		if !strings.Contains(p, f.JobTitle) {
			t.Errorf("%s: job title missing", task)
		}
		if !strings.Contains(p, f.JobDescription) {
			t.Errorf("%s: job description missing", task)
		}
	}
}

func TestBuildCoverLetterCompany(t *testing.T) {
	p, err := Build(models.TaskCoverLetter, Fields{ResumeText: "cv", JobTitle: "Dev", CompanyName: "Acme"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(p, "COMPANY: Acme") {
		t.Errorf("company not rendered:\n%s", p)
	}
}

func TestBuildMarkers(t *testing.T) {
	f := Fields{ResumeText: "cv", JobTitle: "Dev"}
	tests := []struct {
		task models.TaskType
		want string
	}{
		{models.TaskOptimize, `"## "`},
		{models.TaskAnalyze, "SCORE: [number]/100"},
		{models.TaskCoverLetter, `"letter"`},
		{models.TaskInterviewQuestions, `"questions"`},
		{models.TaskSkillsGap, `"match_percent"`},
		{models.TaskGrammarCheck, `"grammar_score"`},
	}
	for _, tt := range tests {
		p, err := Build(tt.task, f)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(p, tt.want) {
			t.Errorf("%s: expected marker %s", tt.task, tt.want)
		}
	}
}

func TestBuildMissingResume(t *testing.T) {
	_, err := Build(models.TaskOptimize, Fields{JobTitle: "Dev", ResumeText: "  "})
	if !errors.Is(err, ErrMissingField) {
		t.Fatalf("expected ErrMissingField, got %v", err)
	}
}

func TestBuildCoverLetterNeedsTitle(t *testing.T) {
	_, err := Build(models.TaskCoverLetter, Fields{ResumeText: "cv"})
	if !errors.Is(err, ErrMissingField) {
		t.Fatalf("expected ErrMissingField, got %v", err)
	}
}

func TestBuildUnknownTask(t *testing.T) {
	p, err := Build("", Fields{ResumeText: "cv text"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(p, "cv text") {
		t.Errorf("generic prompt missing résumé: %s", p)
	}
	if strings.Contains(p, "JOB DESCRIPTION") {
		t.Errorf("generic prompt should omit empty job description: %s", p)
	}
}

func TestBuildNotProvided(t *testing.T) {
	p, err := Build(models.TaskAnalyze, Fields{ResumeText: "cv"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(p, "(not provided)") {
		t.Errorf("expected placeholder for empty fields: %s", p)
	}
}

func TestSystemPrompt(t *testing.T) {
	s := SystemPrompt(models.TaskAnalyze, "pl")
	if !strings.Contains(s, "Never invent employers") {
		t.Error("anti-fabrication rule missing")
	}
	if !strings.HasSuffix(s, "Respond in Polish.") {
		t.Errorf("unexpected language line: %q", s)
	}
	if got := SystemPrompt("", "xx"); !strings.HasSuffix(got, "Respond in English.") {
		t.Errorf("unknown language should default to English: %q", got)
	}
}
