package prompt

import (
	"strings"

	"github.com/cvforge/cvforge/pkg/models"
)

const persona = `You are an experienced career consultant and résumé writer.
You optimise résumés for applicant tracking systems and human recruiters.

Rules:
- Use only facts that appear in the supplied résumé.
- Never invent employers, dates, job titles, certifications or skills.
- If information is missing, say so instead of guessing.
- Keep a professional, concrete tone.`

var taskFocus = map[models.TaskType]string{
	models.TaskOptimize:           "Focus: restructure and reword the résumé for the target role without adding facts.",
	models.TaskAnalyze:            "Focus: give an honest, calibrated assessment. Do not inflate the score.",
	models.TaskCoverLetter:        "Focus: write a persuasive letter grounded in the candidate's real experience.",
	models.TaskInterviewQuestions: "Focus: prepare the candidate for questions a recruiter is likely to ask.",
	models.TaskSkillsGap:          "Focus: compare the résumé against the job requirements item by item.",
	models.TaskGrammarCheck:       "Focus: act as a language editor. Check grammar, style and correctness, and change nothing else.",
}

var languageNames = map[string]string{
	"en": "English",
	"pl": "Polish",
	"de": "German",
	"fr": "French",
	"es": "Spanish",
}

// LanguageName returns the English name of an ISO language code. Unknown
// codes fall back to English.
func LanguageName(code string) string {
	if name, ok := languageNames[strings.ToLower(code)]; ok {
		return name
	}
	return "English"
}

// SystemPrompt returns the system persona for task, including the
// anti-fabrication rules and the response language.
func SystemPrompt(task models.TaskType, lang string) string {
	var b strings.Builder
	b.WriteString(persona)
	if focus, ok := taskFocus[task]; ok {
		b.WriteString("\n\n")
		b.WriteString(focus)
	}
	b.WriteString("\n\nRespond in ")
	b.WriteString(LanguageName(lang))
	b.WriteString(".")
	return b.String()
}
