package models

// TaskType identifies which résumé operation a request performs. It drives
// the prompt template, the model preference order and quality heuristics.
type TaskType string

const (
	TaskOptimize           TaskType = "optimize_resume"
	TaskAnalyze            TaskType = "analyze_resume"
	TaskCoverLetter        TaskType = "cover_letter"
	TaskInterviewQuestions TaskType = "interview_questions"
	TaskSkillsGap          TaskType = "skills_gap"
	TaskGrammarCheck       TaskType = "grammar_check"
)

// Tasks lists every known task type in display order.
var Tasks = []TaskType{
	TaskOptimize,
	TaskAnalyze,
	TaskCoverLetter,
	TaskInterviewQuestions,
	TaskSkillsGap,
	TaskGrammarCheck,
}

// Known reports whether t is one of the defined task types.
func (t TaskType) Known() bool {
	for _, k := range Tasks {
		if k == t {
			return true
		}
	}
	return false
}

// ParseTask converts a user-supplied string (task type or short alias) into
// a TaskType. Unknown values are returned as-is.
func ParseTask(s string) TaskType {
	switch s {
	case "optimize":
		return TaskOptimize
	case "analyze", "score":
		return TaskAnalyze
	case "cover-letter":
		return TaskCoverLetter
	case "interview", "interview-questions":
		return TaskInterviewQuestions
	case "skills-gap", "gap":
		return TaskSkillsGap
	case "grammar", "grammar-check":
		return TaskGrammarCheck
	}
	return TaskType(s)
}

// Tier names used in cache keys, logs and quota policies.
const (
	TierFree    = "free"
	TierPremium = "premium"
)

// TierName returns the tier label for the premium flag.
func TierName(premium bool) string {
	if premium {
		return TierPremium
	}
	return TierFree
}
