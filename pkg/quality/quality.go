// Package quality rates generated responses with cheap structural heuristics.
// Scores are advisory and only feed metrics.
package quality

import (
	"regexp"
	"strings"

	"github.com/cvforge/cvforge/pkg/models"
)

const (
	baseline = 5.0
	minScore = 1.0
	maxScore = 10.0
)

type lengthRange struct{ min, max int }

var expectedLength = map[models.TaskType]lengthRange{
	models.TaskOptimize:           {800, 12000},
	models.TaskAnalyze:            {400, 8000},
	models.TaskCoverLetter:        {600, 5000},
	models.TaskInterviewQuestions: {300, 8000},
	models.TaskSkillsGap:          {300, 6000},
	models.TaskGrammarCheck:       {250, 5000},
}

var defaultLength = lengthRange{200, 10000}

var (
	scoreMarker = regexp.MustCompile(`(?i)(score|ocena)\s*:\s*\d{1,3}\s*/\s*100`)
	refusals    = []string{"cannot", "can't", "unable", "sorry", "apologize", "apologise"}
)

// Score returns a rating in [1,10] for text produced for task.
func Score(text string, task models.TaskType) float64 {
	s := baseline
	s += lengthAdjustment(len(text), task)
	s += markerBonus(text, task)
	if refused(text) {
		s -= 3
	}
	return clamp(s)
}

func lengthAdjustment(n int, task models.TaskType) float64 {
	r, ok := expectedLength[task]
	if !ok {
		r = defaultLength
	}
	switch {
	case n < r.min/2:
		return -3
	case n < r.min:
		return -2
	case n > r.max:
		return -1
	}
	return 2
}

func markerBonus(text string, task models.TaskType) float64 {
	switch task {
	case models.TaskOptimize:
		switch headers := strings.Count(text, "## "); {
		case headers >= 3:
			return 1.5
		case headers >= 1:
			return 0.5
		}
	case models.TaskAnalyze:
		if scoreMarker.MatchString(text) {
			return 1.5
		}
	case models.TaskCoverLetter:
		if strings.Contains(text, `"letter"`) {
			return 1
		}
	case models.TaskInterviewQuestions:
		if strings.Contains(text, `"questions"`) || strings.Count(text, "?") >= 5 {
			return 1
		}
	case models.TaskSkillsGap:
		if strings.Contains(text, `"missing"`) {
			return 1
		}
	case models.TaskGrammarCheck:
		if strings.Contains(text, `"grammar_score"`) {
			return 1
		}
	}
	return 0
}

func refused(text string) bool {
	lower := strings.ToLower(text)
	for _, w := range refusals {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

func clamp(s float64) float64 {
	if s < minScore {
		return minScore
	}
	if s > maxScore {
		return maxScore
	}
	return s
}
