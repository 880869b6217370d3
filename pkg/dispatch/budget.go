package dispatch

import (
	"github.com/cvforge/cvforge/pkg/models"
	"github.com/cvforge/cvforge/pkg/registry"
)

var baseTokens = map[models.TaskType]int{
	models.TaskOptimize:           3000,
	models.TaskAnalyze:            2500,
	models.TaskCoverLetter:        1500,
	models.TaskInterviewQuestions: 2000,
	models.TaskSkillsGap:          2000,
	models.TaskGrammarCheck:       1500,
}

const (
	defaultBaseTokens = 2000
	minTokens         = 500
	longInputTokens   = 3000
	shortInputTokens  = 500
)

// tokenBudget computes max_tokens for one request. Input size is estimated
// at four characters per token.
func tokenBudget(task models.TaskType, premium bool, inputChars int, ceiling, override int) int {
	n := override
	if n <= 0 {
		n = baseTokens[task]
		if n == 0 {
			n = defaultBaseTokens
		}
		if premium {
			n = n * 3 / 2
		}
		switch est := inputChars / 4; {
		case est > longInputTokens:
			n += 1000
		case est < shortInputTokens:
			n = max(minTokens, n-500)
		}
	}
	if ceiling > 0 && n > ceiling {
		n = ceiling
	}
	return n
}

// sampling returns the model's defaults adjusted for the task.
func sampling(task models.TaskType, s registry.Sampling) registry.Sampling {
	switch task {
	case models.TaskAnalyze:
		s.Temperature = max(0, s.Temperature-0.1)
	case models.TaskCoverLetter:
		s.Temperature = min(1, s.Temperature+0.1)
	}
	return s
}

func buildRequest(req Request, desc registry.Descriptor) models.ChatCompletionRequest {
	s := sampling(req.Task, desc.Sampling)
	var msgs []models.ChatMessage
	if req.System != "" {
		msgs = append(msgs, models.ChatMessage{Role: "system", Content: req.System})
	}
	msgs = append(msgs, models.ChatMessage{Role: "user", Content: req.Prompt})
	return models.ChatCompletionRequest{
		Model:            desc.ID,
		Messages:         msgs,
		Temperature:      s.Temperature,
		TopP:             s.TopP,
		FrequencyPenalty: s.FrequencyPenalty,
		PresencePenalty:  s.PresencePenalty,
		MaxTokens:        tokenBudget(req.Task, req.Premium, len(req.System)+len(req.Prompt), desc.MaxTokens, req.MaxTokens),
	}
}
