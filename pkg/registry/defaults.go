package registry

import "github.com/cvforge/cvforge/pkg/models"

// Model ids served through the upstream router.
const (
	Qwen3       = "qwen/qwen3-235b-a22b:free"
	DeepSeekV31 = "deepseek/deepseek-chat-v3.1:free"
	Llama33     = "meta-llama/llama-3.3-70b-instruct:free"
	Qwen25      = "qwen/qwen-2.5-72b-instruct:free"
	Claude35    = "anthropic/claude-3.5-sonnet"
	GPT4o       = "openai/gpt-4o"
	GPT4oMini   = "openai/gpt-4o-mini"
	UniversalID = Qwen25
)

var allTasks = models.Tasks

var (
	balanced = Sampling{Temperature: 0.3, TopP: 0.9, FrequencyPenalty: 0.1, PresencePenalty: 0.1}
	precise  = Sampling{Temperature: 0.3, TopP: 0.85, FrequencyPenalty: 0.1, PresencePenalty: 0.1}
)

// DefaultTable returns the built-in model table.
func DefaultTable() Table {
	return Table{
		Models: []Descriptor{
			{ID: Qwen3, DisplayName: "Qwen3 235B", Capabilities: allTasks, Speed: 2, Quality: 4, MaxTokens: 8000, Free: true, Sampling: precise},
			{ID: DeepSeekV31, DisplayName: "DeepSeek V3.1", Capabilities: allTasks, Speed: 3, Quality: 4, MaxTokens: 8000, Free: true, Sampling: balanced},
			{ID: Llama33, DisplayName: "Llama 3.3 70B", Capabilities: []models.TaskType{models.TaskAnalyze, models.TaskInterviewQuestions, models.TaskSkillsGap, models.TaskGrammarCheck}, Speed: 3, Quality: 3, MaxTokens: 4000, Free: true, Sampling: balanced},
			{ID: Qwen25, DisplayName: "Qwen 2.5 72B", Capabilities: allTasks, Speed: 4, Quality: 3, MaxTokens: 4000, Free: true, Sampling: balanced},
			{ID: Claude35, DisplayName: "Claude 3.5 Sonnet", Capabilities: allTasks, Speed: 3, Quality: 5, MaxTokens: 8000, Sampling: precise},
			{ID: GPT4o, DisplayName: "GPT-4o", Capabilities: allTasks, Speed: 4, Quality: 5, MaxTokens: 8000, Sampling: balanced},
			{ID: GPT4oMini, DisplayName: "GPT-4o mini", Capabilities: []models.TaskType{models.TaskAnalyze, models.TaskInterviewQuestions, models.TaskSkillsGap, models.TaskGrammarCheck}, Speed: 5, Quality: 3, MaxTokens: 4000, Sampling: balanced},
		},
		Preferences: map[models.TaskType][]string{
			models.TaskOptimize:           {Claude35, GPT4o, Qwen3, DeepSeekV31, Qwen25},
			models.TaskAnalyze:            {GPT4o, Claude35, DeepSeekV31, Qwen3, Llama33},
			models.TaskCoverLetter:        {Claude35, GPT4o, DeepSeekV31, Qwen3, Qwen25},
			models.TaskInterviewQuestions: {GPT4oMini, GPT4o, DeepSeekV31, Llama33, Qwen25},
			models.TaskSkillsGap:          {GPT4o, Claude35, Qwen3, DeepSeekV31, Llama33},
			models.TaskGrammarCheck:       {Claude35, GPT4oMini, GPT4o, Qwen3, DeepSeekV31, Llama33},
		},
		DefaultOrder: []string{Qwen25, DeepSeekV31, Qwen3, Llama33},
		Universal:    UniversalID,
	}
}

// Default returns a Registry built from DefaultTable. The built-in table is
// validated by tests, so a failure here is a programming error.
func Default() *Registry {
	r, err := New(DefaultTable())
	if err != nil {
		panic(err)
	}
	return r
}
