package mcp

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cvforge/cvforge/pkg/assistant"
	"github.com/cvforge/cvforge/pkg/models"
	"github.com/invopop/jsonschema"
)

// Tool argument structs. Their JSON schemas are published through
// tools/list; fields without omitempty are required.

type taskArgs struct {
	ResumeText     string `json:"resume_text" jsonschema_description:"Full plain text of the candidate's résumé"`
	JobTitle       string `json:"job_title,omitempty" jsonschema_description:"Target job title (required for cover letters)"`
	JobDescription string `json:"job_description,omitempty" jsonschema_description:"Job posting text"`
	CompanyName    string `json:"company_name,omitempty" jsonschema_description:"Hiring company"`
	Premium        bool   `json:"premium,omitempty" jsonschema_description:"Use the premium model tier"`
	Model          string `json:"model,omitempty" jsonschema_description:"Specific upstream model id"`
	Language       string `json:"language,omitempty" jsonschema:"enum=en,enum=pl,enum=de,enum=fr,enum=es" jsonschema_description:"Response language code"`
	User           string `json:"user,omitempty" jsonschema_description:"User id for quota and history"`
}

func (a taskArgs) input() assistant.Input {
	return assistant.Input{
		ResumeText:     a.ResumeText,
		JobTitle:       a.JobTitle,
		JobDescription: a.JobDescription,
		CompanyName:    a.CompanyName,
		Premium:        a.Premium,
		Model:          a.Model,
		Language:       a.Language,
		User:           a.User,
	}
}

type metricsArgs struct {
	Model  string `json:"model,omitempty" jsonschema_description:"Limit to one model id"`
	Window string `json:"window,omitempty" jsonschema_description:"Go duration such as 1h; omit for all retained samples"`
}

type historyArgs struct {
	User  string `json:"user,omitempty" jsonschema_description:"Filter the summary by user id"`
	Limit int    `json:"limit,omitempty" jsonschema_description:"Number of recent dispatches to list (default 20)"`
}

type noArgs struct{}

// schemaFor reflects v into an inline JSON schema.
func schemaFor(v any) *jsonschema.Schema {
	r := jsonschema.Reflector{
		Anonymous:      true,
		DoNotReference: true,
	}
	s := r.Reflect(v)
	s.Version = ""
	return s
}

// toolHandler is a function that handles a tool call.
type toolHandler func(ctx context.Context, s *Server, args json.RawMessage) ToolCallResult

// toolHandlers maps tool names to their handlers.
var toolHandlers = map[string]toolHandler{
	"cvforge_optimize":            taskHandler(models.TaskOptimize),
	"cvforge_analyze":             taskHandler(models.TaskAnalyze),
	"cvforge_cover_letter":        taskHandler(models.TaskCoverLetter),
	"cvforge_interview_questions": taskHandler(models.TaskInterviewQuestions),
	"cvforge_skills_gap":          taskHandler(models.TaskSkillsGap),
	"cvforge_grammar_check":       taskHandler(models.TaskGrammarCheck),
	"cvforge_metrics":             handleMetrics,
	"cvforge_cache_stats":         handleCacheStats,
	"cvforge_history":             handleHistory,
}

// allTools is the list of tool definitions exposed via tools/list.
var allTools = []ToolDefinition{
	{
		Name:        "cvforge_optimize",
		Description: "Rewrite a résumé for a target job without inventing experience.",
		InputSchema: schemaFor(&taskArgs{}),
	},
	{
		Name:        "cvforge_analyze",
		Description: "Score a résumé out of 100 and list strengths and weaknesses.",
		InputSchema: schemaFor(&taskArgs{}),
	},
	{
		Name:        "cvforge_cover_letter",
		Description: "Write a cover letter for the job title and company.",
		InputSchema: schemaFor(&taskArgs{}),
	},
	{
		Name:        "cvforge_interview_questions",
		Description: "Generate likely interview questions with answering tips.",
		InputSchema: schemaFor(&taskArgs{}),
	},
	{
		Name:        "cvforge_skills_gap",
		Description: "Compare résumé skills against the job and recommend what to learn.",
		InputSchema: schemaFor(&taskArgs{}),
	},
	{
		Name:        "cvforge_grammar_check",
		Description: "Check résumé grammar, style and professionalism and list corrections.",
		InputSchema: schemaFor(&taskArgs{}),
	},
	{
		Name:        "cvforge_metrics",
		Description: "Show per-model latency, success rate, quality and recent fallbacks.",
		InputSchema: schemaFor(&metricsArgs{}),
	},
	{
		Name:        "cvforge_cache_stats",
		Description: "Show response cache statistics (entries, hits, misses, hit rate).",
		InputSchema: schemaFor(&noArgs{}),
	},
	{
		Name:        "cvforge_history",
		Description: "Summarize persisted dispatches by task and model and list the most recent ones.",
		InputSchema: schemaFor(&historyArgs{}),
	},
}

func textResult(text string) ToolCallResult {
	return ToolCallResult{
		Content: []ContentBlock{{Type: "text", Text: text}},
	}
}

func errorResult(text string) ToolCallResult {
	return ToolCallResult{
		Content: []ContentBlock{{Type: "text", Text: text}},
		IsError: true,
	}
}

func taskHandler(task models.TaskType) toolHandler {
	return func(ctx context.Context, s *Server, rawArgs json.RawMessage) ToolCallResult {
		var args taskArgs
		if len(rawArgs) > 0 {
			if err := json.Unmarshal(rawArgs, &args); err != nil {
				return errorResult("Invalid arguments: " + err.Error())
			}
		}
		if args.ResumeText == "" {
			return errorResult("resume_text is required")
		}

		res, err := s.runner.Run(ctx, task, args.input())
		if err != nil {
			return errorResult("Request rejected: " + err.Error())
		}
		if !res.OK {
			return errorResult(formatAbsence(res))
		}
		out := textResult(formatTaskResult(task, res))
		out.StructuredContent = assistant.Decode(task, res.Text)
		return out
	}
}

func handleMetrics(_ context.Context, s *Server, rawArgs json.RawMessage) ToolCallResult {
	if s.metrics == nil {
		return textResult("Metrics are not configured.")
	}
	var args metricsArgs
	if len(rawArgs) > 0 {
		_ = json.Unmarshal(rawArgs, &args)
	}
	var window time.Duration
	if args.Window != "" {
		d, err := time.ParseDuration(args.Window)
		if err != nil {
			return errorResult("Invalid window (use a duration such as 1h): " + err.Error())
		}
		window = d
	}

	var stats []models.ModelStats
	if args.Model != "" {
		stats = []models.ModelStats{s.metrics.Summarize(args.Model, window)}
	} else {
		stats = s.metrics.SummarizeAll(window)
	}
	return textResult(formatModelStats(stats) + "\n" + formatFallbacks(s.metrics.Fallbacks()))
}

func handleCacheStats(_ context.Context, s *Server, _ json.RawMessage) ToolCallResult {
	if s.cache == nil {
		return textResult("Cache is not configured.")
	}
	stats, err := s.cache.Stats()
	if err != nil {
		return errorResult("Error fetching cache stats: " + err.Error())
	}
	return textResult(formatCacheStats(stats))
}

func handleHistory(ctx context.Context, s *Server, rawArgs json.RawMessage) ToolCallResult {
	if s.history == nil {
		return textResult("History is not configured.")
	}
	var args historyArgs
	if len(rawArgs) > 0 {
		_ = json.Unmarshal(rawArgs, &args)
	}
	if args.Limit <= 0 {
		args.Limit = 20
	}

	summary, err := s.history.Summary(ctx, args.User)
	if err != nil {
		return errorResult("Error fetching history summary: " + err.Error())
	}
	recent, err := s.history.Recent(ctx, args.Limit)
	if err != nil {
		return errorResult("Error fetching recent dispatches: " + err.Error())
	}
	return textResult(formatHistorySummary(summary) + "\n" + formatRecent(recent))
}
