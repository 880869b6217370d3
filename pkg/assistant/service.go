// Package assistant exposes one call per résumé task. Each call builds the
// prompt, dispatches it and returns either a value or an absence signal.
package assistant

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cvforge/cvforge/pkg/dispatch"
	"github.com/cvforge/cvforge/pkg/history"
	"github.com/cvforge/cvforge/pkg/models"
	"github.com/cvforge/cvforge/pkg/prompt"
	"github.com/cvforge/cvforge/pkg/quota"
)

// Dispatcher runs one logical request across the fallback list.
type Dispatcher interface {
	Dispatch(ctx context.Context, req dispatch.Request) models.DispatchResult
}

// Input is what a caller supplies for any task.
type Input struct {
	ResumeText     string `json:"resume_text"`
	JobTitle       string `json:"job_title"`
	JobDescription string `json:"job_description"`
	CompanyName    string `json:"company_name"`
	Premium        bool   `json:"premium"`
	// Model optionally selects a specific upstream model.
	Model     string `json:"model,omitempty"`
	MaxTokens int    `json:"max_tokens,omitempty"`
	Language  string `json:"language,omitempty"`
	User      string `json:"user,omitempty"`
	RequestID string `json:"-"`
}

// Service is the caller-facing entry point.
type Service struct {
	dispatcher Dispatcher
	history    history.Store
	quota      *quota.Enforcer
	language   string
	logger     *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithHistory records every dispatch to h. Recording is best effort.
func WithHistory(h history.Store) Option {
	return func(s *Service) { s.history = h }
}

// WithQuota enforces per-user request quotas before dispatching.
func WithQuota(q *quota.Enforcer) Option {
	return func(s *Service) { s.quota = q }
}

// WithLanguage sets the default response language.
func WithLanguage(lang string) Option {
	return func(s *Service) { s.language = lang }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New creates a Service.
func New(d Dispatcher, opts ...Option) *Service {
	s := &Service{
		dispatcher: d,
		language:   "en",
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Run builds and dispatches the prompt for task. The returned error is set
// only when the request was rejected before dispatch (quota or missing
// input); upstream failures are reported through the result.
func (s *Service) Run(ctx context.Context, task models.TaskType, in Input) (models.DispatchResult, error) {
	if s.quota != nil {
		release, err := s.quota.Reserve(ctx, in.User, in.Premium, task)
		if err != nil {
			return models.DispatchResult{}, err
		}
		defer release()
	}

	lang := in.Language
	if lang == "" {
		lang = s.language
	}
	text, err := prompt.Build(task, prompt.Fields{
		ResumeText:     in.ResumeText,
		JobTitle:       in.JobTitle,
		JobDescription: in.JobDescription,
		CompanyName:    in.CompanyName,
		Language:       lang,
	})
	if err != nil {
		return models.DispatchResult{}, fmt.Errorf("build prompt: %w", err)
	}

	req := dispatch.Request{
		ID:        in.RequestID,
		Task:      task,
		System:    prompt.SystemPrompt(task, lang),
		Prompt:    text,
		Premium:   in.Premium,
		Model:     in.Model,
		MaxTokens: in.MaxTokens,
	}
	res := s.dispatcher.Dispatch(ctx, req)
	s.record(ctx, task, in, req, res)
	return res, nil
}

func (s *Service) record(ctx context.Context, task models.TaskType, in Input, req dispatch.Request, res models.DispatchResult) {
	if s.history == nil || res.Kind == models.KindConfig {
		return
	}
	err := s.history.Record(context.WithoutCancel(ctx), models.DispatchRecord{
		ID:            in.RequestID,
		User:          in.User,
		Task:          task,
		Tier:          models.TierName(in.Premium),
		Model:         res.Model,
		Cached:        res.Cached,
		OK:            res.OK,
		ErrorKind:     res.Kind,
		Latency:       res.Latency,
		Quality:       res.Quality,
		PromptChars:   len(req.System) + len(req.Prompt),
		ResponseChars: len(res.Text),
	})
	if err != nil {
		s.logger.Warn("history record failed", "task", task, "error", err)
	}
}

func (s *Service) text(ctx context.Context, task models.TaskType, in Input) (string, bool) {
	res, err := s.Run(ctx, task, in)
	if err != nil {
		s.logger.Warn("request rejected", "task", task, "error", err)
		return "", false
	}
	if !res.OK {
		return "", false
	}
	return res.Text, true
}

// Optimize returns the résumé rewritten for the target job.
func (s *Service) Optimize(ctx context.Context, in Input) (string, bool) {
	return s.text(ctx, models.TaskOptimize, in)
}

// Analyze returns a scored assessment of the résumé.
func (s *Service) Analyze(ctx context.Context, in Input) (Analysis, bool) {
	text, ok := s.text(ctx, models.TaskAnalyze, in)
	if !ok {
		return Analysis{}, false
	}
	return ParseAnalysis(text), true
}

// CoverLetter returns a cover letter for the target job and company.
func (s *Service) CoverLetter(ctx context.Context, in Input) (CoverLetter, bool) {
	text, ok := s.text(ctx, models.TaskCoverLetter, in)
	if !ok {
		return CoverLetter{}, false
	}
	return ParseCoverLetter(text), true
}

// InterviewQuestions returns likely interview questions with tips.
func (s *Service) InterviewQuestions(ctx context.Context, in Input) (InterviewQuestions, bool) {
	text, ok := s.text(ctx, models.TaskInterviewQuestions, in)
	if !ok {
		return InterviewQuestions{}, false
	}
	return ParseInterviewQuestions(text), true
}

// SkillsGap compares the résumé against the job requirements.
func (s *Service) SkillsGap(ctx context.Context, in Input) (SkillsGap, bool) {
	text, ok := s.text(ctx, models.TaskSkillsGap, in)
	if !ok {
		return SkillsGap{}, false
	}
	return ParseSkillsGap(text), true
}

// GrammarCheck reviews the résumé's grammar, style and professionalism.
func (s *Service) GrammarCheck(ctx context.Context, in Input) (GrammarCheck, bool) {
	text, ok := s.text(ctx, models.TaskGrammarCheck, in)
	if !ok {
		return GrammarCheck{}, false
	}
	return ParseGrammarCheck(text), true
}
