// Package server exposes the résumé assistant and its operational data over
// HTTP.
package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/cvforge/cvforge/pkg/assistant"
	"github.com/cvforge/cvforge/pkg/dispatch"
	"github.com/cvforge/cvforge/pkg/history"
	"github.com/cvforge/cvforge/pkg/models"
	"github.com/cvforge/cvforge/pkg/prompt"
	"github.com/cvforge/cvforge/pkg/quota"
	"github.com/cvforge/cvforge/pkg/resume"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDHeader carries the per-request id in both directions.
const RequestIDHeader = "X-Request-ID"

// maxUploadBytes caps résumé uploads.
const maxUploadBytes = 10 << 20

// User-facing messages for a request that produced no result.
const (
	msgUnavailable = "The assistant is temporarily unavailable. Please try again in a few minutes."
	msgMisconfig   = "The assistant is unavailable. Please contact support."
)

// Server is the HTTP front end.
type Server struct {
	listen     string
	service    *assistant.Service
	dispatcher *dispatch.Dispatcher
	history    history.Store
	quota      *quota.Enforcer
	origins    []string
	logger     *slog.Logger
	engine     *gin.Engine
}

// Option configures a Server.
type Option func(*Server)

// WithHistory exposes dispatch history summaries.
func WithHistory(h history.Store) Option {
	return func(s *Server) { s.history = h }
}

// WithQuota exposes per-user quota status.
func WithQuota(q *quota.Enforcer) Option {
	return func(s *Server) { s.quota = q }
}

// WithAllowOrigins restricts CORS to origins. Empty allows every origin.
func WithAllowOrigins(origins []string) Option {
	return func(s *Server) { s.origins = origins }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// New creates a Server listening on listen.
func New(listen string, svc *assistant.Service, d *dispatch.Dispatcher, opts ...Option) *Server {
	s := &Server{
		listen:     listen,
		service:    svc,
		dispatcher: d,
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, o := range opts {
		o(s)
	}
	s.engine = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	corsCfg := cors.DefaultConfig()
	if len(s.origins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = s.origins
	}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", RequestIDHeader}
	corsCfg.ExposeHeaders = []string{RequestIDHeader}
	r.Use(cors.New(corsCfg))
	r.Use(s.requestID)

	r.GET("/health", s.handleHealth)

	v1 := r.Group("/v1")
	{
		v1.POST("/resume/optimize", s.handleTask(models.TaskOptimize))
		v1.POST("/resume/analyze", s.handleTask(models.TaskAnalyze))
		v1.POST("/resume/cover-letter", s.handleTask(models.TaskCoverLetter))
		v1.POST("/resume/interview-questions", s.handleTask(models.TaskInterviewQuestions))
		v1.POST("/resume/skills-gap", s.handleTask(models.TaskSkillsGap))
		v1.POST("/resume/grammar-check", s.handleTask(models.TaskGrammarCheck))
		v1.POST("/resume/extract", s.handleExtract)

		v1.GET("/models", s.handleModels)
		v1.GET("/metrics", s.handleMetrics)
		v1.GET("/metrics/fallbacks", s.handleFallbacks)
		v1.GET("/cache/stats", s.handleCacheStats)
		v1.GET("/history", s.handleHistory)
		v1.GET("/quota", s.handleQuota)
	}
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.engine.ServeHTTP(w, r)
}

// ListenAndServe starts the server with graceful shutdown support.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.listen,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("cvforge listening", "addr", s.listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) requestID(c *gin.Context) {
	id := c.GetHeader(RequestIDHeader)
	if id == "" {
		id = uuid.New().String()
	}
	c.Set("request_id", id)
	c.Header(RequestIDHeader, id)
	c.Next()
}

func (s *Server) handleTask(task models.TaskType) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetString("request_id")
		log := s.logger.With("txid", id, "task", task)

		var in assistant.Input
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body: " + err.Error()})
			return
		}
		in.RequestID = id

		log.Info("incoming request", "premium", in.Premium, "model", in.Model)
		res, err := s.service.Run(c.Request.Context(), task, in)
		switch {
		case errors.Is(err, quota.ErrQuotaExceeded):
			log.Info("quota exceeded", "user", in.User, "error", err)
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "quota exceeded", "detail": err.Error()})
			return
		case errors.Is(err, prompt.ErrMissingField):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		case err != nil:
			log.Error("request failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		if !res.OK {
			msg := msgUnavailable
			if !res.Kind.Retryable() {
				msg = msgMisconfig
			}
			log.Warn("no result", "kind", res.Kind, "error", res.Err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": msg, "kind": res.Kind})
			return
		}

		log.Info("finished request", "model", res.Model, "cached", res.Cached, "latency", res.Latency)
		c.JSON(http.StatusOK, gin.H{
			"request_id": id,
			"model":      res.Model,
			"cached":     res.Cached,
			"quality":    res.Quality,
			"latency_ms": res.Latency.Milliseconds(),
			"result":     assistant.Decode(task, res.Text),
		})
	}
}

func (s *Server) handleExtract(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file field"})
		return
	}
	if fh.Size > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	text, err := resume.ExtractPDF(data)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"resume_text": text})
}

func (s *Server) handleHealth(c *gin.Context) {
	if err := s.dispatcher.Ready(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "misconfigured", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleModels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"models": s.dispatcher.Registry().Models()})
}

func (s *Server) handleMetrics(c *gin.Context) {
	var window time.Duration
	if w := c.Query("window"); w != "" {
		d, err := time.ParseDuration(w)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid window: " + err.Error()})
			return
		}
		window = d
	}

	rec := s.dispatcher.Metrics()
	if model := c.Query("model"); model != "" {
		c.JSON(http.StatusOK, gin.H{
			"stats":  rec.Summarize(model, window),
			"errors": rec.ErrorCounts(model),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"overall": rec.Summarize("", window),
		"models":  rec.SummarizeAll(window),
	})
}

func (s *Server) handleFallbacks(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"fallbacks": s.dispatcher.Metrics().Fallbacks()})
}

func (s *Server) handleCacheStats(c *gin.Context) {
	ch := s.dispatcher.Cache()
	if ch == nil {
		c.JSON(http.StatusOK, gin.H{"enabled": false})
		return
	}
	stats, err := ch.Stats()
	if err != nil {
		s.logger.Error("cache stats failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cache stats unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"enabled": true, "stats": stats})
}

func (s *Server) handleHistory(c *gin.Context) {
	if s.history == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "history disabled"})
		return
	}
	summary, err := s.history.Summary(c.Request.Context(), c.Query("user"))
	if err != nil {
		s.logger.Error("history summary failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "history unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

func (s *Server) handleQuota(c *gin.Context) {
	if s.quota == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "quota disabled"})
		return
	}
	user := c.Query("user")
	if user == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user is required"})
		return
	}
	premium, _ := strconv.ParseBool(c.Query("premium"))
	status, err := s.quota.Status(c.Request.Context(), user, premium)
	if err != nil {
		s.logger.Error("quota status failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "quota unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user, "tier": models.TierName(premium), "status": status})
}
