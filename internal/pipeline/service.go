// internal/pipeline/service.go
package pipeline

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"

	"banking-assistant/internal/analyzer"
	"banking-assistant/internal/assembler"
	apperrors "banking-assistant/internal/common/errors"
	"banking-assistant/internal/common/metrics"
	"banking-assistant/internal/common/observability"
	"banking-assistant/internal/enrichment"
	"banking-assistant/internal/generation"
	"banking-assistant/internal/geo"
	"banking-assistant/internal/interactions"
	"banking-assistant/internal/models"
)

// MaxQuestionLength is the longest accepted question, in characters.
const MaxQuestionLength = 2000

type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// Enricher gathers upstream data for an intent.
type Enricher interface {
	Enrich(ctx context.Context, intent models.Intent) *models.RetrievalResult
}

type Query struct {
	Question     string              `json:"question"`
	SessionID    string              `json:"sessionId,omitempty"`
	UserLocation *models.Coordinates `json:"userLocation,omitempty"`
	History      []models.Turn       `json:"history,omitempty"`
	// Channel is the interaction record type, TypeQuery when empty.
	Channel string `json:"-"`
}

// Response is returned on every path, including degraded ones.
type Response struct {
	Response    string        `json:"response"`
	Confidence  float64       `json:"confidence"`
	DataSources []string      `json:"dataSources"`
	Intent      models.Intent `json:"intent"`
	Degraded    bool          `json:"degraded"`
}

// Service runs analyze, enrich, assemble and generate for one question.
type Service struct {
	analyzer  *analyzer.Analyzer
	enricher  Enricher
	assembler *assembler.Assembler
	generator generation.Generator
	recorder  interactions.Recorder
	contact   string
	obs       *observability.Observability
	logger    Logger
}

type Option func(*Service)

// WithRecorder sets where interaction records go. Pass an AsyncRecorder to
// keep recording off the request path.
func WithRecorder(r interactions.Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

func WithObservability(obs *observability.Observability) Option {
	return func(s *Service) { s.obs = obs }
}

// NewService wires the stages. A nil generator makes every answer the static
// fallback.
func NewService(an *analyzer.Analyzer, en Enricher, as *assembler.Assembler, gen generation.Generator, contact string, log Logger, opts ...Option) *Service {
	s := &Service{
		analyzer:  an,
		enricher:  en,
		assembler: as,
		generator: gen,
		recorder:  interactions.NopRecorder{},
		contact:   contact,
		logger:    log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ValidateQuestion trims the question and checks its length.
func ValidateQuestion(question string) (string, error) {
	q := strings.TrimSpace(question)
	if q == "" {
		return "", apperrors.NewInvalidQueryError("question is empty")
	}
	if utf8.RuneCountInString(q) > MaxQuestionLength {
		return "", apperrors.NewInvalidQueryError("question is too long")
	}
	return q, nil
}

// Analyze classifies the question. An invalid user location is ignored.
func (s *Service) Analyze(question string, userLocation *models.Coordinates) (models.Intent, error) {
	q, err := ValidateQuestion(question)
	if err != nil {
		return models.Intent{}, err
	}
	var qctx *analyzer.QueryContext
	if userLocation != nil {
		if geo.Valid(*userLocation) {
			qctx = &analyzer.QueryContext{UserLocation: userLocation}
		} else {
			s.logger.Warn("Ignoring invalid user location", map[string]interface{}{
				"latitude":  userLocation.Latitude,
				"longitude": userLocation.Longitude,
			})
		}
	}
	return s.analyzer.Analyze(q, qctx), nil
}

func (s *Service) Enrich(ctx context.Context, intent models.Intent) *models.RetrievalResult {
	return s.enricher.Enrich(ctx, intent)
}

func (s *Service) Prompt(intent models.Intent, retrieval *models.RetrievalResult, history []models.Turn) assembler.Payload {
	return s.assembler.Build(intent, retrieval, history)
}

// Answer runs the whole pipeline. Only an invalid question is an error;
// upstream and generation failures degrade the response instead.
func (s *Service) Answer(ctx context.Context, q Query) (*Response, error) {
	start := time.Now()
	ctx, span := s.obs.StartSpan(ctx, "pipeline.answer")
	defer span.End()

	intent, err := s.Analyze(q.Question, q.UserLocation)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.String("intent", string(intent.Kind)),
		attribute.String("language", string(intent.Language)),
	)

	retrieval := s.Enrich(ctx, intent)
	resp := s.Respond(ctx, q, intent, retrieval)

	s.obs.RecordQuery(ctx, string(intent.Kind), string(intent.Language), resp.Degraded, time.Since(start))
	s.logger.Info("Query answered", map[string]interface{}{
		"sessionId":   q.SessionID,
		"intent":      intent.Kind,
		"language":    intent.Language,
		"confidence":  resp.Confidence,
		"dataSources": resp.DataSources,
		"degraded":    resp.Degraded,
		"duration":    time.Since(start).String(),
	})
	return resp, nil
}

// Respond assembles the prompt for an already analyzed and enriched query,
// calls the generator and records the interaction.
func (s *Service) Respond(ctx context.Context, q Query, intent models.Intent, retrieval *models.RetrievalResult) *Response {
	if retrieval == nil {
		retrieval = &models.RetrievalResult{ReferenceKind: models.ReferenceNone}
	}
	payload := s.Prompt(intent, retrieval, q.History)

	dataSources := retrieval.DataSources
	if dataSources == nil {
		dataSources = []string{}
	}
	resp := &Response{
		DataSources: dataSources,
		Intent:      intent,
	}

	result, err := s.generate(ctx, intent, payload)
	if err != nil {
		metrics.GenerationFallbacks.Inc()
		s.logger.Warn("Generation failed, using fallback", map[string]interface{}{
			"intent": intent.Kind,
			"error":  err.Error(),
		})
		resp.Response = generation.Fallback(intent.Language, s.contact)
		resp.Confidence = generation.FallbackConfidence
		resp.Degraded = true
	} else {
		wantLocations, wantCurrency := enrichment.Plan(intent)
		resp.Response = result.Text
		resp.Confidence = Confidence(intent.Confidence, result.Confidence, wantLocations || wantCurrency, len(retrieval.DataSources) > 0)
	}

	metrics.PipelineQueries.WithLabelValues(string(intent.Kind), string(intent.Language)).Inc()
	s.record(ctx, q, resp, payload)
	return resp
}

func (s *Service) generate(ctx context.Context, intent models.Intent, payload assembler.Payload) (*generation.Result, error) {
	if s.generator == nil {
		return nil, apperrors.NewGenerationFailedError(nil)
	}
	return s.generator.Generate(ctx, generation.Request{
		Prompt:   payload.Prompt,
		Language: intent.Language,
		Intent:   intent.Kind,
	})
}

func (s *Service) record(ctx context.Context, q Query, resp *Response, payload assembler.Payload) {
	channel := q.Channel
	if channel == "" {
		channel = interactions.TypeQuery
	}
	rec := interactions.NewRecord(q.SessionID, channel, map[string]interface{}{
		"question":        q.Question,
		"response":        resp.Response,
		"intent":          string(resp.Intent.Kind),
		"language":        string(resp.Intent.Language),
		"confidence":      resp.Confidence,
		"dataSources":     resp.DataSources,
		"degraded":        resp.Degraded,
		"estimatedTokens": payload.EstimatedTokens,
		"truncated":       payload.Truncated,
	})
	if err := s.recorder.Record(ctx, rec); err != nil {
		s.logger.Warn("Interaction record failed", map[string]interface{}{
			"sessionId": q.SessionID,
			"error":     err.Error(),
		})
	}
}
