// internal/workers/assistant/analyze-query/handler.go
package analyzequery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "banking-assistant/internal/common/errors"
	"banking-assistant/internal/common/metrics"
	"banking-assistant/internal/models"
	"banking-assistant/pkg/registry"
)

const (
	TaskType = "analyze-query"
)

var (
	ErrInvalidInput = errors.New("INVALID_JOB_INPUT")
)

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

// QueryAnalyzer classifies a question.
type QueryAnalyzer interface {
	Analyze(question string, userLocation *models.Coordinates) (models.Intent, error)
}

type Handler struct {
	config       *Config
	analyzer     QueryAnalyzer
	registry     *registry.ActivityRegistry
	errorHandler *apperrors.ErrorHandler
	logger       Logger
}

// NewHandler builds the worker. A nil registry skips schema validation.
func NewHandler(config *Config, analyzer QueryAnalyzer, reg *registry.ActivityRegistry, log Logger) *Handler {
	logger := log.With(map[string]interface{}{
		"taskType": TaskType,
	})
	return &Handler{
		config:       config,
		analyzer:     analyzer,
		registry:     reg,
		errorHandler: apperrors.NewErrorHandler(logger),
		logger:       logger,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	input, err := h.parseInput(job.Variables)
	if err != nil {
		h.failJob(ctx, client, job, toStandardError(err))
		return
	}

	output, err := h.execute(ctx, input)
	if err != nil {
		h.failJob(ctx, client, job, toStandardError(err))
		return
	}

	h.completeJob(ctx, client, job, output)
}

// parseInput validates the job variables against the registry schema before
// decoding them.
func (h *Handler) parseInput(variables string) (*Input, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(variables), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if h.registry != nil {
		result, err := h.registry.ValidateInput(TaskType, raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		if !result.Valid {
			return nil, fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(result.GetErrorMessages(), "; "))
		}
	}

	var input Input
	if err := json.Unmarshal([]byte(variables), &input); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return &input, nil
}

func (h *Handler) execute(_ context.Context, input *Input) (*Output, error) {
	intent, err := h.analyzer.Analyze(input.Question, input.UserLocation)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	h.logger.Info("query analyzed", map[string]interface{}{
		"intent":     intent.Kind,
		"confidence": intent.Confidence,
		"language":   intent.Language,
		"subtypes":   intent.Entities.Subtypes,
	})

	return &Output{Intent: intent}, nil
}

func toStandardError(err error) error {
	if errors.Is(err, ErrInvalidInput) {
		return apperrors.NewInvalidJobInputError(err.Error())
	}
	return err
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)

	if err != nil {
		h.logger.Error("Failed to create complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}

	_, err = cmd.Send(ctx)
	if err != nil {
		h.logger.Error("Failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

func (h *Handler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	code := string(apperrors.ErrCodeInternal)
	if se, ok := apperrors.AsStandard(err); ok {
		code = string(se.Code)
	}
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, code).Inc()
	h.errorHandler.HandleJobError(ctx, client, job, err)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

// ParseInput exposes input validation for tests and tools.
func (h *Handler) ParseInput(variables string) (*Input, error) {
	return h.parseInput(variables)
}
