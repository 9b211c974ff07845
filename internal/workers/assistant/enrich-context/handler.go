// internal/workers/assistant/enrich-context/handler.go
package enrichcontext

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "banking-assistant/internal/common/errors"
	"banking-assistant/internal/common/metrics"
	"banking-assistant/internal/models"
	"banking-assistant/pkg/registry"
)

const (
	TaskType = "enrich-context"
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

// Enricher gathers upstream data for an intent. It never fails.
type Enricher interface {
	Enrich(ctx context.Context, intent models.Intent) *models.RetrievalResult
}

type Handler struct {
	config       *Config
	enricher     Enricher
	registry     *registry.ActivityRegistry
	errorHandler *apperrors.ErrorHandler
	logger       Logger
}

// NewHandler builds the worker. A nil registry skips schema validation.
func NewHandler(config *Config, enricher Enricher, reg *registry.ActivityRegistry, log Logger) *Handler {
	logger := log.With(map[string]interface{}{
		"taskType": TaskType,
	})
	return &Handler{
		config:       config,
		enricher:     enricher,
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
		h.failJob(ctx, client, job, apperrors.NewInvalidJobInputError(err.Error()))
		return
	}

	output, err := h.execute(ctx, input)
	if err != nil {
		h.failJob(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output)
}

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

// execute never fails on upstream errors; partial data is a valid result.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	start := time.Now()
	retrieval := h.enricher.Enrich(ctx, input.Intent)
	if retrieval == nil {
		retrieval = &models.RetrievalResult{DataSources: []string{}, ReferenceKind: models.ReferenceNone}
	}

	h.logger.Info("context enriched", map[string]interface{}{
		"intent":      input.Intent.Kind,
		"locations":   len(retrieval.Locations),
		"currency":    retrieval.Currency != nil,
		"dataSources": retrieval.DataSources,
		"duration":    time.Since(start).String(),
	})

	return &Output{
		Retrieval:   retrieval,
		DataSources: retrieval.DataSources,
	}, nil
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
