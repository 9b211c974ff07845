// internal/workers/assistant/answer-query/handler.go
package answerquery

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
	"banking-assistant/internal/pipeline"
	"banking-assistant/pkg/registry"
)

const (
	TaskType = "answer-query"
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

// Responder generates the answer for an analyzed and enriched question and
// records the interaction.
type Responder interface {
	Respond(ctx context.Context, q pipeline.Query, intent models.Intent, retrieval *models.RetrievalResult) *pipeline.Response
}

type Handler struct {
	config       *Config
	responder    Responder
	registry     *registry.ActivityRegistry
	errorHandler *apperrors.ErrorHandler
	logger       Logger
}

// NewHandler builds the worker. A nil registry skips schema validation.
func NewHandler(config *Config, responder Responder, reg *registry.ActivityRegistry, log Logger) *Handler {
	logger := log.With(map[string]interface{}{
		"taskType": TaskType,
	})
	return &Handler{
		config:       config,
		responder:    responder,
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
		if errors.Is(err, ErrInvalidInput) {
			err = apperrors.NewInvalidJobInputError(err.Error())
		}
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

// execute only fails on an invalid question. Generation failures come back
// as a degraded answer.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	question, err := pipeline.ValidateQuestion(input.Question)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	resp := h.responder.Respond(ctx, pipeline.Query{
		Question:  question,
		SessionID: input.SessionID,
		History:   input.History,
	}, input.Intent, input.Retrieval)

	if resp.Degraded {
		h.logger.Warn("answer degraded", map[string]interface{}{
			"intent":    input.Intent.Kind,
			"sessionId": input.SessionID,
		})
	}
	h.logger.Info("query answered", map[string]interface{}{
		"intent":      input.Intent.Kind,
		"confidence":  resp.Confidence,
		"dataSources": resp.DataSources,
		"degraded":    resp.Degraded,
	})

	return &Output{
		Response:    resp.Response,
		Confidence:  resp.Confidence,
		DataSources: resp.DataSources,
		Degraded:    resp.Degraded,
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
