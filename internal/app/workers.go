// internal/app/workers.go
package app

import (
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"

	"banking-assistant/internal/common/camunda"
	"banking-assistant/internal/common/config"
	"banking-assistant/internal/common/logger"
	"banking-assistant/internal/common/observability"

	aq "banking-assistant/internal/workers/assistant/analyze-query"
	anq "banking-assistant/internal/workers/assistant/answer-query"
	ec "banking-assistant/internal/workers/assistant/enrich-context"
)

// Handlers are the assistant job handlers wired to the pipeline.
type Handlers struct {
	Analyze *aq.Handler
	Enrich  *ec.Handler
	Answer  *anq.Handler
}

// JobHandlers builds the handlers. Each handler's own deadline is set below
// the job timeout so the complete command still reaches the broker.
func (a *App) JobHandlers(log logger.Logger) *Handlers {
	analyzeCfg := aq.LoadConfig()
	analyzeCfg.Timeout = a.handlerTimeout(aq.TaskType, analyzeCfg.Timeout)

	enrichCfg := ec.LoadConfig()
	enrichCfg.Timeout = a.handlerTimeout(ec.TaskType, enrichCfg.Timeout)

	answerCfg := anq.LoadConfig()
	answerCfg.Timeout = a.handlerTimeout(anq.TaskType, answerCfg.Timeout)

	return &Handlers{
		Analyze: aq.NewHandler(analyzeCfg, a.Service, a.Registry, &analyzeQueryLogger{log}),
		Enrich:  ec.NewHandler(enrichCfg, a.Orchestrator, a.Registry, &enrichContextLogger{log}),
		Answer:  anq.NewHandler(answerCfg, a.Service, a.Registry, &answerQueryLogger{log}),
	}
}

// Jobs maps task types to job handlers.
func (h *Handlers) Jobs() map[string]worker.JobHandler {
	return map[string]worker.JobHandler{
		aq.TaskType:  h.Analyze.Handle,
		ec.TaskType:  h.Enrich.Handle,
		anq.TaskType: h.Answer.Handle,
	}
}

// StartWorkers opens one job worker per enabled task type.
func (a *App) StartWorkers(client zbc.Client, obs *observability.Observability, log logger.Logger) []*camunda.Worker {
	var workers []*camunda.Worker
	for taskType, handle := range a.JobHandlers(log).Jobs() {
		w := camunda.StartWorker(client, taskType, config.GetWorkerConfig(a.Config, taskType), handle, obs, log)
		if w != nil {
			workers = append(workers, w)
		}
	}
	return workers
}

func (a *App) handlerTimeout(taskType string, fallback time.Duration) time.Duration {
	wcfg := config.GetWorkerConfig(a.Config, taskType)
	if wcfg.Timeout <= 0 {
		return fallback
	}
	return config.GetDuration(wcfg.Timeout) * 4 / 5
}

// Logger adapters for workers that declare their own Logger interfaces
type analyzeQueryLogger struct {
	logger.Logger
}

func (a *analyzeQueryLogger) With(fields map[string]interface{}) aq.Logger {
	return &analyzeQueryLogger{a.Logger.With(fields)}
}

type enrichContextLogger struct {
	logger.Logger
}

func (a *enrichContextLogger) With(fields map[string]interface{}) ec.Logger {
	return &enrichContextLogger{a.Logger.With(fields)}
}

type answerQueryLogger struct {
	logger.Logger
}

func (a *answerQueryLogger) With(fields map[string]interface{}) anq.Logger {
	return &answerQueryLogger{a.Logger.With(fields)}
}
