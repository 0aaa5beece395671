// internal/common/camunda/worker.go
package camunda

import (
	"context"
	"time"

	"dealership-workers/internal/common/config"
	"dealership-workers/internal/common/logger"
	"dealership-workers/internal/common/metrics"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

// JobRecorder receives per-job timing. observability.Observability satisfies it.
type JobRecorder interface {
	RecordJobProcessed(ctx context.Context, taskType string)
	RecordJobDuration(ctx context.Context, taskType string, duration time.Duration)
}

// Instrument wraps a handler so every job is timed in both the Prometheus
// registry and the OTel meter.
func Instrument(taskType string, handler worker.JobHandler, rec JobRecorder) worker.JobHandler {
	return func(client worker.JobClient, job entities.Job) {
		start := time.Now()
		handler(client, job)
		elapsed := time.Since(start)

		metrics.WorkerJobDuration.WithLabelValues(taskType).Observe(elapsed.Seconds())
		if rec != nil {
			ctx := context.Background()
			rec.RecordJobProcessed(ctx, taskType)
			rec.RecordJobDuration(ctx, taskType, elapsed)
		}
	}
}

// StartWorker opens a job worker for taskType, or returns nil when the worker
// is disabled in config.
func StartWorker(client zbc.Client, taskType string, wcfg config.WorkerConfig, handler worker.JobHandler, rec JobRecorder, log logger.Logger) worker.JobWorker {
	if !wcfg.Enabled {
		log.Info("worker disabled", map[string]interface{}{"taskType": taskType})
		return nil
	}

	jw := client.NewJobWorker().
		JobType(taskType).
		Handler(Instrument(taskType, handler, rec)).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(config.GetDuration(wcfg.Timeout)).
		Open()

	log.Info("worker started", map[string]interface{}{
		"taskType":      taskType,
		"maxJobsActive": wcfg.MaxJobsActive,
		"timeout_ms":    wcfg.Timeout,
	})
	return jw
}
