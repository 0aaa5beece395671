// internal/workers/leads/suggest-salesperson/handler.go
package suggestsalesperson

import (
	"context"
	"encoding/json"
	"time"

	"dealership-workers/internal/common/errors"
	"dealership-workers/internal/common/logger"
	"dealership-workers/internal/common/metrics"
	"dealership-workers/internal/common/validation"
	"dealership-workers/internal/matching"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
)

const (
	TaskType = "suggest-salesperson"
)

var inputValidator = validation.MustValidator(inputSchema)

// Indexer stores recommendation snapshots. *database.ElasticsearchClient implements it.
type Indexer interface {
	IndexDocument(ctx context.Context, index, id string, doc interface{}) error
}

type Handler struct {
	config     *Config
	service    *matching.Service
	indexer    Indexer
	errHandler *errors.ErrorHandler
	logger     logger.Logger
	now        func() time.Time
}

func NewHandler(config *Config, service *matching.Service, indexer Indexer, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		service:    service,
		indexer:    indexer,
		errHandler: errors.NewErrorHandler(log),
		logger:     log,
		now:        time.Now,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	input, err := ParseInput(job.Variables)
	if err != nil {
		h.failJob(client, job, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.Execute(ctx, input)
	if err != nil {
		h.failJob(client, job, err)
		return
	}

	h.completeJob(client, job, output)
}

// ParseInput validates the job variables against the input schema before decoding them.
func ParseInput(variables string) (*Input, error) {
	if err := inputValidator.Validate(variables).Err(); err != nil {
		return nil, err
	}
	var input Input
	if err := json.Unmarshal([]byte(variables), &input); err != nil {
		return nil, errors.NewInvalidJobInputError(err.Error())
	}
	return &input, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	ranking, err := h.service.Rank(ctx, input.VehicleID)
	if err != nil {
		return nil, err
	}

	recs := h.service.Engine().TopRecommendations(ranking.Candidates, input.Limit)
	generatedAt := h.now().UTC()

	h.logger.Info("recommendations generated", map[string]interface{}{
		"vehicleId": input.VehicleID,
		"eligible":  len(ranking.Candidates),
		"returned":  len(recs),
		"excluded":  len(ranking.Excluded),
	})

	if h.config.IndexHistory && h.indexer != nil {
		h.indexSnapshot(ctx, input, ranking, recs, generatedAt)
	}

	return &Output{
		Recommendations: recs,
		GeneratedAt:     generatedAt,
	}, nil
}

// indexSnapshot is best effort: the admin still gets recommendations when
// the history store is down.
func (h *Handler) indexSnapshot(ctx context.Context, input *Input, ranking *matching.Ranking, recs []matching.ScoredCandidate, at time.Time) {
	limit := input.Limit
	if limit <= 0 {
		limit = h.service.Engine().Settings().DefaultLimit
	}
	snap := Snapshot{
		SnapshotID:      uuid.NewString(),
		VehicleID:       ranking.Vehicle.ID,
		Category:        string(ranking.Vehicle.Category),
		SalePrice:       ranking.Vehicle.SalePrice.String(),
		Limit:           limit,
		Recommendations: recs,
		Excluded:        ranking.Excluded,
		EligibleCount:   len(ranking.Candidates),
		GeneratedAt:     at,
	}

	if err := h.indexer.IndexDocument(ctx, h.config.RecommendationsIndex, snap.SnapshotID, snap); err != nil {
		stdErr := errors.NewIndexingFailedError(h.config.RecommendationsIndex, err)
		h.logger.Warn("failed to index recommendation snapshot", map[string]interface{}{
			"vehicleId": input.VehicleID,
			"errorCode": string(stdErr.Code),
			"error":     err,
		})
	}
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	if _, err := cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

func (h *Handler) failJob(client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.Normalize(err).Code)).Inc()
	h.errHandler.HandleJobError(context.Background(), client, job, err)
}
