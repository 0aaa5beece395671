// internal/workers/leads/auto-assign-lead/handler.go
package autoassignlead

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"dealership-workers/internal/common/errors"
	"dealership-workers/internal/common/logger"
	"dealership-workers/internal/common/metrics"
	"dealership-workers/internal/common/validation"
	"dealership-workers/internal/matching"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	TaskType = "auto-assign-lead"
)

var inputValidator = validation.MustValidator(inputSchema)

type Handler struct {
	config     *Config
	service    *matching.Service
	redis      *redis.Client
	publisher  Publisher
	mailer     Mailer
	errHandler *errors.ErrorHandler
	logger     logger.Logger
	now        func() time.Time
	newID      func() string
}

func NewHandler(config *Config, service *matching.Service, redis *redis.Client, publisher Publisher, mailer Mailer, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		service:    service,
		redis:      redis,
		publisher:  publisher,
		mailer:     mailer,
		errHandler: errors.NewErrorHandler(log),
		logger:     log,
		now:        time.Now,
		newID:      uuid.NewString,
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
	key := cacheKey(input.LeadID)

	rec, ok := h.loadDecision(ctx, key)
	if !ok {
		decision, err := h.service.ShouldAutoAssign(ctx, input.VehicleID)
		if err != nil {
			return nil, err
		}
		rec = &cachedDecision{
			Decision:  decision,
			EventID:   h.newID(),
			DecidedAt: h.now().UTC(),
		}
		rec = h.storeDecision(ctx, key, rec)
	}

	if !rec.Notified {
		if err := h.notify(ctx, input, rec); err != nil {
			return nil, err
		}
		rec.Notified = true
		h.saveDecision(ctx, key, rec)
	}

	h.logger.Info("auto-assignment decided", map[string]interface{}{
		"leadId":           input.LeadID,
		"vehicleId":        input.VehicleID,
		"shouldAutoAssign": rec.Decision.ShouldAutoAssign,
		"salespersonId":    rec.Decision.SalespersonID,
		"score":            rec.Decision.Score,
		"eligibleCount":    rec.Decision.EligibleCount,
		"cached":           ok,
	})

	return &Output{
		ShouldAutoAssign: rec.Decision.ShouldAutoAssign,
		SalespersonID:    rec.Decision.SalespersonID,
		Score:            rec.Decision.Score,
	}, nil
}

func cacheKey(leadID string) string {
	return "lead:auto-assign:" + leadID
}

// loadDecision treats any Redis failure as a miss; the decision is cheap to
// recompute and workload data is read fresh anyway.
func (h *Handler) loadDecision(ctx context.Context, key string) (*cachedDecision, bool) {
	val, err := h.redis.Get(ctx, key).Result()
	if err != nil {
		if !stderrors.Is(err, redis.Nil) {
			h.logger.Warn("decision cache read failed", map[string]interface{}{"key": key, "error": err})
		}
		return nil, false
	}

	var rec cachedDecision
	if err := json.Unmarshal([]byte(val), &rec); err != nil {
		h.logger.Warn("discarding unreadable cached decision", map[string]interface{}{"key": key, "error": err})
		return nil, false
	}
	return &rec, true
}

// storeDecision keeps the first decision written for a lead. If a concurrent
// delivery won the race, its record is returned instead of ours.
func (h *Handler) storeDecision(ctx context.Context, key string, rec *cachedDecision) *cachedDecision {
	data, err := json.Marshal(rec)
	if err != nil {
		return rec
	}

	stored, err := h.redis.SetNX(ctx, key, data, h.config.DecisionCacheTTL).Result()
	if err != nil {
		h.logger.Warn("decision cache write failed", map[string]interface{}{"key": key, "error": err})
		return rec
	}
	if !stored {
		if existing, ok := h.loadDecision(ctx, key); ok {
			return existing
		}
	}
	return rec
}

func (h *Handler) saveDecision(ctx context.Context, key string, rec *cachedDecision) {
	data, err := json.Marshal(rec)
	if err != nil {
		return
	}
	if err := h.redis.Set(ctx, key, data, h.config.DecisionCacheTTL).Err(); err != nil {
		h.logger.Warn("decision cache update failed", map[string]interface{}{"key": key, "error": err})
	}
}

func (h *Handler) notify(ctx context.Context, input *Input, rec *cachedDecision) error {
	ev := DecisionEvent{
		EventID:          rec.EventID,
		LeadID:           input.LeadID,
		VehicleID:        input.VehicleID,
		ShouldAutoAssign: rec.Decision.ShouldAutoAssign,
		SalespersonID:    rec.Decision.SalespersonID,
		Score:            rec.Decision.Score,
		EligibleCount:    rec.Decision.EligibleCount,
		DecidedAt:        rec.DecidedAt,
	}

	if h.config.EventsEnabled && h.publisher != nil {
		if _, err := h.publisher.PublishEvent(ctx, h.config.TopicARN, EventTypeDecided, ev); err != nil {
			return errors.NewNotificationSendFailedError("sns", err)
		}
	}

	if !ev.ShouldAutoAssign && h.config.EmailEnabled && h.mailer != nil {
		subject, body := triageEmail(ev)
		if _, err := h.mailer.SendTextEmail(ctx, h.config.FromEmail, []string{h.config.TriageEmail}, subject, body); err != nil {
			return errors.NewNotificationSendFailedError("ses", err)
		}
	}
	return nil
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
