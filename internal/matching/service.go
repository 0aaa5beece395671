package matching

import (
	"context"
	"fmt"
	"time"

	"dealership-workers/internal/common/logger"
	"dealership-workers/internal/common/metrics"
	"dealership-workers/internal/models"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// Repository is what the service needs from the CRM's data store.
type Repository interface {
	GetVehicle(ctx context.Context, vehicleID string) (*models.Vehicle, error)
	ListActiveSalespeople(ctx context.Context) ([]models.Salesperson, error)
	CountOpenLeads(ctx context.Context, salespersonID string) (int, error)
	CountLeadsReceivedAndConverted(ctx context.Context, salespersonID string, since time.Time) (received, converted int, err error)
}

type Service struct {
	engine *Engine
	repo   Repository
	tracer trace.Tracer
	logger logger.Logger
	now    func() time.Time
}

func NewService(engine *Engine, repo Repository, log logger.Logger) *Service {
	return &Service{
		engine: engine,
		repo:   repo,
		tracer: otel.Tracer("dealership-workers/matching"),
		logger: log.WithFields(map[string]interface{}{"component": "matching-service"}),
		now:    time.Now,
	}
}

func (s *Service) Engine() *Engine {
	return s.engine
}

// Rank runs a full matching pass: vehicle lookup, roster, fresh workload
// counts, eligibility, this month's performance and scoring.
func (s *Service) Rank(ctx context.Context, vehicleID string) (*Ranking, error) {
	ctx, span := s.tracer.Start(ctx, "matching.Rank", trace.WithAttributes(
		attribute.String("vehicle.id", vehicleID),
	))
	defer span.End()

	start := time.Now()
	defer func() {
		metrics.MatchingPassDuration.Observe(time.Since(start).Seconds())
	}()

	ranking, err := s.rank(ctx, vehicleID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("matching.scored", len(ranking.Candidates)),
		attribute.Int("matching.excluded", len(ranking.Excluded)),
	)
	return ranking, nil
}

func (s *Service) rank(ctx context.Context, vehicleID string) (*Ranking, error) {
	vehicle, err := s.repo.GetVehicle(ctx, vehicleID)
	if err != nil {
		return nil, err
	}

	people, err := s.repo.ListActiveSalespeople(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active salespeople: %w", err)
	}

	openLeads, err := s.fetchOpenLeads(ctx, people)
	if err != nil {
		return nil, err
	}

	candidates, excluded := s.engine.FilterEligible(people, openLeads)

	if err := s.fetchPerformance(ctx, candidates); err != nil {
		return nil, err
	}

	scored, lateExcluded := s.engine.Score(vehicle, candidates)
	excluded = append(excluded, lateExcluded...)

	s.logger.Debug("matching pass complete", map[string]interface{}{
		"vehicleId": vehicleID,
		"roster":    len(people),
		"scored":    len(scored),
		"excluded":  len(excluded),
	})

	return &Ranking{Vehicle: vehicle, Candidates: scored, Excluded: excluded}, nil
}

func (s *Service) fetchOpenLeads(ctx context.Context, people []models.Salesperson) (map[string]int, error) {
	counts := make([]int, len(people))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.engine.settings.FetchConcurrency)
	for i := range people {
		g.Go(func() error {
			n, err := s.repo.CountOpenLeads(gctx, people[i].ID)
			if err != nil {
				return fmt.Errorf("count open leads for %s: %w", people[i].ID, err)
			}
			counts[i] = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	open := make(map[string]int, len(people))
	for i, sp := range people {
		open[sp.ID] = counts[i]
	}
	return open, nil
}

func (s *Service) fetchPerformance(ctx context.Context, candidates []Candidate) error {
	since := MonthStart(s.now())

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.engine.settings.FetchConcurrency)
	for i := range candidates {
		c := &candidates[i]
		g.Go(func() error {
			received, converted, err := s.repo.CountLeadsReceivedAndConverted(gctx, c.Salesperson.ID, since)
			if err != nil {
				return fmt.Errorf("count leads for %s: %w", c.Salesperson.ID, err)
			}
			c.Performance = PerformanceSnapshot{Received: received, Converted: converted}
			return nil
		})
	}
	return g.Wait()
}

// GetTopRecommendations returns up to limit ranked candidates. An empty
// slice means nobody is eligible.
func (s *Service) GetTopRecommendations(ctx context.Context, vehicleID string, limit int) ([]ScoredCandidate, error) {
	ranking, err := s.Rank(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	return s.engine.TopRecommendations(ranking.Candidates, limit), nil
}

// ShouldAutoAssign never writes; the caller performs the assignment.
func (s *Service) ShouldAutoAssign(ctx context.Context, vehicleID string) (AssignmentDecision, error) {
	ranking, err := s.Rank(ctx, vehicleID)
	if err != nil {
		return AssignmentDecision{}, err
	}

	decision := s.engine.Decide(ranking.Candidates)
	outcome := "manual"
	if decision.ShouldAutoAssign {
		outcome = "auto"
	}
	metrics.MatchingAutoAssignDecisions.WithLabelValues(outcome).Inc()
	return decision, nil
}

// MonthStart is midnight on the first day of t's month, in t's location.
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}
