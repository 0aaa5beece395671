// internal/workers/leads/auto-assign-lead/handler_test.go
package autoassignlead

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"sync/atomic"
	"testing"
	"time"

	"dealership-workers/internal/common/errors"
	"dealership-workers/internal/common/logger"
	"dealership-workers/internal/matching"
	"dealership-workers/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

var fixedNow = time.Date(2024, time.June, 10, 14, 30, 0, 0, time.UTC)

type stubRepository struct {
	people    []models.Salesperson
	openLeads map[string]int
	perf      map[string][2]int
	calls     atomic.Int32
}

func (r *stubRepository) GetVehicle(_ context.Context, id string) (*models.Vehicle, error) {
	r.calls.Add(1)
	if id != "veh-suv" {
		return nil, errors.NewVehicleNotFoundError(id)
	}
	return &models.Vehicle{ID: id, Category: models.CategorySUV, SalePrice: decimal.NewFromInt(120000)}, nil
}

func (r *stubRepository) ListActiveSalespeople(context.Context) ([]models.Salesperson, error) {
	return r.people, nil
}

func (r *stubRepository) CountOpenLeads(_ context.Context, id string) (int, error) {
	return r.openLeads[id], nil
}

func (r *stubRepository) CountLeadsReceivedAndConverted(_ context.Context, id string, _ time.Time) (int, int, error) {
	p := r.perf[id]
	return p[0], p[1], nil
}

// strongRoster has S1 scoring 93, which clears the threshold.
func strongRoster() *stubRepository {
	return &stubRepository{
		people: []models.Salesperson{
			{ID: "S1", Level: models.LevelSenior, Specialties: []models.Category{models.CategorySUV}, MaxLeadCapacity: 10},
			{ID: "S2", Level: models.LevelJunior, Specialties: []models.Category{models.CategorySedan}, MaxLeadCapacity: 5},
		},
		openLeads: map[string]int{"S1": 1, "S2": 5},
		perf:      map[string][2]int{"S1": {10, 4}},
	}
}

// weakRoster only has a junior non-specialist, well below the threshold.
func weakRoster() *stubRepository {
	return &stubRepository{
		people:    []models.Salesperson{{ID: "S9", Level: models.LevelJunior, MaxLeadCapacity: 4}},
		openLeads: map[string]int{"S9": 2},
		perf:      map[string][2]int{},
	}
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishEvent(ctx context.Context, topicARN, eventType string, payload interface{}) (string, error) {
	args := m.Called(ctx, topicARN, eventType, payload)
	return args.String(0), args.Error(1)
}

type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) SendTextEmail(ctx context.Context, from string, to []string, subject, body string) (string, error) {
	args := m.Called(ctx, from, to, subject, body)
	return args.String(0), args.Error(1)
}

func createTestConfig() *Config {
	return &Config{
		Timeout:          5 * time.Second,
		DecisionCacheTTL: time.Hour,
		EventsEnabled:    true,
		TopicARN:         "arn:aws:sns:us-east-1:000000000000:lead-events",
		EmailEnabled:     true,
		FromEmail:        "crm@dealer.test",
		TriageEmail:      "sales-desk@dealer.test",
	}
}

func setupRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	return redis.NewClient(&redis.Options{Addr: mr.Addr()}), mr
}

func createTestHandler(t *testing.T, repo matching.Repository, rdb *redis.Client, pub Publisher, mailer Mailer) *Handler {
	t.Helper()
	log := logger.NewTestLogger(t)
	engine, err := matching.NewEngine(matching.DefaultSettings(), log)
	require.NoError(t, err)

	h := NewHandler(createTestConfig(), matching.NewService(engine, repo, log), rdb, pub, mailer, log)
	h.now = func() time.Time { return fixedNow }
	h.newID = func() string { return "evt-1" }
	return h
}

func readCached(t *testing.T, mr *miniredis.Miniredis, leadID string) cachedDecision {
	t.Helper()
	raw, err := mr.Get(cacheKey(leadID))
	require.NoError(t, err)
	var rec cachedDecision
	require.NoError(t, json.Unmarshal([]byte(raw), &rec))
	return rec
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_AutoAssigns(t *testing.T) {
	rdb, mr := setupRedis(t)
	repo := strongRoster()

	pub := new(mockPublisher)
	pub.On("PublishEvent", mock.Anything, "arn:aws:sns:us-east-1:000000000000:lead-events", EventTypeDecided,
		DecisionEvent{
			EventID:          "evt-1",
			LeadID:           "lead-1",
			VehicleID:        "veh-suv",
			ShouldAutoAssign: true,
			SalespersonID:    "S1",
			Score:            93,
			EligibleCount:    1,
			DecidedAt:        fixedNow,
		}).Return("msg-1", nil).Once()
	mailer := new(mockMailer)

	h := createTestHandler(t, repo, rdb, pub, mailer)

	output, err := h.Execute(context.Background(), &Input{LeadID: "lead-1", VehicleID: "veh-suv"})
	require.NoError(t, err)
	assert.Equal(t, &Output{ShouldAutoAssign: true, SalespersonID: "S1", Score: 93}, output)

	rec := readCached(t, mr, "lead-1")
	assert.True(t, rec.Notified)
	assert.Equal(t, "S1", rec.Decision.SalespersonID)
	assert.Equal(t, time.Hour, mr.TTL(cacheKey("lead-1")))

	pub.AssertExpectations(t)
	mailer.AssertNotCalled(t, "SendTextEmail", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandler_Execute_RedeliveryUsesCachedDecision(t *testing.T) {
	rdb, _ := setupRedis(t)
	repo := strongRoster()

	pub := new(mockPublisher)
	pub.On("PublishEvent", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("msg-1", nil)

	h := createTestHandler(t, repo, rdb, pub, new(mockMailer))
	input := &Input{LeadID: "lead-2", VehicleID: "veh-suv"}

	first, err := h.Execute(context.Background(), input)
	require.NoError(t, err)

	// workload changes must not flip a decision already taken for this lead
	repo.openLeads["S1"] = 10
	second, err := h.Execute(context.Background(), input)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), repo.calls.Load())
	pub.AssertNumberOfCalls(t, "PublishEvent", 1)
}

func TestHandler_Execute_CachedDecisionSkipsRepository(t *testing.T) {
	rdb, mr := setupRedis(t)
	repo := strongRoster()

	cached, _ := json.Marshal(cachedDecision{
		Decision:  matching.AssignmentDecision{ShouldAutoAssign: true, SalespersonID: "S7", Score: 88},
		EventID:   "evt-old",
		DecidedAt: fixedNow.Add(-time.Hour),
		Notified:  true,
	})
	require.NoError(t, mr.Set(cacheKey("lead-3"), string(cached)))

	pub := new(mockPublisher)
	h := createTestHandler(t, repo, rdb, pub, new(mockMailer))

	output, err := h.Execute(context.Background(), &Input{LeadID: "lead-3", VehicleID: "veh-suv"})
	require.NoError(t, err)
	assert.Equal(t, &Output{ShouldAutoAssign: true, SalespersonID: "S7", Score: 88}, output)
	assert.Zero(t, repo.calls.Load())
	pub.AssertNotCalled(t, "PublishEvent", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandler_Execute_ManualTriageEmail(t *testing.T) {
	rdb, _ := setupRedis(t)

	pub := new(mockPublisher)
	pub.On("PublishEvent", mock.Anything, mock.Anything, EventTypeDecided,
		mock.MatchedBy(func(ev DecisionEvent) bool { return !ev.ShouldAutoAssign && ev.SalespersonID == "" })).
		Return("msg-2", nil)

	mailer := new(mockMailer)
	mailer.On("SendTextEmail", mock.Anything, "crm@dealer.test", []string{"sales-desk@dealer.test"},
		"Lead lead-4 needs manual assignment",
		mock.MatchedBy(func(body string) bool { return assert.Contains(t, body, "below the auto-assignment threshold") })).
		Return("ses-1", nil).Once()

	h := createTestHandler(t, weakRoster(), rdb, pub, mailer)

	output, err := h.Execute(context.Background(), &Input{LeadID: "lead-4", VehicleID: "veh-suv"})
	require.NoError(t, err)
	assert.False(t, output.ShouldAutoAssign)
	assert.Empty(t, output.SalespersonID)
	assert.Less(t, output.Score, 80)

	pub.AssertExpectations(t)
	mailer.AssertExpectations(t)
}

func TestHandler_Execute_NobodyEligible(t *testing.T) {
	rdb, _ := setupRedis(t)
	repo := strongRoster()
	repo.openLeads = map[string]int{"S1": 10, "S2": 5}

	pub := new(mockPublisher)
	pub.On("PublishEvent", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("msg-3", nil)
	mailer := new(mockMailer)
	mailer.On("SendTextEmail", mock.Anything, mock.Anything, mock.Anything, mock.Anything,
		mock.MatchedBy(func(body string) bool { return assert.Contains(t, body, "No salesperson had capacity") })).
		Return("ses-2", nil)

	h := createTestHandler(t, repo, rdb, pub, mailer)

	output, err := h.Execute(context.Background(), &Input{LeadID: "lead-5", VehicleID: "veh-suv"})
	require.NoError(t, err)
	assert.Equal(t, &Output{ShouldAutoAssign: false}, output)
	mailer.AssertExpectations(t)
}

func TestHandler_Execute_PublishFailureIsRetriedWithSameEvent(t *testing.T) {
	rdb, mr := setupRedis(t)
	repo := strongRoster()

	pub := new(mockPublisher)
	pub.On("PublishEvent", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("", stderrors.New("throttled")).Once()

	h := createTestHandler(t, repo, rdb, pub, new(mockMailer))
	input := &Input{LeadID: "lead-6", VehicleID: "veh-suv"}

	_, err := h.Execute(context.Background(), input)
	require.Error(t, err)
	stdErr, ok := errors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeNotificationSendFailed, stdErr.Code)
	assert.True(t, stdErr.Retryable)
	assert.False(t, readCached(t, mr, "lead-6").Notified)

	pub.On("PublishEvent", mock.Anything, mock.Anything, mock.Anything,
		mock.MatchedBy(func(ev DecisionEvent) bool { return ev.EventID == "evt-1" })).
		Return("msg-4", nil).Once()
	h.newID = func() string { return "evt-should-not-be-used" }

	output, err := h.Execute(context.Background(), input)
	require.NoError(t, err)
	assert.True(t, output.ShouldAutoAssign)
	assert.Equal(t, int32(1), repo.calls.Load(), "the retry reuses the cached decision")
	assert.True(t, readCached(t, mr, "lead-6").Notified)
	pub.AssertExpectations(t)
}

func TestHandler_Execute_VehicleNotFound(t *testing.T) {
	rdb, mr := setupRedis(t)
	pub := new(mockPublisher)

	h := createTestHandler(t, strongRoster(), rdb, pub, new(mockMailer))

	_, err := h.Execute(context.Background(), &Input{LeadID: "lead-7", VehicleID: "veh-gone"})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeVehicleNotFound))
	assert.False(t, mr.Exists(cacheKey("lead-7")))
	pub.AssertNotCalled(t, "PublishEvent", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandler_Execute_NotificationsDisabled(t *testing.T) {
	rdb, _ := setupRedis(t)

	h := createTestHandler(t, weakRoster(), rdb, nil, nil)
	h.config.EventsEnabled = false
	h.config.EmailEnabled = false

	output, err := h.Execute(context.Background(), &Input{LeadID: "lead-8", VehicleID: "veh-suv"})
	require.NoError(t, err)
	assert.False(t, output.ShouldAutoAssign)
}

func TestHandler_Execute_RedisUnavailable(t *testing.T) {
	rdb, redisMock := redismock.NewClientMock()
	repo := strongRoster()

	pub := new(mockPublisher)
	pub.On("PublishEvent", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("msg-5", nil)

	h := createTestHandler(t, repo, rdb, pub, new(mockMailer))

	rec := cachedDecision{
		Decision:  matching.AssignmentDecision{ShouldAutoAssign: true, SalespersonID: "S1", Score: 93, EligibleCount: 1},
		EventID:   "evt-1",
		DecidedAt: fixedNow,
	}
	pending, _ := json.Marshal(rec)
	rec.Notified = true
	done, _ := json.Marshal(rec)

	key := cacheKey("lead-9")
	redisMock.ExpectGet(key).SetErr(stderrors.New("connection refused"))
	redisMock.ExpectSetNX(key, pending, time.Hour).SetErr(stderrors.New("connection refused"))
	redisMock.ExpectSet(key, done, time.Hour).SetErr(stderrors.New("connection refused"))

	output, err := h.Execute(context.Background(), &Input{LeadID: "lead-9", VehicleID: "veh-suv"})
	require.NoError(t, err)
	assert.Equal(t, &Output{ShouldAutoAssign: true, SalespersonID: "S1", Score: 93}, output)
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

func TestHandler_Execute_LostRaceUsesWinnerDecision(t *testing.T) {
	rdb, redisMock := redismock.NewClientMock()
	repo := strongRoster()

	pub := new(mockPublisher)
	h := createTestHandler(t, repo, rdb, pub, new(mockMailer))

	ours, _ := json.Marshal(cachedDecision{
		Decision:  matching.AssignmentDecision{ShouldAutoAssign: true, SalespersonID: "S1", Score: 93, EligibleCount: 1},
		EventID:   "evt-1",
		DecidedAt: fixedNow,
	})
	winner, _ := json.Marshal(cachedDecision{
		Decision:  matching.AssignmentDecision{ShouldAutoAssign: true, SalespersonID: "S1", Score: 91, EligibleCount: 1},
		EventID:   "evt-winner",
		DecidedAt: fixedNow.Add(-time.Second),
		Notified:  true,
	})

	key := cacheKey("lead-10")
	redisMock.ExpectGet(key).RedisNil()
	redisMock.ExpectSetNX(key, ours, time.Hour).SetVal(false)
	redisMock.ExpectGet(key).SetVal(string(winner))

	output, err := h.Execute(context.Background(), &Input{LeadID: "lead-10", VehicleID: "veh-suv"})
	require.NoError(t, err)
	assert.Equal(t, 91, output.Score)
	pub.AssertNotCalled(t, "PublishEvent", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

// ==========================
// Input Validation Tests
// ==========================

func TestParseInput(t *testing.T) {
	tests := []struct {
		name      string
		variables string
		wantErr   bool
	}{
		{name: "valid", variables: `{"leadId":"lead-1","vehicleId":"veh-1"}`},
		{name: "extra variables", variables: `{"leadId":"lead-1","vehicleId":"veh-1","source":"web"}`},
		{name: "missing lead", variables: `{"vehicleId":"veh-1"}`, wantErr: true},
		{name: "missing vehicle", variables: `{"leadId":"lead-1"}`, wantErr: true},
		{name: "empty lead", variables: `{"leadId":"","vehicleId":"veh-1"}`, wantErr: true},
		{name: "numeric ids", variables: `{"leadId":1,"vehicleId":2}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input, err := ParseInput(tt.variables)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidJobInput))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "lead-1", input.LeadID)
			assert.Equal(t, "veh-1", input.VehicleID)
		})
	}
}

func TestTriageEmail(t *testing.T) {
	tests := []struct {
		name     string
		event    DecisionEvent
		contains string
		absent   string
	}{
		{
			name:     "below threshold",
			event:    DecisionEvent{LeadID: "lead-1", VehicleID: "veh-1", Score: 64, EligibleCount: 2, DecidedAt: fixedNow},
			contains: "Best candidate scored 64",
			absent:   "No salesperson had capacity",
		},
		{
			name:     "eligible candidate scored zero",
			event:    DecisionEvent{LeadID: "lead-1", VehicleID: "veh-1", Score: 0, EligibleCount: 1, DecidedAt: fixedNow},
			contains: "Best candidate scored 0",
			absent:   "No salesperson had capacity",
		},
		{
			name:     "nobody eligible",
			event:    DecisionEvent{LeadID: "lead-1", VehicleID: "veh-1", DecidedAt: fixedNow},
			contains: "No salesperson had capacity",
			absent:   "Best candidate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subject, body := triageEmail(tt.event)
			assert.Equal(t, "Lead lead-1 needs manual assignment", subject)
			assert.Contains(t, body, "vehicle veh-1")
			assert.Contains(t, body, tt.contains)
			assert.NotContains(t, body, tt.absent)
		})
	}
}
