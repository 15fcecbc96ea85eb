package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"

	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/internal/config"
	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/internal/credentials"
	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/internal/guardrail"
	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/internal/models"
	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/internal/oracle"
	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/internal/planner"
	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/internal/scheduler"
	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/internal/store"
	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/internal/verify"
	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/pkg/logging"
)

type stubPlanningOracle struct {
	plan *models.Plan
}

func (s *stubPlanningOracle) Generate(_ context.Context, pc oracle.PlanningContext) (*models.Plan, error) {
	plan := *s.plan
	plan.WeekStartDate = pc.WeekStartDate
	return &plan, nil
}

type stubSafetyOracle struct {
	verdict *oracle.SafetyVerdict
}

func (s *stubSafetyOracle) Evaluate(_ context.Context, _ models.CompletedPost, _ []models.MediaAsset) (*oracle.SafetyVerdict, error) {
	return s.verdict, nil
}

func setupRouter(t *testing.T, planOracle oracle.PlanningOracle, safetyOracle oracle.SafetyOracle) (*gin.Engine, sqlmock.Sqlmock) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := logging.NewLogger()
	st := store.New(db, logger)

	policy := models.GuardrailPolicy{
		MinPosts: 1, MaxPosts: 50,
		MinSeeds: 1, MaxSeeds: 50,
		MinVideos: 0, MaxVideos: 50,
		MinImages: 0, MaxImages: 50,
	}
	platforms := map[string]config.PlatformSchedule{
		"instagram": {IntervalHours: 24, InitialDelayHours: 2},
	}

	Init(Dependencies{
		Logger:       logger,
		Store:        st,
		Runner:       planner.NewRunner(planOracle, guardrail.NewValidator(policy), 3, logger, nil),
		Materializer: planner.NewMaterializer(st, logger, nil),
		Scheduler:    scheduler.New(st, platforms, logger, nil),
		Verifier:     verify.NewCoordinator(st, safetyOracle, logger, nil),
		Credentials:  credentials.NewCache(st, logger),
	})

	router := gin.New()
	router.POST("/api/runs/plan", GeneratePlan)
	router.POST("/api/posts/:id/schedule", SchedulePost)
	router.POST("/api/platforms/:platform/reindex", ReindexPlatform)
	router.POST("/api/posts/:id/verify", VerifyPost)
	router.GET("/api/seeds", ListSeeds)
	router.PUT("/api/platforms/:platform/credentials", UpsertCredential)

	return router, mock
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func seedColumns() []string {
	return []string{
		"id", "kind", "title", "description", "location",
		"window_start", "window_end", "sources", "created_at", "updated_at",
	}
}

func TestGeneratePlanSuccess(t *testing.T) {
	planOracle := &stubPlanningOracle{plan: &models.Plan{
		Allocations: []models.Allocation{{
			SeedID:       "seed-1",
			SeedKind:     models.SeedKindTrend,
			IGImagePosts: 4,
			ImageBudget:  2,
		}},
		Reasoning: "single trending seed",
	}}
	router, mock := setupRouter(t, planOracle, &stubSafetyOracle{})

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT (.+) FROM campaign.canonical_seeds").
		WillReturnRows(sqlmock.NewRows(seedColumns()).
			AddRow("seed-1", "trend", "Trend", "desc", "", nil, nil, []byte(`[]`), now, now))
	mock.ExpectExec("INSERT INTO campaign.content_tasks").
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := doJSON(t, router, http.MethodPost, "/api/runs/plan", map[string]string{
		"week_start_date": "2026-03-02",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Success  bool                         `json:"success"`
		Attempts int                          `json:"attempts"`
		Tasks    []models.ContentCreationTask `json:"tasks"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success || resp.Attempts != 1 || len(resp.Tasks) != 1 {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestGeneratePlanNoSeeds(t *testing.T) {
	router, mock := setupRouter(t, &stubPlanningOracle{plan: &models.Plan{}}, &stubSafetyOracle{})

	mock.ExpectQuery("SELECT (.+) FROM campaign.canonical_seeds").
		WillReturnRows(sqlmock.NewRows(seedColumns()))

	w := doJSON(t, router, http.MethodPost, "/api/runs/plan", map[string]string{
		"week_start_date": "2026-03-02",
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
}

func TestGeneratePlanBadDate(t *testing.T) {
	router, _ := setupRouter(t, &stubPlanningOracle{plan: &models.Plan{}}, &stubSafetyOracle{})

	w := doJSON(t, router, http.MethodPost, "/api/runs/plan", map[string]string{
		"week_start_date": "next monday",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestSchedulePostNotFound(t *testing.T) {
	router, mock := setupRouter(t, &stubPlanningOracle{plan: &models.Plan{}}, &stubSafetyOracle{})

	mock.ExpectQuery("SELECT (.+) FROM campaign.completed_posts").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	w := doJSON(t, router, http.MethodPost, "/api/posts/missing/schedule", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", w.Code, w.Body.String())
	}
}

func TestReindexEmptyPlatform(t *testing.T) {
	router, mock := setupRouter(t, &stubPlanningOracle{plan: &models.Plan{}}, &stubSafetyOracle{})

	mock.ExpectQuery("SELECT (.+) FROM campaign.completed_posts").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "task_id", "platform", "post_type", "body", "media_ids",
			"scheduled_posting_time", "verification_group_id",
			"is_verification_primary", "verification_status", "status", "created_at",
		}))

	w := doJSON(t, router, http.MethodPost, "/api/platforms/instagram/reindex", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Reindexed int `json:"reindexed"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Reindexed != 0 {
		t.Errorf("expected 0 reindexed, got %d", resp.Reindexed)
	}
}

func TestListSeeds(t *testing.T) {
	router, mock := setupRouter(t, &stubPlanningOracle{plan: &models.Plan{}}, &stubSafetyOracle{})

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT (.+) FROM campaign.canonical_seeds").
		WillReturnRows(sqlmock.NewRows(seedColumns()).
			AddRow("seed-1", "news_event", "Fare Increase", "d", "Philadelphia", nil, nil, []byte(`[]`), now, now))

	w := doJSON(t, router, http.MethodGet, "/api/seeds", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp struct {
		Seeds []models.CanonicalSeed `json:"seeds"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Seeds) != 1 || resp.Seeds[0].Kind != models.SeedKindNewsEvent {
		t.Errorf("unexpected seeds: %+v", resp.Seeds)
	}
}

func TestUpsertCredentialRequiresToken(t *testing.T) {
	router, _ := setupRouter(t, &stubPlanningOracle{plan: &models.Plan{}}, &stubSafetyOracle{})

	w := doJSON(t, router, http.MethodPut, "/api/platforms/instagram/credentials", map[string]string{
		"account_ref": "acct-1",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestUpsertCredentialStoresAndInvalidates(t *testing.T) {
	router, mock := setupRouter(t, &stubPlanningOracle{plan: &models.Plan{}}, &stubSafetyOracle{})

	mock.ExpectExec("INSERT INTO campaign.platform_credentials").
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := doJSON(t, router, http.MethodPut, "/api/platforms/instagram/credentials", map[string]string{
		"access_token": "tok-1",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
