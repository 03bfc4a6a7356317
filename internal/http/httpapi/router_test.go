package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/GCUGrayArea/delicious-lotus/internal/adapter/memory"
	"github.com/GCUGrayArea/delicious-lotus/internal/domain"
	"github.com/GCUGrayArea/delicious-lotus/internal/http/handlers"
	"github.com/GCUGrayArea/delicious-lotus/internal/infra"
	"github.com/GCUGrayArea/delicious-lotus/internal/orchestrator"
	"github.com/GCUGrayArea/delicious-lotus/internal/providers"
	"github.com/GCUGrayArea/delicious-lotus/internal/providers/analysis"
)

type stubProvider struct {
	n     atomic.Int32
	fetch func(id string) (*domain.Prediction, error)
}

func (p *stubProvider) Name() string { return "replicate" }

func (p *stubProvider) Submit(ctx context.Context, req domain.SubmitRequest) (*domain.Prediction, error) {
	return &domain.Prediction{ID: fmt.Sprintf("pred-%d", p.n.Add(1)), Status: "starting"}, nil
}

func (p *stubProvider) Fetch(ctx context.Context, id string) (*domain.Prediction, error) {
	if p.fetch != nil {
		return p.fetch(id)
	}
	return nil, fmt.Errorf("prediction %s: %w", id, domain.ErrNotFound)
}

type testServer struct {
	handler  http.Handler
	app      *handlers.App
	jobs     *memory.JobStore
	imports  *memory.ImportQueue
	provider *stubProvider
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{
		jobs:     memory.NewJobStore(),
		imports:  memory.NewImportQueue(),
		provider: &stubProvider{},
	}
	engine, err := orchestrator.New(orchestrator.Options{
		Jobs:        ts.jobs,
		Marker:      memory.NewDedupMarker(),
		Events:      memory.NewPublisher(),
		Imports:     ts.imports,
		Providers:   providers.NewRegistry(ts.provider),
		Generations: memory.NewGenerationStore(),
		Planner:     analysis.NewStaticPlanner(),
	})
	require.NoError(t, err)
	ts.app = handlers.NewApp(engine, nil)
	ts.handler = NewRouter(ts.app, Options{Logger: *infra.DiscardLogger(), RateLimitPerMin: 2})
	return ts
}

func (ts *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthReportsDependencies(t *testing.T) {
	ts := newTestServer(t)
	ts.app.Checks["redis"] = func(ctx context.Context) error { return nil }

	rec := ts.do(http.MethodGet, "/v1/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	require.Equal(t, "ok", body["status"])

	ts.app.Checks["postgres"] = func(ctx context.Context) error { return errors.New("refused") }
	rec = ts.do(http.MethodGet, "/v1/healthz", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body = decode[map[string]any](t, rec)
	require.Equal(t, "degraded", body["status"])
}

func TestWebhookEndpoint(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/v1/webhooks/replicate", `{"id":"pred-9","status":"succeeded","output":"https://cdn.example.com/a.mp4","logs":"done","metrics":{"predict_time":12.5}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, map[string]string{"status": "ok", "job_id": "pred-9"}, decode[map[string]string](t, rec))
	require.Len(t, ts.imports.Requests(), 1)

	rec = ts.do(http.MethodPost, "/v1/webhooks/replicate", `{"status":"succeeded"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(http.MethodPost, "/v1/webhooks/replicate", `{not json`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestJobStatusEndpoint(t *testing.T) {
	ts := newTestServer(t)
	require.NoError(t, ts.jobs.Put(context.Background(), domain.JobRecord{
		JobID:     "pred-done",
		Status:    domain.JobStatusSucceeded,
		ResultURL: "https://cdn.example.com/done.mp4",
	}, 0))

	rec := ts.do(http.MethodGet, "/v1/jobs/pred-done?auto_import=false", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	require.Equal(t, "succeeded", body["status"])
	require.Equal(t, "https://cdn.example.com/done.mp4", body["result_url"])
	require.Contains(t, body, "output")
	require.Contains(t, body, "error")
	require.Empty(t, ts.imports.Requests())

	rec = ts.do(http.MethodGet, "/v1/jobs/pred-done", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, ts.imports.Requests(), 1)

	rec = ts.do(http.MethodGet, "/v1/jobs/pred-done?auto_import=maybe", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(http.MethodGet, "/v1/jobs/pred-unknown", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSubmitJobEndpoint(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/v1/jobs", `{"model":"google/nano-banana","input":{"prompt":"a red bicycle"}}`)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	body := decode[map[string]string](t, rec)
	require.Equal(t, "queued", body["status"])
	require.Equal(t, "image", body["generation_type"])
	jobID := body["job_id"]
	require.NotEmpty(t, jobID)

	stored, err := ts.jobs.Get(context.Background(), jobID)
	require.NoError(t, err)
	require.Equal(t, "a red bicycle", stored.Prompt)
	require.Equal(t, "google/nano-banana", stored.Model)

	rec = ts.do(http.MethodPost, "/v1/webhooks/replicate", `{"id":"`+jobID+`","status":"succeeded","output":["https://cdn.example.com/bike.png"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	reqs := ts.imports.Requests()
	require.Len(t, reqs, 1)
	require.Equal(t, domain.GenerationTypeImage, reqs[0].GenerationType)
	require.True(t, strings.HasPrefix(reqs[0].DestinationName, "AI_Image_"))
	require.True(t, strings.HasSuffix(reqs[0].DestinationName, ".png"))

	rec = ts.do(http.MethodPost, "/v1/jobs", `{"model":"someone/custom-model","input":{"prompt":"x"}}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDispatchClipsEndpoint(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/v1/clips", `{"generation_id":"gen-1","scenes":[{"id":"scene_1"}],"micro_prompts":["opening shot",{"prompt_text":"closing shot"}]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode[struct {
		VideoResults []domain.ClipSummary `json:"video_results"`
	}](t, rec)
	require.Len(t, body.VideoResults, 2)
	require.Equal(t, "scene_1", body.VideoResults[0].SceneID)
	require.Equal(t, "closing shot", body.VideoResults[1].Prompt)
	for _, c := range body.VideoResults {
		require.Equal(t, domain.JobStatusQueued, c.Status)
		job, err := ts.jobs.Get(context.Background(), c.JobID)
		require.NoError(t, err)
		require.Equal(t, "gen-1", job.GenerationID)
	}

	rec = ts.do(http.MethodPost, "/v1/clips", `{"micro_prompts":["no generation"]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGenerationEndpoints(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/v1/generations", `{"prompt":"product teaser","parameters":{"duration_seconds":10}}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[domain.GenerationRecord](t, rec)
	require.Len(t, created.Clips, 2)
	require.Equal(t, domain.GenerationStatusQueued, created.Status)

	rec = ts.do(http.MethodGet, "/v1/generations/"+created.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[domain.GenerationRecord](t, rec)
	require.Equal(t, created.ID, got.ID)

	rec = ts.do(http.MethodGet, "/v1/generations?limit=5&status=queued", "")
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[struct {
		Items []domain.GenerationRecord `json:"items"`
		Total int                       `json:"total"`
		Limit int                       `json:"limit"`
	}](t, rec)
	require.Equal(t, 1, page.Total)
	require.Equal(t, 5, page.Limit)

	require.Equal(t, http.StatusBadRequest, ts.do(http.MethodGet, "/v1/generations?status=bogus", "").Code)
	require.Equal(t, http.StatusBadRequest, ts.do(http.MethodGet, "/v1/generations?limit=-1", "").Code)
	require.Equal(t, http.StatusNotFound, ts.do(http.MethodGet, "/v1/generations/missing", "").Code)
	require.Equal(t, http.StatusBadRequest, ts.do(http.MethodPost, "/v1/generations", `{"prompt":"  "}`).Code)
}

func TestCreateGenerationIsRateLimited(t *testing.T) {
	ts := newTestServer(t)
	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, ts.do(http.MethodPost, "/v1/generations", `{"prompt":"again"}`).Code)
	}
	require.Equal(t, []int{http.StatusCreated, http.StatusCreated, http.StatusTooManyRequests}, codes)
}

func TestOpenAPIDocumentIsServed(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(http.MethodGet, "/v1/openapi.json", "")
	require.Equal(t, http.StatusOK, rec.Code)
	doc := decode[map[string]any](t, rec)
	paths, ok := doc["paths"].(map[string]any)
	require.True(t, ok)
	require.Contains(t, paths, "/v1/jobs/{job_id}")
	require.Contains(t, paths, "/v1/jobs")
	require.Contains(t, paths, "/v1/clips")
}

func TestOpenAPIDocumentHonoursETag(t *testing.T) {
	ts := newTestServer(t)
	first := ts.do(http.MethodGet, "/v1/openapi.json", "")
	require.Equal(t, http.StatusOK, first.Code)
	etag := first.Header().Get("ETag")
	require.NotEmpty(t, etag)

	req := httptest.NewRequest(http.MethodGet, "/v1/openapi.json", nil)
	req.Header.Set("If-None-Match", `"stale", W/`+etag)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotModified, rec.Code)
	require.Zero(t, rec.Body.Len())

	req = httptest.NewRequest(http.MethodGet, "/v1/openapi.json", nil)
	req.Header.Set("If-None-Match", `"stale"`)
	rec = httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotZero(t, rec.Body.Len())
}
