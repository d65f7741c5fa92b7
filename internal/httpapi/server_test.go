package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/compiq/compiq/internal/comps"
	"github.com/compiq/compiq/internal/store"
)

type stubRunner struct {
	session *comps.SearchSession
	err     error
	lastCfg comps.SearchConfig
}

func (s *stubRunner) Run(_ context.Context, _ comps.TargetInput, cfg comps.SearchConfig) (*comps.SearchSession, error) {
	s.lastCfg = cfg
	return s.session, s.err
}

func testServer(t *testing.T, runner SearchRunner) (http.Handler, *store.SQLiteStore) {
	t.Helper()
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	cfg := comps.SearchConfig{MinRequired: 3, MaxResults: 10, MaxAttempts: 3}
	return NewServer(runner, st, cfg), st
}

func doneSession() *comps.SearchSession {
	return &comps.SearchSession{
		ID:     "s1",
		Target: comps.TargetProfile{Name: "Scale Systems"},
		Round:  2,
		Accepted: []comps.ScoredComparable{
			{Candidate: comps.Candidate{Name: "Alpha Corp", Ticker: "ALPH"}, CompositeScore: 4.2},
		},
		Status:       comps.StatusSatisfied,
		AttemptsUsed: 1,
		StartedAt:    time.Now().UTC().Add(-time.Minute),
		CompletedAt:  time.Now().UTC(),
	}
}

func TestPostSearch(t *testing.T) {
	runner := &stubRunner{session: doneSession()}
	h, _ := testServer(t, runner)

	body := `{"name":"Scale Systems","description":"data labeling","min_required":2,"max_attempts":5}`
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/searches", strings.NewReader(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var env comps.ResponseEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.SearchID != "s1" || env.Status != comps.StatusSatisfied || len(env.Comparables) != 1 {
		t.Fatalf("unexpected envelope: %+v", env)
	}
	if env.ReportMarkdown == "" {
		t.Fatal("envelope missing report")
	}
	if runner.lastCfg.MinRequired != 2 || runner.lastCfg.MaxAttempts != 5 || runner.lastCfg.MaxResults != 10 {
		t.Fatalf("request overrides not applied: %+v", runner.lastCfg)
	}
}

func TestPostSearchConfigError(t *testing.T) {
	runner := &stubRunner{err: &comps.ConfigError{Field: "min_required", Reason: "must be at least 1"}}
	h, _ := testServer(t, runner)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/searches", strings.NewReader(`{"name":"X","description":"y"}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestPostSearchProfileError(t *testing.T) {
	runner := &stubRunner{err: &comps.ProfileError{Err: context.DeadlineExceeded}}
	h, _ := testServer(t, runner)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/searches", strings.NewReader(`{"name":"X","description":"y"}`)))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
}

func TestGetSearchByID(t *testing.T) {
	runner := &stubRunner{session: doneSession()}
	h, st := testServer(t, runner)

	snap := doneSession().Snapshot()
	if err := st.SaveSession(context.Background(), snap); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/searches/s1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got comps.SessionSnapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ID != "s1" || len(got.Accepted) != 1 {
		t.Fatalf("unexpected snapshot: %+v", got)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/searches/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing search status = %d, want 404", rec.Code)
	}
}

func TestListSearchesAndCompanies(t *testing.T) {
	runner := &stubRunner{session: doneSession()}
	h, st := testServer(t, runner)
	if err := st.SaveSession(context.Background(), doneSession().Snapshot()); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/searches", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Scale Systems") {
		t.Fatalf("list status = %d, body %s", rec.Code, rec.Body)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/companies?q=alpha", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Alpha Corp") {
		t.Fatalf("companies status = %d, body %s", rec.Code, rec.Body)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/companies", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing q status = %d, want 400", rec.Code)
	}
}

func TestHealthAndStats(t *testing.T) {
	h, _ := testServer(t, &stubRunner{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/stats", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("stats status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/v1/health", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("method check status = %d", rec.Code)
	}
}
