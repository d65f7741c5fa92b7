package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/compiq/compiq/internal/comps"
	"github.com/compiq/compiq/internal/store"
)

// SearchRunner runs one comparable-company search end to end.
type SearchRunner interface {
	Run(ctx context.Context, in comps.TargetInput, cfg comps.SearchConfig) (*comps.SearchSession, error)
}

type Server struct {
	runner     SearchRunner
	store      *store.SQLiteStore
	defaultCfg comps.SearchConfig
}

func NewServer(runner SearchRunner, st *store.SQLiteStore, defaultCfg comps.SearchConfig) http.Handler {
	s := &Server{runner: runner, store: st, defaultCfg: defaultCfg}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/searches", s.handleSearches)
	mux.HandleFunc("/v1/searches/", s.handleSearchByID)
	mux.HandleFunc("/v1/companies", s.handleCompanies)
	mux.HandleFunc("/v1/stats", s.handleStats)
	mux.HandleFunc("/v1/health", s.handleHealth)
	return mux
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := "internal"
	var ce *comps.ConfigError
	var pe *comps.ProfileError
	var prov *comps.ProviderError
	switch {
	case errors.As(err, &ce):
		status, code = http.StatusBadRequest, "invalid_config"
	case errors.As(err, &pe):
		status, code = http.StatusUnprocessableEntity, "profile_failed"
	case errors.As(err, &prov):
		status, code = http.StatusBadGateway, "provider_failed"
	}
	writeJSON(w, status, map[string]any{
		"ok":    false,
		"error": map[string]any{"code": code, "message": err.Error()},
	})
}

func readBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return []byte("{}"), nil
	}
	blob, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	if len(blob) == 0 {
		blob = []byte("{}")
	}
	return blob, nil
}

func parseInt(value string, def int) int {
	if strings.TrimSpace(value) == "" {
		return def
	}
	v, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return v
}

func methodOnly(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	return true
}

type searchRequest struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	Homepage     string `json:"homepage"`
	IndustryCode string `json:"industry_code"`
	MinRequired  int    `json:"min_required"`
	MaxResults   int    `json:"max_results"`
	MaxAttempts  int    `json:"max_attempts"`
}

func (s *Server) handleSearches(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		blob, err := readBody(r)
		if err != nil {
			writeError(w, err)
			return
		}
		var req searchRequest
		if err := json.Unmarshal(blob, &req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"ok":    false,
				"error": map[string]any{"code": "invalid_json", "message": err.Error()},
			})
			return
		}
		cfg := s.defaultCfg
		if req.MinRequired > 0 {
			cfg.MinRequired = req.MinRequired
		}
		if req.MaxResults > 0 {
			cfg.MaxResults = req.MaxResults
		}
		if req.MaxAttempts > 0 {
			cfg.MaxAttempts = req.MaxAttempts
		}
		session, err := s.runner.Run(r.Context(), comps.TargetInput{
			Name:         req.Name,
			Description:  req.Description,
			Homepage:     req.Homepage,
			IndustryCode: req.IndustryCode,
		}, cfg)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, comps.BuildResponse(session))
	case http.MethodGet:
		limit := parseInt(r.URL.Query().Get("limit"), 50)
		list, err := s.store.ListSearches(r.Context(), limit)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"searches": list})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleSearchByID(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/searches/"), "/")
	if id == "" || strings.Contains(id, "/") {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	snap, err := s.store.GetSearch(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if snap == nil {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"ok":    false,
			"error": map[string]any{"code": "not_found", "message": "no search with id " + id},
		})
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleCompanies(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"ok":    false,
			"error": map[string]any{"code": "missing_query", "message": "q parameter is required"},
		})
		return
	}
	limit := parseInt(r.URL.Query().Get("limit"), 25)
	hits, err := s.store.SearchCompanies(r.Context(), q, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"companies": hits})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	st, err := s.store.Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "service": "compiq"})
}
