// Package server exposes the REST control surface: configuration, the task
// catalog, run lifecycle, logs, progress events, and recorded dataset
// entries. It is a thin JSON layer over the run manager and recorder;
// no orchestration logic lives here.
package server

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/ahrav/terrabench/internal/catalog"
	"github.com/ahrav/terrabench/internal/config"
	"github.com/ahrav/terrabench/internal/domain"
	"github.com/ahrav/terrabench/internal/run"
)

// DatasetLister serves recorded entries. Satisfied by *dataset.Recorder.
type DatasetLister interface {
	List() ([]domain.DatasetEntry, error)
}

// Server is the HTTP control surface.
type Server struct {
	manager  *run.Manager
	catalog  *catalog.Catalog
	datasets DatasetLister
	logs     *LogBuffer
	events   *run.RingEmitter
	logger   *slog.Logger

	// store is shared with the run pipeline; updates applied here are
	// visible to runs started afterwards.
	store *config.Store

	mux *http.ServeMux
}

// Options bundles the server dependencies. Logs and Events are optional.
type Options struct {
	Config   *config.Store
	Manager  *run.Manager
	Catalog  *catalog.Catalog
	Datasets DatasetLister
	Logs     *LogBuffer
	Events   *run.RingEmitter
}

// New builds the server and registers its routes.
func New(opts Options) *Server {
	s := &Server{
		manager:  opts.Manager,
		catalog:  opts.Catalog,
		datasets: opts.Datasets,
		logs:     opts.Logs,
		events:   opts.Events,
		logger:   slog.Default().With("component", "server"),
		store:    opts.Config,
		mux:      http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /api/automation/config", s.handleGetConfig)
	s.mux.HandleFunc("PUT /api/automation/config", s.handleUpdateConfig)
	s.mux.HandleFunc("GET /api/automation/tasks", s.handleTasks)
	s.mux.HandleFunc("POST /api/automation/start", s.handleStart)
	s.mux.HandleFunc("GET /api/automation/runs", s.handleListRuns)
	s.mux.HandleFunc("GET /api/automation/runs/{id}", s.handleGetRun)
	s.mux.HandleFunc("POST /api/automation/runs/{id}/cancel", s.handleCancelRun)
	s.mux.HandleFunc("GET /api/automation/logs", s.handleLogs)
	s.mux.HandleFunc("GET /api/automation/events", s.handleEvents)
	s.mux.HandleFunc("GET /api/automation/datasets", s.handleDatasets)
	s.mux.HandleFunc("GET /api/automation/screenshots", s.handleScreenshots)
}

// Handler returns the HTTP handler for the control surface.
func (s *Server) Handler() http.Handler { return s.mux }

// configView is the externally visible configuration shape. The API key
// never leaves the process unmasked.
type configView struct {
	Addr             string                   `json:"addr"`
	BaseDir          string                   `json:"base_dir"`
	APIKeyPreview    string                   `json:"openrouter_api_key_preview"`
	APIKeyConfigured bool                     `json:"openrouter_api_key_configured"`
	XOAURL           string                   `json:"xoa_url"`
	XOAUser          string                   `json:"xoa_user"`
	Models           []domain.ModelDescriptor `json:"models"`
	MaxIterations    int                      `json:"max_iterations"`
}

func (s *Server) handleGetConfig(w http.ResponseWriter, _ *http.Request) {
	cfg := s.store.Get()

	writeJSON(w, http.StatusOK, configView{
		Addr:             cfg.Addr,
		BaseDir:          cfg.BaseDir,
		APIKeyPreview:    cfg.APIKeyPreview(),
		APIKeyConfigured: cfg.OpenRouterAPIKey != "",
		XOAURL:           cfg.XOAURL,
		XOAUser:          cfg.XOAUser,
		Models:           cfg.Models,
		MaxIterations:    cfg.MaxIterations,
	})
}

// configUpdate carries the runtime-updatable settings. Pointer fields
// distinguish "leave unchanged" from "set to zero value".
type configUpdate struct {
	OpenRouterAPIKey *string                   `json:"openrouter_api_key"`
	XOAURL           *string                   `json:"xoa_url"`
	XOAUser          *string                   `json:"xoa_user"`
	XOAPassword      *string                   `json:"xoa_password"`
	Models           *[]domain.ModelDescriptor `json:"models"`
	MaxIterations    *int                      `json:"max_iterations"`
}

func (s *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var update configUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := s.store.Update(func(next *config.Config) error {
		if update.OpenRouterAPIKey != nil {
			next.OpenRouterAPIKey = *update.OpenRouterAPIKey
		}
		if update.XOAURL != nil {
			next.XOAURL = *update.XOAURL
		}
		if update.XOAUser != nil {
			next.XOAUser = *update.XOAUser
		}
		if update.XOAPassword != nil {
			next.XOAPassword = *update.XOAPassword
		}
		if update.Models != nil {
			next.Models = append([]domain.ModelDescriptor(nil), (*update.Models)...)
		}
		if update.MaxIterations != nil {
			next.MaxIterations = *update.MaxIterations
		}
		return next.Validate()
	})
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	s.logger.Info("configuration updated")
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// Config returns a snapshot of the current configuration.
func (s *Server) Config() *config.Config { return s.store.Get() }

func (s *Server) handleTasks(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tasks": s.catalog.All()})
}

// startRequest selects what a run executes. Empty fields fall back to the
// configured defaults.
type startRequest struct {
	Models        []domain.ModelDescriptor `json:"models"`
	Tasks         []string                 `json:"tasks"`
	MaxIterations int                      `json:"max_iterations"`
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	cfg := s.Config()
	if cfg.OpenRouterAPIKey == "" {
		writeError(w, http.StatusUnprocessableEntity, "OpenRouter API key is not configured")
		return
	}
	if len(req.Models) == 0 {
		req.Models = cfg.Models
	}
	if req.MaxIterations == 0 {
		req.MaxIterations = cfg.MaxIterations
	}

	record, err := s.manager.StartRun(run.Params{
		Models:        req.Models,
		TaskIDs:       req.Tasks,
		MaxIterations: req.MaxIterations,
	})
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, record)
}

func (s *Server) handleListRuns(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"runs": s.manager.ListRuns()})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	record, err := s.manager.GetRun(r.PathValue("id"))
	if err != nil {
		if errors.Is(err, run.ErrRunNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) handleCancelRun(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.CancelRun(r.PathValue("id")); err != nil {
		if errors.Is(err, run.ErrRunNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancellation requested"})
}

func (s *Server) handleLogs(w http.ResponseWriter, _ *http.Request) {
	var lines []LogLine
	if s.logs != nil {
		lines = s.logs.Recent()
	}
	writeJSON(w, http.StatusOK, map[string]any{"logs": lines})
}

func (s *Server) handleEvents(w http.ResponseWriter, _ *http.Request) {
	var events []domain.ProgressEvent
	if s.events != nil {
		events = s.events.Recent()
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

// handleScreenshots lists captured artifact files relative to the screenshot
// directory. A missing directory yields an empty list, not an error.
func (s *Server) handleScreenshots(w http.ResponseWriter, _ *http.Request) {
	root := s.Config().ScreenshotDir()
	var shots []string
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if rel, relErr := filepath.Rel(root, path); relErr == nil {
			shots = append(shots, rel)
		}
		return nil
	})
	writeJSON(w, http.StatusOK, map[string]any{"screenshots": shots})
}

func (s *Server) handleDatasets(w http.ResponseWriter, _ *http.Request) {
	entries, err := s.datasets.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
