package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rxtech-lab/argo-core/internal/types"
	"github.com/rxtech-lab/argo-core/internal/version"
	"github.com/rxtech-lab/argo-core/pkg/errors"
	"go.uber.org/zap"
)

type errorResponse struct {
	Error string          `json:"error"`
	Code  errors.ErrorCode `json:"code,omitempty"`
}

// SubmitResponse is returned by POST /api/v1/backtest/run.
type SubmitResponse struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

// StrategyInfo is one entry of GET /api/v1/backtest/strategies.
type StrategyInfo struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	EngineVersion string `json:"engine_version"`
	Params        any    `json:"params"`
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "argo core backtest API",
		"status":  "running",
		"version": version.GetVersion(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var req types.RunRequest

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(&req); err != nil {
		s.writeError(w, errors.Wrap(errors.ErrCodeInvalidParameter, "invalid request body", err))

		return
	}

	status, err := s.tasks.Submit(r.Context(), req)
	if err != nil {
		s.writeError(w, err)

		return
	}

	writeJSON(w, http.StatusAccepted, SubmitResponse{TaskID: status.ID, Status: "submitted"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	status, err := s.tasks.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleStrategies(w http.ResponseWriter, _ *http.Request) {
	names := s.registry.List()
	out := make([]StrategyInfo, 0, len(names))

	for _, name := range names {
		d, err := s.registry.Get(name)
		if err != nil {
			continue
		}

		info := StrategyInfo{Name: d.Name, Description: d.Description, EngineVersion: d.EngineVersion}
		if schema, err := s.registry.Schema(name); err == nil {
			info.Params = schema
		}

		out = append(out, info)
	}

	writeJSON(w, http.StatusOK, out)
}

// writeError maps the error kind to a status code. Only the message is
// exposed.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)

	status := http.StatusInternalServerError

	switch {
	case code == errors.ErrCodeTaskNotFound:
		status = http.StatusNotFound
	case code == errors.ErrCodeTaskQueueFull:
		status = http.StatusServiceUnavailable
	case errors.KindOf(err) == errors.KindConfiguration:
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		s.logger.Error("Request failed", zap.Error(err))
	}

	writeJSON(w, status, errorResponse{Error: err.Error(), Code: code})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
