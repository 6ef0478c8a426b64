package server

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/jonathan/career-navigator/internal/workflow"
)

// GenerateRequest is the body of POST /workflow/users/{user_id}/generate
type GenerateRequest struct {
	ArtifactKind workflow.ArtifactKind `json:"artifact_kind"`
	// Review pauses the run before the artifact is stored.
	Review bool `json:"review,omitempty"`
}

// ResumeRequest is the body of POST /workflow/runs/{run_id}/resume
type ResumeRequest struct {
	Decision workflow.Decision `json:"decision"`
}

// handleIngest extracts raw profile content into a draft.
// With auth enabled the draft belongs to the token owner.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req workflow.IngestRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	if caller := s.callerID(r); caller != uuid.Nil {
		if req.UserID == uuid.Nil {
			req.UserID = caller
		}
		if err := s.authorizeUser(r, req.UserID); err != nil {
			s.writeError(w, r, err)
			return
		}
	}

	result, err := s.workflow.Ingest(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, result)
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userFromPath(w, r)
	if !ok {
		return
	}
	result, err := s.workflow.Confirm(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, result)
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userFromPath(w, r)
	if !ok {
		return
	}
	report, err := s.workflow.Validate(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, report)
}

// handleGenerate stores an artifact (201), or with review set returns the
// paused run (202).
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userFromPath(w, r)
	if !ok {
		return
	}
	var req GenerateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	if req.Review {
		status, err := s.workflow.GenerateForReview(r.Context(), userID, req.ArtifactKind)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.jsonResponse(w, http.StatusAccepted, status)
		return
	}

	product, err := s.workflow.Generate(r.Context(), userID, req.ArtifactKind)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, product)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	runID, ok := s.runFromPath(w, r)
	if !ok {
		return
	}
	status, err := s.workflow.GetStatus(r.Context(), runID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, status)
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	runID, ok := s.runFromPath(w, r)
	if !ok {
		return
	}
	var req ResumeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	status, err := s.workflow.Resume(r.Context(), runID, req.Decision)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, status)
}

// handleGraph returns the workflow graph as a Mermaid flowchart.
func (s *Server) handleGraph(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(s.workflow.Diagram()))
}

// userFromPath parses {user_id} and checks that the caller owns it.
func (s *Server) userFromPath(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, err := pathUUID(r, "user_id")
	if err == nil {
		err = s.authorizeUser(r, userID)
	}
	if err != nil {
		s.writeError(w, r, err)
		return uuid.Nil, false
	}
	return userID, true
}

// runFromPath reads {run_id}. Runs keyed by a user are restricted to that
// user; anonymous input runs are open to any authenticated caller.
func (s *Server) runFromPath(w http.ResponseWriter, r *http.Request) (string, bool) {
	runID := r.PathValue("run_id")
	if rest, ok := strings.CutPrefix(runID, "user_"); ok {
		if userID, err := uuid.Parse(rest); err == nil {
			if err := s.authorizeUser(r, userID); err != nil {
				s.writeError(w, r, err)
				return "", false
			}
		}
	}
	return runID, true
}
