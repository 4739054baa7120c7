package server

import (
	"net/http"
	"strings"

	"github.com/veritaslegal/lexdraft-go/internal/draft"
	"github.com/veritaslegal/lexdraft-go/internal/model"
)

// handleDraftStart handles POST /api/draft: resolve a template (direct pick
// or matched from the query), prefill answers, and return open questions.
func (s *Server) handleDraftStart(w http.ResponseWriter, r *http.Request) {
	var req draftRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := s.deps.Drafts.Start(r.Context(), draft.StartRequest{
		TemplateID: req.TemplateID,
		UserQuery:  req.UserQuery,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	mode := "matched"
	if req.TemplateID != "" {
		mode = "direct"
	}
	s.metrics.draftsStartedTotal.WithLabelValues(mode).Inc()

	writeJSON(w, r, http.StatusOK, res)
}

// handleDraftFinalize handles POST /api/draft/finalize: merge answers,
// render, and persist the draft.
func (s *Server) handleDraftFinalize(w http.ResponseWriter, r *http.Request) {
	var req answerSubmission
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.InstanceID) == "" {
		writeError(w, r, model.Invalidf("instance_id is required"))
		return
	}

	res, err := s.deps.Drafts.Finalize(r.Context(), req.InstanceID, req.Answers)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

// handleDraftRegenerate handles POST /api/draft/{id}/regenerate.
func (s *Server) handleDraftRegenerate(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.Drafts.Regenerate(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

// handleDraftEdit handles POST /api/draft/{id}/edit: return questions for
// every variable so a client can revise the answers on file.
func (s *Server) handleDraftEdit(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.Drafts.EditQuestions(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}
