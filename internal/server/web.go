package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/veritaslegal/lexdraft-go/internal/model"
	"github.com/veritaslegal/lexdraft-go/internal/search"
)

// defaultSearchResults is how many web hits a search returns when the
// request does not say.
const defaultSearchResults = 3

// handleSearchWeb handles POST /api/search/web: find template candidates on
// the web for a user query.
func (s *Server) handleSearchWeb(w http.ResponseWriter, r *http.Request) {
	if s.deps.Bootstrap == nil {
		writeError(w, r, model.Invalidf("web search is not configured; set the Exa API key"))
		return
	}

	var req webSearchRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, r, model.Invalidf("query is required"))
		return
	}
	n := req.NumResults
	if n <= 0 {
		n = defaultSearchResults
	}

	hits, err := s.deps.Bootstrap.SearchWeb(r.Context(), req.Query, n)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if hits == nil {
		hits = []search.Hit{}
	}
	writeJSON(w, r, http.StatusOK, webSearchResponse{Results: hits})
}

// handleBootstrap handles POST /api/bootstrap: turn one web search hit into
// a stored template.
func (s *Server) handleBootstrap(w http.ResponseWriter, r *http.Request) {
	if s.deps.Bootstrap == nil {
		writeError(w, r, model.Invalidf("web bootstrap is not configured; set the Exa API key"))
		return
	}

	var req bootstrapRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	switch {
	case strings.TrimSpace(req.DocumentID) == "":
		writeError(w, r, model.Invalidf("document_id is required"))
		return
	case strings.TrimSpace(req.Title) == "":
		writeError(w, r, model.Invalidf("title is required"))
		return
	}

	t, err := s.deps.Bootstrap.FetchAndTemplatize(r.Context(), req.DocumentID, req.DocumentURL, req.Title)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.metrics.templatesCreatedTotal.WithLabelValues("bootstrap").Inc()

	writeJSON(w, r, http.StatusCreated, bootstrapResponse{
		TemplateID:     t.TemplateID,
		Title:          t.Title,
		VariablesCount: len(t.Variables),
		Message:        fmt.Sprintf("Template '%s' created with %d variables", t.Title, len(t.Variables)),
	})
}
