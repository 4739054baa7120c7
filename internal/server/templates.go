package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/veritaslegal/lexdraft-go/internal/embedder"
	"github.com/veritaslegal/lexdraft-go/internal/extractor"
	"github.com/veritaslegal/lexdraft-go/internal/logging"
	"github.com/veritaslegal/lexdraft-go/internal/model"
)

// handleUploadDocument handles POST /api/documents: store raw document text
// for later extraction.
func (s *Server) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	var req uploadDocumentRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, r, model.Invalidf("text is required"))
		return
	}

	doc := &model.Document{
		Filename: req.Filename,
		MimeType: "text/plain",
		RawText:  req.Text,
	}
	if err := s.deps.Store.CreateDocument(r.Context(), doc); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, doc)
}

// handleExtract handles POST /api/templates/extract: run variable extraction
// on a stored document (or inline text) and return a template preview. The
// template is not persisted until POST /api/templates.
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req extractionRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		writeError(w, r, model.Invalidf("title is required"))
		return
	}

	text := req.Text
	if req.DocumentID != "" {
		doc, err := s.deps.Store.GetDocument(r.Context(), req.DocumentID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		text = doc.RawText
	}
	if strings.TrimSpace(text) == "" {
		writeError(w, r, model.Invalidf("either document_id or text is required"))
		return
	}

	res, err := s.deps.Extractor.Extract(r.Context(), text)
	if err != nil {
		writeError(w, r, err)
		return
	}

	templateID := extractor.GenerateTemplateID(req.Title)
	body := extractor.BuildMarkdown(text, res.Variables, extractor.TemplateMeta{
		TemplateID:      templateID,
		Title:           req.Title,
		DocType:         res.DocType,
		Jurisdiction:    res.Jurisdiction,
		SimilarityTags:  res.SimilarityTags,
		FileDescription: req.FileDescription,
	})

	writeJSON(w, r, http.StatusOK, extractionResponse{
		TemplateID:       templateID,
		Title:            req.Title,
		DocType:          res.DocType,
		Jurisdiction:     res.Jurisdiction,
		SimilarityTags:   res.SimilarityTags,
		Variables:        res.Variables,
		TemplateMarkdown: body,
		Truncated:        res.Truncated,
		Message:          fmt.Sprintf("Extracted %d variables successfully", len(res.Variables)),
	})
}

// handleSaveTemplate handles POST /api/templates: embed and persist a
// reviewed template.
func (s *Server) handleSaveTemplate(w http.ResponseWriter, r *http.Request) {
	var req saveTemplateRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	switch {
	case strings.TrimSpace(req.TemplateID) == "":
		writeError(w, r, model.Invalidf("template_id is required"))
		return
	case strings.TrimSpace(req.Title) == "":
		writeError(w, r, model.Invalidf("title is required"))
		return
	case strings.TrimSpace(req.Body) == "":
		writeError(w, r, model.Invalidf("body_md is required"))
		return
	}

	t := &model.Template{
		TemplateID:      req.TemplateID,
		Title:           req.Title,
		FileDescription: req.FileDescription,
		DocType:         req.DocType,
		Jurisdiction:    req.Jurisdiction,
		SimilarityTags:  req.SimilarityTags,
		Body:            req.Body,
		Variables:       req.Variables,
	}

	vec, err := embedder.EmbedOne(r.Context(), s.deps.Embedder, t.EmbeddingText())
	if err != nil {
		writeError(w, r, fmt.Errorf("server: embed template: %w", err))
		return
	}
	t.Embedding = vec

	if err := s.deps.Store.CreateTemplate(r.Context(), t); err != nil {
		writeError(w, r, err)
		return
	}
	s.metrics.templatesCreatedTotal.WithLabelValues("extract").Inc()

	if s.deps.Indexer != nil {
		if err := s.deps.Indexer.IndexTemplate(r.Context(), t); err != nil {
			logging.FromContext(r.Context()).Warn("server: vector index update failed",
				slog.String("template_id", t.TemplateID),
				slog.Any("error", err),
			)
		}
	}

	writeJSON(w, r, http.StatusCreated, t)
}

// handleListTemplates handles GET /api/templates.
func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := s.deps.Store.ListTemplates(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if templates == nil {
		templates = []*model.Template{}
	}
	writeJSON(w, r, http.StatusOK, templates)
}

// handleGetTemplate handles GET /api/templates/{template_id}, returning the
// template with its variable schema.
func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	t, err := s.deps.Store.GetTemplate(r.Context(), r.PathValue("template_id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, t)
}
