// Package bootstrap creates templates from the web: search for a document,
// fetch its page, pull the template out of the surrounding noise, extract
// its variables, and persist the result. This is the fallback path when no
// stored template matches a user's request.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/veritaslegal/lexdraft-go/internal/embedder"
	"github.com/veritaslegal/lexdraft-go/internal/extractor"
	"github.com/veritaslegal/lexdraft-go/internal/logging"
	"github.com/veritaslegal/lexdraft-go/internal/model"
	"github.com/veritaslegal/lexdraft-go/internal/oracle"
	"github.com/veritaslegal/lexdraft-go/internal/search"
)

// noTemplateSentinel is what the extraction oracle answers when a page holds
// no usable template.
const noTemplateSentinel = "NO_TEMPLATE_FOUND"

// minTemplateChars rejects pages whose extracted template is too short to be
// a real document.
const minTemplateChars = 100

const searchTermsSystemPrompt = `Extract key search terms from the user's query for finding legal documents online.

Rules:
1. Return ONLY valid JSON
2. Focus on document type, jurisdiction, and key legal terms
3. Remove filler words and conversational language
4. Keep it concise (3-5 key terms)`

const templateExtractionSystemPrompt = `You are a legal document extraction expert. Your task is to extract ANY usable template or form content from web page content that may contain mixed elements.

INSTRUCTIONS:
1. Look for ANY template-like structure, even if mixed with other content
2. Extract template patterns including date fields, name fields, address fields, placeholder patterns like [DATE] or [NAME], form fields, and structured letter formats
3. REMOVE obvious junk: FAQ sections, pure marketing text, navigation elements
4. Convert all [VARIABLE] patterns to {{variable}} format (snake_case)
5. Use proper markdown structure with blank lines between sections
6. Do NOT duplicate placeholders (use each {{variable}} only once)
7. If you find even a partial template or form structure, return it
8. Only return "NO_TEMPLATE_FOUND" if there is absolutely no template-like content

CRITICAL: You MUST return valid JSON with a "template" key, even if the content is not ideal.`

// Searcher is the web search surface the bootstrapper needs.
type Searcher interface {
	Search(ctx context.Context, query string, n int) ([]search.Hit, error)
	Contents(ctx context.Context, id string, maxChars int) (string, error)
}

// TemplateCreator persists a finished template.
type TemplateCreator interface {
	CreateTemplate(ctx context.Context, t *model.Template) error
}

// Indexer pushes a stored template into the vector index. Optional.
type Indexer interface {
	IndexTemplate(ctx context.Context, t *model.Template) error
}

// Service wires search, oracles, extraction, and storage into the bootstrap
// pipeline.
type Service struct {
	searcher  Searcher
	completer oracle.Completer
	extractor *extractor.Extractor
	embedder  embedder.Embedder
	creator   TemplateCreator
	indexer   Indexer
}

// New constructs a Service. indexer may be nil when no vector index is
// configured.
func New(searcher Searcher, completer oracle.Completer, ex *extractor.Extractor, emb embedder.Embedder, creator TemplateCreator, indexer Indexer) (*Service, error) {
	if searcher == nil || completer == nil || ex == nil || emb == nil || creator == nil {
		return nil, fmt.Errorf("bootstrap: searcher, completer, extractor, embedder and creator must not be nil")
	}
	return &Service{
		searcher:  searcher,
		completer: completer,
		extractor: ex,
		embedder:  emb,
		creator:   creator,
		indexer:   indexer,
	}, nil
}

// SearchWeb extracts search terms from the user's query and runs a web
// search shaped the way the search engine finds actual document content.
func (s *Service) SearchWeb(ctx context.Context, query string, n int) ([]search.Hit, error) {
	terms := s.extractSearchTerms(ctx, query)
	prompt := fmt.Sprintf("here is a professional %s template:", terms)
	hits, err := s.searcher.Search(ctx, prompt, n)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: web search: %w", err)
	}
	return hits, nil
}

// extractSearchTerms condenses a conversational query into search keywords.
// Falls back to the raw query when the oracle fails.
func (s *Service) extractSearchTerms(ctx context.Context, query string) string {
	userPrompt := fmt.Sprintf(`User query: %q

Extract search terms. Return JSON:
{
  "search_terms": ["insurance notice", "india", "motor accident"]
}`, query)

	obj, err := s.completer.CompleteJSON(ctx, searchTermsSystemPrompt, userPrompt)
	if err != nil {
		return query
	}
	raw, ok := obj["search_terms"].([]any)
	if !ok || len(raw) == 0 {
		return query
	}
	terms := make([]string, 0, len(raw))
	for _, t := range raw {
		if str, ok := t.(string); ok && str != "" {
			terms = append(terms, str)
		}
	}
	if len(terms) == 0 {
		return query
	}
	return strings.Join(terms, " ")
}

// FetchAndTemplatize fetches a search hit's page, extracts the template
// inside it, runs variable extraction, and stores the finished template.
func (s *Service) FetchAndTemplatize(ctx context.Context, hitID, sourceURL, title string) (*model.Template, error) {
	log := logging.FromContext(ctx)

	raw, err := s.searcher.Contents(ctx, hitID, 10000)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: fetch content: %w", err)
	}
	if len(strings.TrimSpace(raw)) < minTemplateChars {
		return nil, model.Invalidf("document content is too short or empty")
	}

	content, err := s.extractTemplateText(ctx, raw, title)
	if err != nil {
		// The oracle could not find a template; a rule-based cleanup of the
		// page sometimes still salvages one.
		cleaned := search.Clean(raw)
		if len(strings.TrimSpace(cleaned)) < 500 {
			return nil, model.Invalidf("no usable template found in page content")
		}
		log.Warn("bootstrap: oracle extraction failed, using cleaned page text", slog.Any("error", err))
		content = cleaned
	}

	content = convertPlaceholders(content)
	content = convertBlanks(content)

	if !looksLikeLegalDocument(content) {
		return nil, model.Invalidf("content does not appear to be a legal document")
	}

	extraction, err := s.extractor.Extract(ctx, content)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: extract variables: %w", err)
	}
	if len(extraction.Variables) == 0 {
		return nil, model.Invalidf("no variables extracted; page appears to be an article, not a fillable template")
	}

	templateID := extractor.GenerateTemplateID(title)
	fileDescription := "Bootstrapped from web: " + sourceURL
	body := extractor.BuildMarkdown(content, extraction.Variables, extractor.TemplateMeta{
		TemplateID:      templateID,
		Title:           title,
		DocType:         extraction.DocType,
		Jurisdiction:    extraction.Jurisdiction,
		SimilarityTags:  extraction.SimilarityTags,
		FileDescription: fileDescription,
	})

	t := &model.Template{
		TemplateID:      templateID,
		Title:           title,
		FileDescription: fileDescription,
		DocType:         extraction.DocType,
		Jurisdiction:    extraction.Jurisdiction,
		SimilarityTags:  extraction.SimilarityTags,
		Body:            body,
		Variables:       extraction.Variables,
	}

	vec, err := embedder.EmbedOne(ctx, s.embedder, t.EmbeddingText())
	if err != nil {
		return nil, fmt.Errorf("bootstrap: embed template: %w", err)
	}
	t.Embedding = vec

	if err := s.creator.CreateTemplate(ctx, t); err != nil {
		return nil, fmt.Errorf("bootstrap: store template: %w", err)
	}

	if s.indexer != nil {
		if err := s.indexer.IndexTemplate(ctx, t); err != nil {
			// The SQLite store is the source of truth; index lag is recoverable.
			log.Warn("bootstrap: vector index update failed", slog.String("template_id", t.TemplateID), slog.Any("error", err))
		}
	}

	log.Info("bootstrap: template created",
		slog.String("template_id", t.TemplateID),
		slog.Int("variables", len(t.Variables)),
		slog.String("source_url", sourceURL),
	)
	return t, nil
}

// extractTemplateText asks the oracle to pull the document template out of
// noisy page content.
func (s *Service) extractTemplateText(ctx context.Context, raw, title string) (string, error) {
	if len(raw) > 8000 {
		raw = raw[:8000]
	}
	userPrompt := fmt.Sprintf(`Extract the actual legal document template from this web content.

TEMPLATE TITLE: %s

WEB CONTENT:
%s

Return ONLY valid JSON:
{"template": "<extracted template content here, or empty string if nothing found>"}`, title, raw)

	obj, err := s.completer.CompleteJSON(ctx, templateExtractionSystemPrompt, userPrompt)
	if err != nil {
		return "", err
	}

	extracted, _ := obj["template"].(string)
	extracted = strings.TrimSpace(extracted)
	if extracted == "" || extracted == noTemplateSentinel || len(extracted) < minTemplateChars {
		return "", fmt.Errorf("bootstrap: no template in oracle output")
	}
	return extracted, nil
}
