package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/veritaslegal/lexdraft-go/internal/draft"
	"github.com/veritaslegal/lexdraft-go/internal/extractor"
	"github.com/veritaslegal/lexdraft-go/internal/model"
	"github.com/veritaslegal/lexdraft-go/internal/search"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response.
	// Extraction and bootstrap requests fan out to LLM providers, so the
	// default is generous.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks.
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP (requests/second).
	// Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// APIKey is the Bearer token required on all /api/* routes. If empty,
	// authentication is disabled.
	APIKey string
	// Registry receives the server's Prometheus metrics. If nil, a private
	// registry is created.
	Registry *prometheus.Registry
}

// TemplateStore is the persistence surface the handlers need.
type TemplateStore interface {
	CreateTemplate(ctx context.Context, t *model.Template) error
	GetTemplate(ctx context.Context, templateID string) (*model.Template, error)
	ListTemplates(ctx context.Context) ([]*model.Template, error)
	CreateDocument(ctx context.Context, d *model.Document) error
	GetDocument(ctx context.Context, id string) (*model.Document, error)
}

// VariableExtractor turns raw document text into a variable schema.
type VariableExtractor interface {
	Extract(ctx context.Context, documentText string) (*extractor.Result, error)
}

// Embedder computes one embedding per input text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// DraftService runs the draft lifecycle.
type DraftService interface {
	Start(ctx context.Context, req draft.StartRequest) (*draft.StartResult, error)
	Finalize(ctx context.Context, instanceID string, answers map[string]any) (*draft.Result, error)
	Regenerate(ctx context.Context, instanceID string) (*draft.Result, error)
	EditQuestions(ctx context.Context, instanceID string) (*draft.StartResult, error)
}

// Bootstrapper searches the web and turns pages into templates.
type Bootstrapper interface {
	SearchWeb(ctx context.Context, query string, n int) ([]search.Hit, error)
	FetchAndTemplatize(ctx context.Context, hitID, sourceURL, title string) (*model.Template, error)
}

// Indexer mirrors new templates into the vector index. Optional.
type Indexer interface {
	IndexTemplate(ctx context.Context, t *model.Template) error
}

// Deps bundles the services the server exposes over HTTP.
type Deps struct {
	Store     TemplateStore
	Extractor VariableExtractor
	Embedder  Embedder
	Drafts    DraftService
	Bootstrap Bootstrapper
	// Indexer may be nil when no vector index is configured.
	Indexer Indexer
}

// Server is the HTTP server for the drafting pipeline.
type Server struct {
	deps       Deps
	cfg        *Config
	httpServer *http.Server
	log        *slog.Logger
	pingers    []Pinger
	metrics    *serverMetrics
	registry   *prometheus.Registry
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// uploadDocumentRequest is the JSON body for POST /api/documents.
type uploadDocumentRequest struct {
	Filename string `json:"filename,omitempty"`
	Text     string `json:"text"`
}

// extractionRequest is the JSON body for POST /api/templates/extract.
// Either DocumentID or Text must be set.
type extractionRequest struct {
	DocumentID      string `json:"document_id,omitempty"`
	Text            string `json:"text,omitempty"`
	Title           string `json:"title"`
	FileDescription string `json:"file_description,omitempty"`
}

// extractionResponse previews an extracted template before it is saved.
type extractionResponse struct {
	TemplateID       string           `json:"template_id"`
	Title            string           `json:"title"`
	DocType          string           `json:"doc_type,omitempty"`
	Jurisdiction     string           `json:"jurisdiction,omitempty"`
	SimilarityTags   []string         `json:"similarity_tags"`
	Variables        []model.Variable `json:"variables"`
	TemplateMarkdown string           `json:"template_markdown"`
	Truncated        bool             `json:"truncated,omitempty"`
	Message          string           `json:"message"`
}

// saveTemplateRequest is the JSON body for POST /api/templates.
type saveTemplateRequest struct {
	TemplateID      string           `json:"template_id"`
	Title           string           `json:"title"`
	FileDescription string           `json:"file_description,omitempty"`
	DocType         string           `json:"doc_type,omitempty"`
	Jurisdiction    string           `json:"jurisdiction,omitempty"`
	SimilarityTags  []string         `json:"similarity_tags"`
	Body            string           `json:"body_md"`
	Variables       []model.Variable `json:"variables"`
}

// draftRequest is the JSON body for POST /api/draft.
type draftRequest struct {
	UserQuery  string `json:"user_query,omitempty"`
	TemplateID string `json:"template_id,omitempty"`
}

// answerSubmission is the JSON body for POST /api/draft/finalize.
type answerSubmission struct {
	InstanceID string         `json:"instance_id"`
	Answers    map[string]any `json:"answers"`
}

// webSearchRequest is the JSON body for POST /api/search/web.
type webSearchRequest struct {
	Query      string `json:"query"`
	NumResults int    `json:"num_results,omitempty"`
}

// webSearchResponse is the JSON response for POST /api/search/web.
type webSearchResponse struct {
	Results []search.Hit `json:"results"`
}

// bootstrapRequest is the JSON body for POST /api/bootstrap.
type bootstrapRequest struct {
	DocumentID  string `json:"document_id"`
	DocumentURL string `json:"document_url"`
	Title       string `json:"title"`
}

// bootstrapResponse is the JSON response for POST /api/bootstrap.
type bootstrapResponse struct {
	TemplateID     string `json:"template_id"`
	Title          string `json:"title"`
	VariablesCount int    `json:"variables_count"`
	Message        string `json:"message"`
}
