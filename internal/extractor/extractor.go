// Package extractor turns raw legal document text into a variable schema and
// document-level metadata. Long documents are truncated, split into
// paragraph-aligned chunks, and extracted chunk by chunk through a completion
// oracle; variable drafts are deduplicated by key across chunks.
package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/veritaslegal/lexdraft-go/internal/logging"
	"github.com/veritaslegal/lexdraft-go/internal/model"
	"github.com/veritaslegal/lexdraft-go/internal/oracle"
)

// Defaults for chunking. Character counts approximate token counts closely
// enough for prompt sizing.
const (
	DefaultChunkChars       = 2000
	DefaultMaxDocumentChars = 100000
)

const extractSystemPrompt = `You are a legal document templating assistant. Your task is to identify reusable fields (variables) in legal documents that can be replaced when generating new drafts.

Rules:
1. Return ONLY valid JSON, no markdown or explanations
2. Deduplicate logically identical fields (e.g., "claimant name" and "claimant_full_name" are the same)
3. Use snake_case for keys
4. Favor domain-generic names (e.g., "party_name" not "plaintiff_name_in_civil_suit")
5. For each variable provide: key, label, description, example, required, dtype, regex (optional), enum_values (optional)
6. Extract similarity_tags for retrieval (jurisdiction, doc_type, domain keywords)
7. Do NOT variable-ize statutory text or mandatory legal references
8. Focus on party-specific facts: names, dates, amounts, policy numbers, addresses, etc.`

// Config holds the chunking limits. Zero values select the defaults.
type Config struct {
	// ChunkChars is the per-chunk character budget.
	ChunkChars int
	// MaxDocumentChars is the hard document size limit; longer input is
	// truncated before chunking.
	MaxDocumentChars int
}

// Extractor drives per-chunk variable extraction through a completion oracle.
type Extractor struct {
	completer        oracle.Completer
	chunkChars       int
	maxDocumentChars int
}

// New constructs an Extractor. The completer must not be nil.
func New(completer oracle.Completer, cfg Config) (*Extractor, error) {
	if completer == nil {
		return nil, fmt.Errorf("extractor: completer must not be nil")
	}
	if cfg.ChunkChars <= 0 {
		cfg.ChunkChars = DefaultChunkChars
	}
	if cfg.MaxDocumentChars <= 0 {
		cfg.MaxDocumentChars = DefaultMaxDocumentChars
	}
	return &Extractor{
		completer:        completer,
		chunkChars:       cfg.ChunkChars,
		maxDocumentChars: cfg.MaxDocumentChars,
	}, nil
}

// Result is the outcome of extracting one document: the deduplicated
// variable schema plus document-level metadata from the first chunk.
type Result struct {
	Variables      []model.Variable
	DocType        string
	Jurisdiction   string
	SimilarityTags []string
	// Truncated reports whether the document exceeded MaxDocumentChars and
	// was cut. Information past the cut is lost.
	Truncated bool
}

// chunkResult is the JSON shape the extraction oracle returns per chunk.
type chunkResult struct {
	Variables      []model.Variable `json:"variables"`
	SimilarityTags []string         `json:"similarity_tags"`
	DocType        string           `json:"doc_type"`
	Jurisdiction   string           `json:"jurisdiction"`
}

// knownPair is the (key, label) summary of an already-discovered variable,
// passed to later chunks so the oracle reuses keys instead of inventing
// synonyms.
type knownPair struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// Extract runs the full extraction pipeline over one document. Any chunk
// whose oracle output cannot be parsed aborts the whole extraction — partial
// schemas are never returned silently.
func (e *Extractor) Extract(ctx context.Context, documentText string) (*Result, error) {
	log := logging.FromContext(ctx)

	if strings.TrimSpace(documentText) == "" {
		return nil, model.Invalidf("document text is empty")
	}

	text, truncated := Truncate(documentText, e.maxDocumentChars)
	if truncated {
		log.Warn("extractor: document truncated",
			slog.Int("max_chars", e.maxDocumentChars),
			slog.Int("original_chars", len(documentText)),
		)
	}

	chunks := Chunk(text, e.chunkChars)
	log.Debug("extractor: chunked document",
		slog.Int("chunks", len(chunks)),
		slog.Int("chars", len(text)),
	)

	res := &Result{Truncated: truncated}
	var all []model.Variable

	for i, chunk := range chunks {
		known := make([]knownPair, 0, len(all))
		for _, v := range all {
			known = append(known, knownPair{Key: v.Key, Label: v.Label})
		}

		cr, err := e.extractChunk(ctx, chunk, known, i+1)
		if err != nil {
			return nil, fmt.Errorf("extractor: chunk %d/%d: %w", i+1, len(chunks), err)
		}

		for _, v := range cr.Variables {
			if v.Key == "" {
				continue
			}
			all = append(all, v)
		}

		// Document-level metadata comes from the first chunk only.
		if i == 0 {
			res.DocType = cr.DocType
			res.Jurisdiction = cr.Jurisdiction
			res.SimilarityTags = cr.SimilarityTags
		}
	}

	res.Variables = dedupe(all)
	log.Info("extractor: extraction complete",
		slog.Int("variables", len(res.Variables)),
		slog.Int("chunks", len(chunks)),
		slog.String("doc_type", res.DocType),
	)
	return res, nil
}

// extractChunk sends one chunk to the oracle and decodes the result.
func (e *Extractor) extractChunk(ctx context.Context, chunk string, known []knownPair, chunkNumber int) (*chunkResult, error) {
	var b strings.Builder
	b.WriteString("Document text:\n")
	b.WriteString(chunk)
	b.WriteString("\n")

	if chunkNumber > 1 && len(known) > 0 {
		pairs, err := json.MarshalIndent(known, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshal known variables: %w", err)
		}
		b.WriteString("\nPreviously discovered variables (reuse these keys if applicable):\n")
		b.Write(pairs)
		b.WriteString("\n")
	}

	b.WriteString(`
Return JSON in this exact format:
{
  "variables": [
    {
      "key": "claimant_full_name",
      "label": "Claimant's full name",
      "description": "Person or entity raising the claim",
      "example": "Rajesh Kumar",
      "required": true,
      "dtype": "string",
      "regex": null,
      "enum_values": null
    }
  ],
  "similarity_tags": ["insurance", "notice", "india", "motor"],
  "doc_type": "Notice to Insurer",
  "jurisdiction": "India"
}`)

	obj, err := e.completer.CompleteJSON(ctx, extractSystemPrompt, b.String())
	if err != nil {
		return nil, err
	}

	// Round-trip through JSON to coerce the generic object into the typed
	// chunk shape; unknown fields are dropped, nulls become zero values.
	raw, err := json.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("re-marshal oracle output: %w", err)
	}
	var cr chunkResult
	if err := json.Unmarshal(raw, &cr); err != nil {
		return nil, fmt.Errorf("decode oracle output: %w", err)
	}
	return &cr, nil
}

// dedupe collapses duplicate keys across chunks. The first occurrence wins;
// optional fields the first occurrence lacks are filled in from later
// duplicates so a more complete later definition is not discarded entirely.
func dedupe(vars []model.Variable) []model.Variable {
	index := make(map[string]int, len(vars))
	out := make([]model.Variable, 0, len(vars))

	for _, v := range vars {
		i, seen := index[v.Key]
		if !seen {
			index[v.Key] = len(out)
			out = append(out, v)
			continue
		}
		first := &out[i]
		if first.Description == "" {
			first.Description = v.Description
		}
		if first.Example == "" {
			first.Example = v.Example
		}
		if first.Dtype == "" {
			first.Dtype = v.Dtype
		}
		if first.Regex == "" {
			first.Regex = v.Regex
		}
		if len(first.EnumValues) == 0 {
			first.EnumValues = v.EnumValues
		}
	}
	return out
}
