package extractor

import (
	"context"
	"strings"
	"testing"

	"github.com/veritaslegal/lexdraft-go/internal/jsonx"
	"github.com/veritaslegal/lexdraft-go/internal/model"
)

// fakeCompleter returns scripted chunk results and records the prompts it saw.
type fakeCompleter struct {
	results []map[string]any
	errs    []error
	prompts []string
	calls   int
}

func (f *fakeCompleter) CompleteJSON(_ context.Context, _ string, userPrompt string) (map[string]any, error) {
	i := f.calls
	f.calls++
	f.prompts = append(f.prompts, userPrompt)
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i >= len(f.results) {
		return map[string]any{"variables": []any{}}, nil
	}
	return f.results[i], nil
}

func chunkOutput(docType string, vars ...map[string]any) map[string]any {
	anyVars := make([]any, len(vars))
	for i, v := range vars {
		anyVars[i] = v
	}
	return map[string]any{
		"variables":       anyVars,
		"similarity_tags": []any{"insurance", "notice"},
		"doc_type":        docType,
		"jurisdiction":    "India",
	}
}

func variable(key, label, example string) map[string]any {
	return map[string]any{
		"key":      key,
		"label":    label,
		"example":  example,
		"required": true,
		"dtype":    "string",
	}
}

func TestExtract_SingleChunk(t *testing.T) {
	t.Parallel()

	fake := &fakeCompleter{results: []map[string]any{
		chunkOutput("Notice to Insurer",
			variable("claimant_full_name", "Claimant's full name", "Rajesh Kumar"),
			variable("policy_number", "Policy number", "POL-2024-1138"),
		),
	}}
	e, err := New(fake, Config{})
	if err != nil {
		t.Fatal(err)
	}

	res, err := e.Extract(context.Background(), "To the insurer, regarding policy POL-2024-1138 held by Rajesh Kumar.")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if fake.calls != 1 {
		t.Errorf("oracle calls = %d, want 1", fake.calls)
	}
	if len(res.Variables) != 2 {
		t.Fatalf("variables = %d, want 2", len(res.Variables))
	}
	if res.DocType != "Notice to Insurer" || res.Jurisdiction != "India" {
		t.Errorf("metadata = %q/%q", res.DocType, res.Jurisdiction)
	}
	if len(res.SimilarityTags) != 2 {
		t.Errorf("tags = %v", res.SimilarityTags)
	}
	if res.Truncated {
		t.Error("small document should not be truncated")
	}
}

func TestExtract_MetadataFromFirstChunkOnly(t *testing.T) {
	t.Parallel()

	fake := &fakeCompleter{results: []map[string]any{
		chunkOutput("Notice to Insurer", variable("a", "A", "aaa")),
		chunkOutput("Completely Different Type", variable("b", "B", "bbb")),
	}}
	e, _ := New(fake, Config{ChunkChars: 10})

	para1 := strings.Repeat("x", 12)
	para2 := strings.Repeat("y", 12)
	res, err := e.Extract(context.Background(), para1+"\n\n"+para2)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if fake.calls != 2 {
		t.Fatalf("oracle calls = %d, want 2", fake.calls)
	}
	if res.DocType != "Notice to Insurer" {
		t.Errorf("doc_type = %q, want the first chunk's", res.DocType)
	}
	if len(res.Variables) != 2 {
		t.Errorf("variables = %d, want 2 (both chunks contribute)", len(res.Variables))
	}
}

func TestExtract_LaterChunksSeeKnownKeys(t *testing.T) {
	t.Parallel()

	fake := &fakeCompleter{results: []map[string]any{
		chunkOutput("Lease", variable("party_name", "Party name", "Acme Corp")),
		chunkOutput("ignored"),
	}}
	e, _ := New(fake, Config{ChunkChars: 10})

	_, err := e.Extract(context.Background(), strings.Repeat("x", 12)+"\n\n"+strings.Repeat("y", 12))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if strings.Contains(fake.prompts[0], "Previously discovered") {
		t.Error("first chunk must not carry prior variables")
	}
	if !strings.Contains(fake.prompts[1], "party_name") {
		t.Error("second chunk prompt missing previously discovered key")
	}
}

func TestExtract_DedupFirstWinsWithMerge(t *testing.T) {
	t.Parallel()

	first := variable("claim_amount", "Claim amount", "50000")
	delete(first, "dtype")
	second := variable("claim_amount", "Total claim amount", "99999")
	second["dtype"] = "number"
	second["regex"] = `^\d+$`

	fake := &fakeCompleter{results: []map[string]any{
		chunkOutput("Claim", first),
		chunkOutput("ignored", second),
	}}
	e, _ := New(fake, Config{ChunkChars: 10})

	res, err := e.Extract(context.Background(), strings.Repeat("x", 12)+"\n\n"+strings.Repeat("y", 12))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(res.Variables) != 1 {
		t.Fatalf("variables = %d, want 1 after dedup", len(res.Variables))
	}
	v := res.Variables[0]
	if v.Label != "Claim amount" || v.Example != "50000" {
		t.Errorf("first occurrence did not win: %+v", v)
	}
	if v.Dtype != "number" || v.Regex != `^\d+$` {
		t.Errorf("missing fields not merged from later duplicate: %+v", v)
	}
}

func TestExtract_UnparsableChunkAborts(t *testing.T) {
	t.Parallel()

	fake := &fakeCompleter{
		results: []map[string]any{chunkOutput("Lease", variable("a", "A", "aaa"))},
		errs:    []error{nil, jsonx.ErrUnparsable},
	}
	e, _ := New(fake, Config{ChunkChars: 10})

	_, err := e.Extract(context.Background(), strings.Repeat("x", 12)+"\n\n"+strings.Repeat("y", 12))
	if err == nil {
		t.Fatal("expected extraction to abort on unparsable chunk")
	}
}

func TestExtract_EmptyDocument(t *testing.T) {
	t.Parallel()

	e, _ := New(&fakeCompleter{}, Config{})
	_, err := e.Extract(context.Background(), "   \n\n  ")
	if !model.IsValidation(err) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestExtract_TruncatesOversizedDocument(t *testing.T) {
	t.Parallel()

	fake := &fakeCompleter{results: []map[string]any{chunkOutput("Lease")}}
	e, _ := New(fake, Config{ChunkChars: 1000, MaxDocumentChars: 40})

	res, err := e.Extract(context.Background(), strings.Repeat("z", 100))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !res.Truncated {
		t.Error("expected Truncated to be set")
	}
	if !strings.Contains(fake.prompts[0], strings.Repeat("z", 40)+"\n") {
		t.Error("prompt should carry exactly the truncated text")
	}
}
