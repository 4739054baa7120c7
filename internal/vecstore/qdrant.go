package vecstore

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"

	"github.com/veritaslegal/lexdraft-go/internal/matcher"
	"github.com/veritaslegal/lexdraft-go/internal/model"
)

// QdrantConfig holds connection parameters for a Qdrant instance.
type QdrantConfig struct {
	// Host is the Qdrant server hostname (default: localhost).
	Host string

	// Port is the Qdrant gRPC port (default: 6334).
	Port int

	// Collection is the Qdrant collection name to use.
	Collection string

	// VectorSize is the dimensionality of the template embeddings.
	VectorSize uint64

	// APIKey is the optional Qdrant API key for authenticated clusters.
	APIKey string

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool
}

// TemplateGetter loads the full template for an id returned by the index.
type TemplateGetter interface {
	GetTemplate(ctx context.Context, templateID string) (*model.Template, error)
}

// QdrantFinder serves candidate retrieval from a Qdrant collection. The
// index holds only embeddings and template ids; the SQLite store remains the
// source of truth for template content.
type QdrantFinder struct {
	client *qdrant.Client
	getter TemplateGetter
	cfg    *QdrantConfig
}

// NewQdrantFinder connects to Qdrant, ensures the collection exists
// (creating it with cosine distance if necessary), and returns a
// ready-to-use finder.
func NewQdrantFinder(ctx context.Context, cfg *QdrantConfig, getter TemplateGetter) (*QdrantFinder, error) {
	if getter == nil {
		return nil, fmt.Errorf("qdrant: template getter must not be nil")
	}
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}
	if cfg.Collection == "" {
		cfg.Collection = "lexdraft_templates"
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: failed to create client: %w", err)
	}

	f := &QdrantFinder{client: client, getter: getter, cfg: cfg}
	if err := f.ensureCollection(ctx); err != nil {
		return nil, err
	}
	return f, nil
}

// ensureCollection creates the Qdrant collection if it does not already exist.
func (f *QdrantFinder) ensureCollection(ctx context.Context) error {
	exists, err := f.client.CollectionExists(ctx, f.cfg.Collection)
	if err != nil {
		return fmt.Errorf("qdrant: failed to check collection existence: %w", err)
	}
	if exists {
		return nil
	}

	err = f.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: f.cfg.Collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     f.cfg.VectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("qdrant: failed to create collection %q: %w", f.cfg.Collection, err)
	}
	return nil
}

// IndexTemplate upserts a template's embedding into the collection. The
// point id is the template's internal uuid; the payload carries the
// template_id used to resolve search hits back to the store.
func (f *QdrantFinder) IndexTemplate(ctx context.Context, t *model.Template) error {
	if len(t.Embedding) == 0 {
		return fmt.Errorf("qdrant: template %s has no embedding", t.TemplateID)
	}

	_, err := f.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: f.cfg.Collection,
		Points: []*qdrant.PointStruct{{
			Id:      qdrant.NewIDUUID(t.ID),
			Vectors: qdrant.NewVectors(t.Embedding...),
			Payload: qdrant.NewValueMap(map[string]any{
				"template_id": t.TemplateID,
			}),
		}},
	})
	if err != nil {
		return fmt.Errorf("qdrant: upsert template %s: %w", t.TemplateID, err)
	}
	return nil
}

// FindCandidates performs a cosine similarity search and resolves the hits
// back to full templates. Hits whose template has since been deleted from
// the store are skipped.
func (f *QdrantFinder) FindCandidates(ctx context.Context, queryVector []float32, topK int) ([]matcher.ScoredTemplate, error) {
	limit := uint64(topK)
	results, err := f.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: f.cfg.Collection,
		Query:          qdrant.NewQuery(queryVector...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: search failed: %w", err)
	}

	out := make([]matcher.ScoredTemplate, 0, len(results))
	for _, r := range results {
		payload := r.Payload
		if payload == nil {
			continue
		}
		v, ok := payload["template_id"]
		if !ok {
			continue
		}
		t, err := f.getter.GetTemplate(ctx, v.GetStringValue())
		if err != nil {
			continue
		}
		out = append(out, matcher.ScoredTemplate{Template: t, Score: float64(r.Score)})
	}
	return out, nil
}

// Delete removes templates from the index by their internal uuids.
func (f *QdrantFinder) Delete(ctx context.Context, ids []string) error {
	pointIDs := make([]*qdrant.PointId, 0, len(ids))
	for _, id := range ids {
		pointIDs = append(pointIDs, qdrant.NewIDUUID(id))
	}

	_, err := f.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: f.cfg.Collection,
		Points:         qdrant.NewPointsSelector(pointIDs...),
	})
	if err != nil {
		return fmt.Errorf("qdrant: delete failed: %w", err)
	}
	return nil
}

// Ping calls the Qdrant HealthCheck RPC. Used by readiness probes.
func (f *QdrantFinder) Ping(ctx context.Context) error {
	if _, err := f.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("qdrant: health check failed: %w", err)
	}
	return nil
}

// Close closes the underlying Qdrant gRPC connection.
func (f *QdrantFinder) Close() error {
	return f.client.Close()
}
