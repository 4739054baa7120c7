package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/veritaslegal/lexdraft-go/internal/bootstrap"
	"github.com/veritaslegal/lexdraft-go/internal/draft"
	"github.com/veritaslegal/lexdraft-go/internal/embedder"
	"github.com/veritaslegal/lexdraft-go/internal/extractor"
	"github.com/veritaslegal/lexdraft-go/internal/matcher"
	"github.com/veritaslegal/lexdraft-go/internal/oracle"
	"github.com/veritaslegal/lexdraft-go/internal/questions"
	"github.com/veritaslegal/lexdraft-go/internal/retry"
	"github.com/veritaslegal/lexdraft-go/internal/search"
	"github.com/veritaslegal/lexdraft-go/internal/store"
	"github.com/veritaslegal/lexdraft-go/internal/vecstore"
)

// services bundles the wired pipeline components shared by the CLI commands
// and the HTTP server. Optional members (searchAPI, boot, qdrant) are nil
// when their configuration is absent.
type services struct {
	store     *store.Store
	completer oracle.Completer
	embedder  embedder.Embedder
	extractor *extractor.Extractor
	matcher   *matcher.Matcher
	questions *questions.Generator
	drafts    *draft.Service
	searchAPI *search.Client
	boot      *bootstrap.Service
	qdrant    *vecstore.QdrantFinder
}

// buildServices wires the full pipeline from environment configuration.
// The returned cleanup func closes the store and the Qdrant connection.
func buildServices(ctx context.Context, log *slog.Logger) (*services, func(), error) {
	dbPath := os.Getenv("LEXDRAFT_DB")
	if dbPath == "" {
		var err error
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			return nil, nil, err
		}
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, nil, err
	}
	log.Info("store opened", slog.String("path", dbPath))

	cleanup := func() { _ = st.Close() }

	chatModel, err := oracle.NewChatModelFromEnv(ctx)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to initialise model provider: %w", err)
	}
	completer, err := oracle.NewChatOracle(chatModel, retry.Policy{})
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	log.Info("provider initialised", slog.String("provider", getEnvOrDefault("MODEL_PROVIDER", "gemini")))

	if err := embedder.Validate(log); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("embedding configuration: %w", err)
	}
	embClient, err := embedder.NewFromEnv()
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to initialise embedder: %w", err)
	}
	emb := embedder.WithRetry(embClient, retry.Policy{})

	svcs := &services{store: st, completer: completer, embedder: emb}

	// Candidate retrieval: Qdrant when configured, otherwise in-process
	// ranking over the SQLite-stored embeddings.
	var finder matcher.CandidateFinder
	if os.Getenv("QDRANT_HOST") != "" {
		embBackend := getEnvOrDefault("EMBEDDING_PROVIDER", getEnvOrDefault("MODEL_PROVIDER", "gemini"))
		qf, qErr := vecstore.NewQdrantFinder(ctx, &vecstore.QdrantConfig{
			Host:       os.Getenv("QDRANT_HOST"),
			Port:       getEnvInt("QDRANT_PORT", 6334),
			Collection: getEnvOrDefault("QDRANT_COLLECTION", "lexdraft_templates"),
			APIKey:     os.Getenv("QDRANT_API_KEY"),
			UseTLS:     os.Getenv("QDRANT_TLS") == "true",
			VectorSize: uint64(embedder.DefaultDimensions(embBackend)), //nolint:gosec // dimensions are bounded
		}, st)
		if qErr != nil {
			cleanup()
			return nil, nil, fmt.Errorf("failed to connect to qdrant: %w", qErr)
		}
		svcs.qdrant = qf
		finder = qf
		prev := cleanup
		cleanup = func() { _ = qf.Close(); prev() }
		log.Info("qdrant candidate index enabled", slog.String("host", os.Getenv("QDRANT_HOST")))
	} else {
		bf, bErr := vecstore.NewBruteForceFinder(st)
		if bErr != nil {
			cleanup()
			return nil, nil, bErr
		}
		finder = bf
	}

	svcs.matcher, err = matcher.New(emb, completer, finder, matcher.Config{
		ConfidenceThreshold: getEnvFloat("CONFIDENCE_THRESHOLD", 0),
		TopK:                getEnvInt("MATCH_TOP_K", 0),
	})
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	svcs.extractor, err = extractor.New(completer, extractor.Config{
		ChunkChars:       getEnvInt("EXTRACT_CHUNK_CHARS", 0),
		MaxDocumentChars: getEnvInt("EXTRACT_MAX_DOCUMENT_CHARS", 0),
	})
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	svcs.questions, err = questions.New(completer)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	svcs.drafts, err = draft.New(st, svcs.matcher, svcs.questions)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	// Web search and bootstrap are optional; they need an Exa API key.
	if key := os.Getenv("EXA_API_KEY"); key != "" {
		svcs.searchAPI, err = search.New(search.Config{
			APIKey:  key,
			BaseURL: os.Getenv("EXA_ENDPOINT"),
		})
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		var indexer bootstrap.Indexer
		if svcs.qdrant != nil {
			indexer = svcs.qdrant
		}
		svcs.boot, err = bootstrap.New(svcs.searchAPI, completer, svcs.extractor, emb, st, indexer)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
	} else {
		log.Info("web bootstrap disabled", slog.String("reason", "EXA_API_KEY not set"))
	}

	return svcs, cleanup, nil
}

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
