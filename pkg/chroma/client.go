package chroma

import (
	"context"
	"fmt"
	"log"
	"os"

	"nexus-backend/pkg/config"

	chroma "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings"
	"github.com/amikos-tech/chroma-go/pkg/embeddings/gemini"
)

const (
	collectionName = "tone_exemplars"
	maxDocumentLen = 8000
)

// Match is one nearest-neighbour hit
type Match struct {
	ID       string
	Distance float64
}

const defaultEmbeddingModel = "text-embedding-004"

func embeddingModel(cfg *config.Config) embeddings.EmbeddingModel {
	if cfg.GeminiEmbeddingModel == "" {
		return defaultEmbeddingModel
	}
	return embeddings.EmbeddingModel(cfg.GeminiEmbeddingModel)
}

// ExemplarIndex stores writing samples per user for style retrieval
type ExemplarIndex struct {
	client     chroma.Client
	collection chroma.Collection
}

func NewExemplarIndex(cfg *config.Config) (*ExemplarIndex, error) {
	if cfg.ChromaAPIKey == "" {
		return nil, fmt.Errorf("CHROMA_API_KEY is required")
	}

	if cfg.GeminiApiKey != "" {
		os.Setenv("GEMINI_API_KEY", cfg.GeminiApiKey)
	}

	embedFunc, err := gemini.NewGeminiEmbeddingFunction(
		gemini.WithEnvAPIKey(),
		gemini.WithDefaultModel(embeddingModel(cfg)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini embedding function: %w", err)
	}

	var client chroma.Client
	if cfg.ChromaDatabase != "" && cfg.ChromaTenant != "" {
		client, err = chroma.NewHTTPClient(
			chroma.WithBaseURL(chroma.ChromaCloudEndpoint),
			chroma.WithCloudAPIKey(cfg.ChromaAPIKey),
			chroma.WithDatabaseAndTenant(cfg.ChromaDatabase, cfg.ChromaTenant),
		)
	} else if cfg.ChromaTenant != "" {
		client, err = chroma.NewHTTPClient(
			chroma.WithBaseURL(chroma.ChromaCloudEndpoint),
			chroma.WithCloudAPIKey(cfg.ChromaAPIKey),
			chroma.WithTenant(cfg.ChromaTenant),
		)
	} else {
		client, err = chroma.NewHTTPClient(
			chroma.WithBaseURL(chroma.ChromaCloudEndpoint),
			chroma.WithCloudAPIKey(cfg.ChromaAPIKey),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create Chroma client: %w", err)
	}

	collection, err := client.GetOrCreateCollection(
		context.Background(),
		collectionName,
		chroma.WithEmbeddingFunctionCreate(embedFunc),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}

	log.Printf("[Chroma] Initialized collection: %s", collectionName)
	return &ExemplarIndex{client: client, collection: collection}, nil
}

// Upsert indexes an exemplar under its id, replacing any earlier version
func (i *ExemplarIndex) Upsert(ctx context.Context, id, userID, category, text string) error {
	if len(text) > maxDocumentLen {
		text = text[:maxDocumentLen]
	}

	metadata, err := chroma.NewDocumentMetadataFromMap(map[string]interface{}{
		"user_id":  userID,
		"category": category,
	})
	if err != nil {
		return fmt.Errorf("failed to create metadata: %w", err)
	}

	err = i.collection.Upsert(
		ctx,
		chroma.WithIDs(chroma.DocumentID(id)),
		chroma.WithMetadatas(metadata),
		chroma.WithTexts(text),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert exemplar: %w", err)
	}
	return nil
}

// Query returns the user's exemplars closest to text, nearest first
func (i *ExemplarIndex) Query(ctx context.Context, userID, text string, limit int) ([]Match, error) {
	results, err := i.collection.Query(
		ctx,
		chroma.WithQueryTexts(text),
		chroma.WithNResults(limit),
		chroma.WithWhereQuery(chroma.EqString("user_id", userID)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query exemplars: %w", err)
	}
	if results == nil || results.CountGroups() == 0 {
		return []Match{}, nil
	}

	idGroups := results.GetIDGroups()
	if len(idGroups) == 0 {
		return []Match{}, nil
	}
	distanceGroups := results.GetDistancesGroups()

	matches := make([]Match, 0, len(idGroups[0]))
	for n, id := range idGroups[0] {
		m := Match{ID: string(id)}
		if len(distanceGroups) > 0 && n < len(distanceGroups[0]) {
			m.Distance = float64(distanceGroups[0][n])
		}
		matches = append(matches, m)
	}
	return matches, nil
}

func (i *ExemplarIndex) Delete(ctx context.Context, id string) error {
	if err := i.collection.Delete(ctx, chroma.WithIDsDelete(chroma.DocumentID(id))); err != nil {
		return fmt.Errorf("failed to delete exemplar: %w", err)
	}
	return nil
}
