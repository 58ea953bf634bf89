package llm

import (
	"context"
	"fmt"
	"os"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/bacmr/maktaba/internal/core"
)

type GeminiEmbedder struct {
	client    *genai.Client
	modelName string
}

var _ core.Embedder = (*GeminiEmbedder)(nil)

func NewGeminiEmbedder(ctx context.Context, apiKey, modelName string) (*GeminiEmbedder, error) {
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	if modelName == "" {
		modelName = "gemini-embedding-001"
	}
	return &GeminiEmbedder{client: cl, modelName: modelName}, nil
}

func (g *GeminiEmbedder) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

// EmbedText makes one embedding call for one text. Batch-level concurrency is the
// caller's concern; there is no transport-level batching here.
func (g *GeminiEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	em := g.client.EmbeddingModel(g.modelName)
	resp, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, &core.EmbedError{Err: fmt.Errorf("gemini embed: %w", err)}
	}
	if resp.Embedding == nil || len(resp.Embedding.Values) == 0 {
		return nil, &core.EmbedError{Err: fmt.Errorf("gemini embed: empty embedding for %d-char text", len(text))}
	}
	return resp.Embedding.Values, nil
}
