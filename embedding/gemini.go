package embedding

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
)

const (
	DefaultGeminiModel      = "text-embedding-004"
	DefaultGeminiDimensions = 768
)

// GeminiProvider embeds text with a Gemini embedding model.
type GeminiProvider struct {
	model      *genai.EmbeddingModel
	modelName  string
	dimensions int
}

// NewGeminiProvider builds a provider on an already constructed Gemini client.
func NewGeminiProvider(client *genai.Client, modelName string, dimensions int) (*GeminiProvider, error) {
	if client == nil {
		return nil, fmt.Errorf("gemini embedding: client is required")
	}
	if modelName == "" {
		modelName = DefaultGeminiModel
	}
	if dimensions <= 0 {
		dimensions = DefaultGeminiDimensions
	}

	model := client.EmbeddingModel(modelName)
	model.TaskType = genai.TaskTypeRetrievalDocument

	return &GeminiProvider{
		model:      model,
		modelName:  modelName,
		dimensions: dimensions,
	}, nil
}

// Embed implements Provider.
func (p *GeminiProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	res, err := p.model.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("gemini embedding: %w", err)
	}
	if res == nil || res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, ErrEmptyEmbedding
	}

	vec := make([]float32, len(res.Embedding.Values))
	copy(vec, res.Embedding.Values)
	normalize(vec)
	return vec, nil
}

// Dimensions implements Provider.
func (p *GeminiProvider) Dimensions() int {
	return p.dimensions
}

// Name implements Provider.
func (p *GeminiProvider) Name() string {
	return "gemini:" + p.modelName
}
