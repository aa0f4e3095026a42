package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	openai "github.com/openai/openai-go"
)

// Client is the language-model inference collaborator. Components receive a
// Client at construction time; there is no package-level singleton.
type Client interface {
	// Generate runs a free-text completion.
	Generate(ctx context.Context, systemPrompt, prompt string) (string, error)

	// GenerateJSON runs a completion constrained to the given JSON schema and
	// returns the raw JSON text for the caller to unmarshal into its typed
	// result struct.
	GenerateJSON(ctx context.Context, systemPrompt, prompt, schemaName string, schema map[string]any) (string, error)

	// Embed returns one embedding vector per input text.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

const requestTimeout = 50 * time.Second

// OpenAIClient wraps the OpenAI chat completion and embedding endpoints.
type OpenAIClient struct {
	client         openai.Client
	model          string
	embeddingModel string
	temp           float64
}

func NewOpenAIClient(model, embeddingModel string, temp float64) *OpenAIClient {
	if model == "" {
		model = openai.ChatModelGPT4oMini
	}
	if embeddingModel == "" {
		embeddingModel = openai.EmbeddingModelTextEmbedding3Small
	}
	return &OpenAIClient{
		client:         openai.NewClient(),
		model:          model,
		embeddingModel: embeddingModel,
		temp:           temp,
	}
}

func (o *OpenAIClient) Generate(ctx context.Context, systemPrompt, prompt string) (string, error) {
	return o.complete(ctx, systemPrompt, prompt, openai.ChatCompletionNewParamsResponseFormatUnion{})
}

func (o *OpenAIClient) GenerateJSON(ctx context.Context, systemPrompt, prompt, schemaName string, schema map[string]any) (string, error) {
	format := openai.ChatCompletionNewParamsResponseFormatUnion{
		OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
			JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
				Name:   schemaName,
				Strict: openai.Bool(true),
				Schema: schema,
			},
		},
	}
	return o.complete(ctx, systemPrompt, prompt, format)
}

func (o *OpenAIClient) complete(ctx context.Context, systemPrompt, prompt string, format openai.ChatCompletionNewParamsResponseFormatUnion) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	var messages []openai.ChatCompletionMessageParamUnion
	if systemPrompt != "" {
		messages = append(messages, openai.SystemMessage(systemPrompt))
	}
	messages = append(messages, openai.UserMessage(prompt))

	req := openai.ChatCompletionNewParams{
		Model:       o.model,
		Messages:    messages,
		Temperature: openai.Float(o.temp),
	}
	if format.OfJSONSchema != nil {
		req.ResponseFormat = format
	}

	res, err := o.client.Chat.Completions.New(ctx, req)
	if err != nil {
		slog.Error("openai chat completion failed", "model", o.model, "error", err)
		return "", fmt.Errorf("openai generation failed: %w", err)
	}
	if len(res.Choices) == 0 {
		return "", fmt.Errorf("openai generation returned no choices")
	}

	return res.Choices[0].Message.Content, nil
}

func (o *OpenAIClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	res, err := o.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: o.embeddingModel,
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
	})
	if err != nil {
		slog.Error("openai embedding failed", "model", o.embeddingModel, "error", err)
		return nil, fmt.Errorf("openai embedding failed: %w", err)
	}

	vectors := make([][]float32, len(res.Data))
	for _, d := range res.Data {
		if int(d.Index) >= len(vectors) {
			return nil, fmt.Errorf("openai embedding returned out of range index %d", d.Index)
		}
		vec := make([]float32, len(d.Embedding))
		for i, v := range d.Embedding {
			vec[i] = float32(v)
		}
		vectors[d.Index] = vec
	}
	return vectors, nil
}
