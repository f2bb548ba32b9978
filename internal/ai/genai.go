package ai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// models is the subset of *genai.Models used here.
type models interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	GenerateImages(ctx context.Context, model, prompt string, config *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error)
}

// GenAIClient implements Client on the Google Gen AI SDK.
type GenAIClient struct {
	models     models
	model      string
	imageModel string
	log        *zap.Logger
}

var _ Client = (*GenAIClient)(nil)

// NewGenAIClient creates a client authenticated with apiKey.
func NewGenAIClient(ctx context.Context, apiKey, model, imageModel string, log *zap.Logger) (*GenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("ai: api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("ai: create client: %w", err)
	}
	return newGenAIClient(client.Models, model, imageModel, log), nil
}

func newGenAIClient(m models, model, imageModel string, log *zap.Logger) *GenAIClient {
	if log == nil {
		log = zap.NewNop()
	}
	return &GenAIClient{models: m, model: model, imageModel: imageModel, log: log}
}

// ChatResponse generates a persona reply from the system role, history and
// the new user input.
func (c *GenAIClient) ChatResponse(ctx context.Context, req ChatRequest) (string, error) {
	contents := make([]*genai.Content, 0, len(req.History)+1)
	for _, t := range req.History {
		role := genai.Role(genai.RoleUser)
		if t.Role == RoleModel {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(t.Text, role))
	}
	contents = append(contents, genai.NewContentFromText(req.Input, genai.RoleUser))

	var cfg *genai.GenerateContentConfig
	if req.System != "" {
		cfg = &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(req.System, genai.RoleUser),
		}
	}
	return c.generate(ctx, "chat", contents, cfg)
}

// NFTMetadata asks for a JSON metadata document and decodes it.
func (c *GenAIClient) NFTMetadata(ctx context.Context, prompt string) (NFTMetadata, error) {
	cfg := &genai.GenerateContentConfig{ResponseMIMEType: "application/json"}
	text, err := c.generate(ctx, "nft metadata", genai.Text(metadataPrompt(prompt)), cfg)
	if err != nil {
		return NFTMetadata{}, err
	}
	return parseMetadata(text)
}

// NFTImage generates artwork and returns a URL for it: the storage URI when
// the service returns one, otherwise an inline data URL.
func (c *GenAIClient) NFTImage(ctx context.Context, prompt string) (string, error) {
	resp, err := c.models.GenerateImages(ctx, c.imageModel, imagePrompt(prompt), &genai.GenerateImagesConfig{
		NumberOfImages: 1,
	})
	if err != nil {
		c.log.Warn("ai: image generation failed", zap.Error(err))
		return "", fmt.Errorf("ai: generate image: %w", err)
	}
	if resp == nil || len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0].Image == nil {
		return "", fmt.Errorf("ai: generate image: %w", ErrEmptyResponse)
	}
	img := resp.GeneratedImages[0].Image
	if img.GCSURI != "" {
		return img.GCSURI, nil
	}
	if len(img.ImageBytes) == 0 {
		return "", fmt.Errorf("ai: generate image: %w", ErrEmptyResponse)
	}
	mime := img.MIMEType
	if mime == "" {
		mime = "image/png"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(img.ImageBytes), nil
}

// InvestmentAdvice generates allocation guidance for the request.
func (c *GenAIClient) InvestmentAdvice(ctx context.Context, req AdviceRequest) (string, error) {
	return c.generate(ctx, "investment advice", genai.Text(advicePrompt(req)), nil)
}

func (c *GenAIClient) generate(ctx context.Context, op string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (string, error) {
	resp, err := c.models.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		c.log.Warn("ai: generate content failed", zap.String("op", op), zap.Error(err))
		return "", fmt.Errorf("ai: %s: %w", op, err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("ai: %s: %w", op, ErrEmptyResponse)
	}
	return text, nil
}

// parseMetadata decodes a metadata document, tolerating a fenced code block
// around the JSON.
func parseMetadata(text string) (NFTMetadata, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	var md NFTMetadata
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &md); err != nil {
		return NFTMetadata{}, fmt.Errorf("ai: decode nft metadata: %w", err)
	}
	if md.Name == "" {
		return NFTMetadata{}, fmt.Errorf("ai: decode nft metadata: missing name")
	}
	return md, nil
}
