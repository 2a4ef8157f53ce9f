package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

// Fixed decoding parameters for text generation.
const (
	maxTokenCount = 2000
	temperature   = 0.7
	topP          = 0.95
)

// invokeAPI is the minimal bedrock-runtime interface required by Generator.
// *bedrockruntime.Client satisfies it.
type invokeAPI interface {
	InvokeModel(ctx context.Context, in *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// titanRequest is the minimal request body for Titan text models.
type titanRequest struct {
	InputText            string      `json:"inputText"`
	TextGenerationConfig titanConfig `json:"textGenerationConfig"`
}

type titanConfig struct {
	MaxTokenCount int     `json:"maxTokenCount"`
	Temperature   float64 `json:"temperature"`
	TopP          float64 `json:"topP"`
}

// titanResponse is the minimal response body returned by Titan text models.
type titanResponse struct {
	Results []struct {
		OutputText string `json:"outputText"`
	} `json:"results"`
}

// Generator submits prompts to a Bedrock text model with fixed decoding
// parameters and extracts the first candidate's text.
type Generator struct {
	api invokeAPI
}

// NewGenerator creates a Generator.
func NewGenerator(api invokeAPI) (*Generator, error) {
	if api == nil {
		return nil, errors.New("bedrock: invoke api must not be nil")
	}
	return &Generator{api: api}, nil
}

// Generate invokes modelID with the prompt and returns the first generated
// candidate's text, trimmed of surrounding whitespace.
func (g *Generator) Generate(ctx context.Context, modelID, prompt string) (string, error) {
	if strings.TrimSpace(modelID) == "" {
		return "", errors.New("bedrock: model id must not be empty")
	}

	body, err := json.Marshal(titanRequest{
		InputText: prompt,
		TextGenerationConfig: titanConfig{
			MaxTokenCount: maxTokenCount,
			Temperature:   temperature,
			TopP:          topP,
		},
	})
	if err != nil {
		return "", fmt.Errorf("bedrock: marshal request: %w", err)
	}

	out, err := g.api.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(modelID),
		Body:        body,
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("bedrock: invoke model: %w", err)
	}

	var payload titanResponse
	if err := json.Unmarshal(out.Body, &payload); err != nil {
		return "", fmt.Errorf("bedrock: decode response: %w", err)
	}
	if len(payload.Results) == 0 {
		return "", errors.New("bedrock: no results in response")
	}
	return strings.TrimSpace(payload.Results[0].OutputText), nil
}
