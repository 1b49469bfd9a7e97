package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// reportPrompt is the fixed instruction sent with every uploaded report.
const reportPrompt = `You are a medical report analysis assistant. Analyze the attached medical report and summarize it clearly. Identify the patient name, report date, tests performed, key findings, and any stated diagnosis. Explain abnormal values in plain language. Format the response as markdown.`

// Summarizer turns an uploaded medical report into a plain-language summary.
type Summarizer interface {
	Summarize(ctx context.Context, mimeType string, data []byte) (string, error)
}

// GeminiSummarizer implements Summarizer using Google's Gemini API.
type GeminiSummarizer struct {
	client  *genai.Client
	modelID string
}

// NewGeminiSummarizer creates a Gemini-backed summarizer.
func NewGeminiSummarizer(ctx context.Context, apiKey, modelID string) (*GeminiSummarizer, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("analysis: gemini api key is required")
	}
	if strings.TrimSpace(modelID) == "" {
		modelID = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("analysis: failed to create gemini client: %w", err)
	}

	return &GeminiSummarizer{
		client:  client,
		modelID: modelID,
	}, nil
}

// Summarize sends the raw document bytes alongside the analysis prompt and
// returns the model's markdown response verbatim.
func (s *GeminiSummarizer) Summarize(ctx context.Context, mimeType string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.New("analysis: empty document")
	}

	model := s.client.GenerativeModel(s.modelID)
	resp, err := model.GenerateContent(ctx,
		genai.Blob{MIMEType: mimeType, Data: data},
		genai.Text(reportPrompt),
	)
	if err != nil {
		return "", fmt.Errorf("analysis: gemini request failed: %w", err)
	}

	if len(resp.Candidates) == 0 {
		return "", errors.New("analysis: gemini returned no candidates")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", errors.New("analysis: gemini returned empty content")
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if sb.Len() == 0 {
		return "", errors.New("analysis: gemini returned no text parts")
	}
	return sb.String(), nil
}

// Close releases the underlying API client.
func (s *GeminiSummarizer) Close() error {
	return s.client.Close()
}

var _ Summarizer = (*GeminiSummarizer)(nil)
