package enhance

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const systemPrompt = `You improve cold outreach emails written in markdown.
Rewrite the subject and body to be clear, friendly and concise.
Markers such as [[PH1]] stand for personalization variables: keep every marker exactly as written and never invent new ones.
Answer with a JSON object {"subject": "...", "body": "..."} and nothing else.`

// generateFunc sends one prompt and returns the model's text answer
type generateFunc func(ctx context.Context, prompt string) (string, error)

type geminiRewriter struct {
	generate generateFunc
}

func newGeminiRewriter(ctx context.Context, apiKey, model string) (*geminiRewriter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	temperature := float32(0.7)
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		ResponseMIMEType:  "application/json",
		Temperature:       &temperature,
	}

	return &geminiRewriter{
		generate: func(ctx context.Context, prompt string) (string, error) {
			resp, err := client.Models.GenerateContent(ctx, model,
				[]*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)},
				cfg,
			)
			if err != nil {
				return "", fmt.Errorf("gemini generate failed: %w", err)
			}
			return resp.Text(), nil
		},
	}, nil
}

func (r *geminiRewriter) rewrite(ctx context.Context, req Request) (Result, error) {
	text, err := r.generate(ctx, buildPrompt(req))
	if err != nil {
		return Result{}, err
	}
	return parseAnswer(text)
}

func buildPrompt(req Request) string {
	var sb strings.Builder
	if req.Instruction != "" {
		fmt.Fprintf(&sb, "Instruction: %s\n\n", req.Instruction)
	}
	fmt.Fprintf(&sb, "Subject:\n%s\n\nBody:\n%s\n", req.Subject, req.Body)
	return sb.String()
}

// parseAnswer decodes the JSON answer, tolerating a markdown code fence
// around it.
func parseAnswer(text string) (Result, error) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(text, "```")
		text = strings.TrimSpace(text)
	}

	var answer struct {
		Subject string `json:"subject"`
		Body    string `json:"body"`
	}
	if err := json.Unmarshal([]byte(text), &answer); err != nil {
		return Result{}, fmt.Errorf("failed to decode model answer: %w", err)
	}
	if answer.Subject == "" && answer.Body == "" {
		return Result{}, fmt.Errorf("model returned empty content")
	}
	return Result{Subject: answer.Subject, Body: answer.Body}, nil
}
