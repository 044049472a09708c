package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	genai "google.golang.org/genai"
)

type Gemini struct {
	client *genai.Client
	model  string
}

func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, errors.New("missing GOOGLE_API_KEY")
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, err
	}
	return &Gemini{client: c, model: model}, nil
}

func (g *Gemini) Generate(ctx context.Context, req Request) (string, error) {
	var cfg *genai.GenerateContentConfig
	if req.System != "" {
		cfg = &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(req.System, genai.RoleUser),
		}
	}
	res, err := g.client.Models.GenerateContent(ctx, g.model, []*genai.Content{
		genai.NewContentFromText(req.Prompt, genai.RoleUser),
	}, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	return res.Text(), nil
}

// ReadPDF asks the model to transcribe a PDF, which also covers scanned
// pages that carry no text layer.
func (g *Gemini) ReadPDF(ctx context.Context, data []byte) (string, error) {
	content := []*genai.Content{
		{
			Role: genai.RoleUser,
			Parts: []*genai.Part{
				{Text: "Transcribe the text of this PDF in reading order. Return plain text only, no markdown, no commentary."},
				{InlineData: &genai.Blob{MIMEType: "application/pdf", Data: data}},
			},
		},
	}
	res, err := g.client.Models.GenerateContent(ctx, g.model, content, nil)
	if err != nil {
		return "", fmt.Errorf("gemini read pdf: %w", err)
	}
	return strings.TrimSpace(res.Text()), nil
}
