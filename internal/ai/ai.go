package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Request is a single-turn completion: an optional system instruction and
// the user prompt.
type Request struct {
	System string
	Prompt string
}

// Generator returns the model's raw text for a request. The text is expected
// to contain JSON but callers must treat it as untrusted.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// PDFReader is implemented by providers that can read a PDF directly, used
// when local text extraction comes back empty (scanned documents).
type PDFReader interface {
	ReadPDF(ctx context.Context, data []byte) (string, error)
}

var ErrNotConfigured = errors.New("ai: no provider configured")

type Noop struct{}

func (Noop) Generate(ctx context.Context, req Request) (string, error) {
	return "", ErrNotConfigured
}

// Func adapts a plain function to Generator.
type Func func(ctx context.Context, req Request) (string, error)

func (f Func) Generate(ctx context.Context, req Request) (string, error) { return f(ctx, req) }

type timed struct {
	g Generator
	d time.Duration
}

// WithTimeout bounds every call made through g by d. A zero d returns g.
func WithTimeout(g Generator, d time.Duration) Generator {
	if d <= 0 {
		return g
	}
	return timed{g: g, d: d}
}

func (t timed) Generate(ctx context.Context, req Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()
	return t.g.Generate(ctx, req)
}

func (t timed) ReadPDF(ctx context.Context, data []byte) (string, error) {
	r, ok := t.g.(PDFReader)
	if !ok {
		return "", fmt.Errorf("ai: provider cannot read PDF files")
	}
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()
	return r.ReadPDF(ctx, data)
}

const (
	ProviderOff       = "off"
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Providers lists the accepted provider names.
func Providers() []string {
	return []string{ProviderOff, ProviderGemini, ProviderOpenAI, ProviderAnthropic}
}

// Options selects and configures a provider.
type Options struct {
	Provider string
	APIKey   string
	Model    string
	// BaseURL overrides the provider endpoint (OpenAI and Anthropic only).
	BaseURL string
}

// New builds the generator named by opts.Provider.
func New(ctx context.Context, opts Options) (Generator, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Provider)) {
	case "", ProviderOff:
		return Noop{}, nil
	case ProviderGemini:
		return NewGemini(ctx, opts.APIKey, opts.Model)
	case ProviderOpenAI:
		return NewOpenAI(opts.APIKey, opts.Model, opts.BaseURL)
	case ProviderAnthropic:
		return NewAnthropic(opts.APIKey, opts.Model, opts.BaseURL)
	default:
		return nil, fmt.Errorf("unknown ai provider %q", opts.Provider)
	}
}
