package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/forPelevin/brollcut/internal/domain/timeline"
	"github.com/forPelevin/brollcut/internal/ports/adapters/prompt"
	"github.com/forPelevin/brollcut/internal/types"
)

const DefaultModel = "gemini-2.5-flash"

// generator is the slice of *genai.Models the adapter calls.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type Adapter struct {
	gen   generator
	model string
}

func New(ctx context.Context, apiKey, model string) (*Adapter, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("gemini: api key is required")
	}
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return newWith(cli.Models, model), nil
}

func newWith(gen generator, model string) *Adapter {
	if model == "" {
		model = DefaultModel
	}
	return &Adapter{gen: gen, model: model}
}

func (a *Adapter) Propose(ctx context.Context, in types.OracleInput) ([]types.ProposedInsertion, error) {
	text, err := prompt.Build(in)
	if err != nil {
		return nil, err
	}
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType:  "application/json",
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: prompt.System}}},
	}
	resp, err := a.gen.GenerateContent(ctx, a.model, genai.Text(text), cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini generate (model=%s): %w", a.model, err)
	}
	out := responseText(resp)
	if strings.TrimSpace(out) == "" {
		return nil, fmt.Errorf("%w: gemini returned no text", types.ErrMalformedProposal)
	}
	clean, err := prompt.ExtractJSON(out)
	if err != nil {
		return nil, fmt.Errorf("%w: gemini: %v", types.ErrMalformedProposal, err)
	}
	return timeline.DecodeProposals([]byte(clean))
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p != nil && !p.Thought {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}
