package workflow

import (
	"context"
	"fmt"

	"github.com/protaige/outreach-cli/internal/engine"
	"github.com/protaige/outreach-cli/internal/llm"
	"github.com/protaige/outreach-cli/internal/model"
	"github.com/protaige/outreach-cli/internal/resilience"
)

const narrativeSystem = "You are a business strategy consultant specializing in identifying collaboration opportunities between companies. Analyze the provided company information and suggest specific, actionable collaboration opportunities. Keep the response under 100 words and focus on the most impactful opportunity."

const narrativeUserTemplate = `Analyze collaboration opportunities between these companies. Focus on their products and where there can be easy wins such as cross and upselling opportunities:

Company 1: %s
Domain: %s
Business Overview: %s
Target Audience: %s
Products: %s

Company 2: %s
Domain: %s
Business Overview: %s
Target Audience: %s
Products: %s

What are the most promising collaboration opportunities between these companies? Define a roadmap and a potential pitch.`

// NarrativeAnalyzer writes a collaboration narrative for a company
// pair. It implements engine.PairAnalyzer for the fill pass.
type NarrativeAnalyzer struct {
	llm         llm.Completer
	model       string
	maxTokens   int
	temperature float64
}

// NewNarrativeAnalyzer builds the fill-pass analyzer.
func NewNarrativeAnalyzer(completer llm.Completer, model string, maxTokens int, temperature float64) *NarrativeAnalyzer {
	return &NarrativeAnalyzer{llm: completer, model: model, maxTokens: maxTokens, temperature: temperature}
}

func (n *NarrativeAnalyzer) AnalyzePair(ctx context.Context, a, b model.Entity, _ string) (engine.PairResult, error) {
	if err := requireProfiles(a, b); err != nil {
		return engine.PairResult{}, err
	}

	text, err := n.llm.Complete(ctx, llm.Request{
		System:      narrativeSystem,
		User:        pairPrompt(narrativeUserTemplate, a, b),
		Model:       n.model,
		MaxTokens:   n.maxTokens,
		Temperature: &n.temperature,
	})
	if err != nil {
		return engine.PairResult{}, err
	}
	if text == "" {
		return engine.PairResult{}, &resilience.ExtractionError{Reason: "empty narrative"}
	}
	return engine.PairResult{Value: text}, nil
}

// requireProfiles rejects pairs where either company has no stored
// profile. The matrix can list companies the research pass never
// populated; those pairs are skipped, not failed.
func requireProfiles(a, b model.Entity) error {
	for _, e := range []model.Entity{a, b} {
		if len(e.Fields) == 0 || allBlank(e) {
			return &resilience.ValidationError{Reason: fmt.Sprintf("missing company information for %s", e.Name)}
		}
	}
	return nil
}

func allBlank(e model.Entity) bool {
	for _, f := range model.CompanyOutputFields {
		if e.Fields[f] != "" {
			return false
		}
	}
	return true
}

func pairPrompt(template string, a, b model.Entity) string {
	return fmt.Sprintf(template,
		a.Name,
		a.Field(model.FieldWebsite, "Not provided"),
		a.Field(model.FieldBusinessOverview, "Not provided"),
		a.Field(model.FieldTargetAudience, "Not provided"),
		a.Field(model.FieldProducts, "Not provided"),
		b.Name,
		b.Field(model.FieldWebsite, "Not provided"),
		b.Field(model.FieldBusinessOverview, "Not provided"),
		b.Field(model.FieldTargetAudience, "Not provided"),
		b.Field(model.FieldProducts, "Not provided"),
	)
}
