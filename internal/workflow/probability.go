package workflow

import (
	"context"
	"fmt"

	"github.com/protaige/outreach-cli/internal/engine"
	"github.com/protaige/outreach-cli/internal/extract"
	"github.com/protaige/outreach-cli/internal/grid"
	"github.com/protaige/outreach-cli/internal/llm"
	"github.com/protaige/outreach-cli/internal/model"
)

const probabilitySystem = "You are a business and marketing strategy expert. Analyze collaboration potential between companies and provide: 1) A probability score (0-100), and 2) A brief explanation of the score. Keep responses concise."

const probabilityUserTemplate = `Analyze the probability of successful collaboration between these companies:

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

Proposed Collaboration:
%s

Provide:
1. A probability score (0-100) for collaboration success
2. A brief explanation (max 100 words) of the score

Consider:
- Market alignment
- Product complementarity
- Target audience overlap
- Technical feasibility
- Potential conflicts
- Market timing

Format your response as:
Score: [number]
Reasoning: [explanation]`

// ProbabilityAnalyzer scores an existing collaboration narrative and
// styles the pair's cells by tier. It implements engine.PairAnalyzer
// for the scoring pass; the narrative stays untouched.
type ProbabilityAnalyzer struct {
	llm   llm.Completer
	model string
}

// NewProbabilityAnalyzer builds the scoring-pass analyzer.
func NewProbabilityAnalyzer(completer llm.Completer, model string) *ProbabilityAnalyzer {
	return &ProbabilityAnalyzer{llm: completer, model: model}
}

func (p *ProbabilityAnalyzer) AnalyzePair(ctx context.Context, a, b model.Entity, current string) (engine.PairResult, error) {
	if err := requireProfiles(a, b); err != nil {
		return engine.PairResult{}, err
	}

	text, err := p.llm.Complete(ctx, llm.Request{
		System: probabilitySystem,
		User: fmt.Sprintf(probabilityUserTemplate,
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
			current,
		),
		Model: p.model,
	})
	if err != nil {
		return engine.PairResult{}, err
	}

	score, reasoning, err := extract.ScoreReasoning(text)
	if err != nil {
		return engine.PairResult{}, err
	}

	return engine.PairResult{
		Style: &grid.Style{
			Background: model.TierColor(model.TierForScore(score)),
			Note:       fmt.Sprintf("Probability Score: %d%%\n\nReasoning: %s", score, reasoning),
		},
	}, nil
}
