// Package workflow holds the domain logic behind each command: the
// prompts sent to the LLM providers and the mapping between model
// output and sheet columns. Engines call into these as analyzers.
package workflow

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/protaige/outreach-cli/internal/engine"
	"github.com/protaige/outreach-cli/internal/extract"
	"github.com/protaige/outreach-cli/internal/grid"
	"github.com/protaige/outreach-cli/internal/llm"
	"github.com/protaige/outreach-cli/internal/model"
)

// CompanyColumns is the 1-based layout of the company list sheet.
type CompanyColumns struct {
	Name             int
	Website          int
	BusinessOverview int
	TargetAudience   int
	Products         int
	Pricing          int
}

// DefaultCompanyColumns matches the sheet layout the commands assume.
func DefaultCompanyColumns() CompanyColumns {
	return CompanyColumns{
		Name:             1,
		Website:          2,
		BusinessOverview: 3,
		TargetAudience:   4,
		Products:         5,
		Pricing:          6,
	}
}

// Outputs returns the columns the enrichment fills, in field order.
func (c CompanyColumns) Outputs() []int {
	return []int{c.BusinessOverview, c.TargetAudience, c.Products, c.Pricing}
}

const companySystem = `You are a TOP MARKET RESEARCHER. Return ONLY a JSON object with the following structure, no other text: { "businessOverview": "...", "targetAudience": "...", "products": "...", "pricing": "..." }`

// CompanyEnricher researches a company and fills its profile columns.
// It implements engine.RowAnalyzer over the company list sheet.
type CompanyEnricher struct {
	llm   llm.Completer
	model string
	cols  CompanyColumns
	log   *zap.Logger
}

// NewCompanyEnricher builds the analyzer for the company sheet.
func NewCompanyEnricher(completer llm.Completer, model string, cols CompanyColumns, log *zap.Logger) *CompanyEnricher {
	if log == nil {
		log = zap.NewNop()
	}
	return &CompanyEnricher{llm: completer, model: model, cols: cols, log: log}
}

func (e *CompanyEnricher) AnalyzeRow(ctx context.Context, row engine.Row) (engine.RowResult, error) {
	name := row.Cell(e.cols.Name)
	website := row.Cell(e.cols.Website)

	e.log.Debug("researching company", zap.String("company", name), zap.String("website", website))

	text, err := e.llm.Complete(ctx, llm.Request{
		System: companySystem,
		User: fmt.Sprintf("Research and provide information about %s (website: %s) in the specified JSON format. Include ONLY the JSON object, no other text.",
			name, website),
		Model: e.model,
	})
	if err != nil {
		return engine.RowResult{}, err
	}

	fields, err := extract.Object(text,
		model.FieldBusinessOverview,
		model.FieldTargetAudience,
		model.FieldProducts,
		model.FieldPricing)
	if err != nil {
		return engine.RowResult{}, err
	}

	return engine.RowResult{Updates: map[int]string{
		e.cols.BusinessOverview: fields[model.FieldBusinessOverview],
		e.cols.TargetAudience:   fields[model.FieldTargetAudience],
		e.cols.Products:         fields[model.FieldProducts],
		e.cols.Pricing:          fields[model.FieldPricing],
	}}, nil
}

// LoadCompanies reads the company sheet into a name-keyed entity map
// used to resolve matrix headers. Rows without a name are ignored.
func LoadCompanies(store grid.Store, cols CompanyColumns) (map[string]model.Entity, error) {
	total := store.Rows()
	if total < 2 {
		return map[string]model.Entity{}, nil
	}

	region, err := store.ReadRegion(2, 1, total-1, cols.Pricing)
	if err != nil {
		return nil, err
	}

	companies := make(map[string]model.Entity, len(region))
	for i, cells := range region {
		row := engine.Row{Index: 2 + i, Cells: cells}
		name := row.Cell(cols.Name)
		if name == "" {
			continue
		}
		companies[name] = model.Entity{
			Name: name,
			Fields: map[string]string{
				model.FieldWebsite:          row.Cell(cols.Website),
				model.FieldBusinessOverview: row.Cell(cols.BusinessOverview),
				model.FieldTargetAudience:   row.Cell(cols.TargetAudience),
				model.FieldProducts:         row.Cell(cols.Products),
				model.FieldPricing:          row.Cell(cols.Pricing),
			},
		}
	}
	return companies, nil
}

// CompanyResolver adapts a loaded company map to the matrix engine's
// resolve callback. Unknown names resolve to a bare entity; the
// analyzers treat those as unusable input.
func CompanyResolver(companies map[string]model.Entity) func(string) model.Entity {
	return func(name string) model.Entity {
		if e, ok := companies[name]; ok {
			return e
		}
		return model.Entity{Name: name}
	}
}
