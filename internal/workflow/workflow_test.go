package workflow

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/protaige/outreach-cli/internal/engine"
	"github.com/protaige/outreach-cli/internal/grid"
	"github.com/protaige/outreach-cli/internal/llm"
	"github.com/protaige/outreach-cli/internal/model"
	"github.com/protaige/outreach-cli/internal/resilience"
)

func companyEntity(name string) model.Entity {
	return model.Entity{Name: name, Fields: map[string]string{
		model.FieldWebsite:          name + ".example",
		model.FieldBusinessOverview: name + " makes widgets",
		model.FieldTargetAudience:   "SMBs",
		model.FieldProducts:         "Widget Pro",
		model.FieldPricing:          "$99/mo",
	}}
}

func TestCompanyEnricherParsesFencedJSON(t *testing.T) {
	fake := &llm.Fake{Responses: []string{
		"```json\n{\"businessOverview\": \"Makes widgets\", \"targetAudience\": \"SMBs\", \"products\": \"Widget Pro\", \"pricing\": \"$99/mo\"}\n```",
	}}
	e := NewCompanyEnricher(fake, "sonar-pro", DefaultCompanyColumns(), nil)

	result, err := e.AnalyzeRow(context.Background(), engine.Row{Index: 2, Cells: []string{"Acme", "acme.example"}})
	require.NoError(t, err)

	assert.Equal(t, "Makes widgets", result.Updates[3])
	assert.Equal(t, "SMBs", result.Updates[4])
	assert.Equal(t, "Widget Pro", result.Updates[5])
	assert.Equal(t, "$99/mo", result.Updates[6])

	calls := fake.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].User, "Acme")
	assert.Contains(t, calls[0].User, "acme.example")
	assert.Contains(t, calls[0].System, "JSON object")
}

func TestCompanyEnricherMissingFields(t *testing.T) {
	fake := &llm.Fake{Responses: []string{`{"businessOverview": "Makes widgets"}`}}
	e := NewCompanyEnricher(fake, "sonar-pro", DefaultCompanyColumns(), nil)

	_, err := e.AnalyzeRow(context.Background(), engine.Row{Index: 2, Cells: []string{"Acme", ""}})
	require.Error(t, err)
	assert.True(t, resilience.IsExtraction(err))
	assert.Contains(t, err.Error(), "targetAudience")
}

func TestLoadCompanies(t *testing.T) {
	store := grid.NewMemoryStoreFrom([][]string{
		{"Company", "Website", "Overview", "Audience", "Products", "Pricing"},
		{"Acme", "acme.example", "widgets", "SMBs", "Widget Pro", "$99"},
		{"", "stray.example", "", "", "", ""},
		{"Beta", "beta.example", "", "", "", ""},
	})

	companies, err := LoadCompanies(store, DefaultCompanyColumns())
	require.NoError(t, err)
	require.Len(t, companies, 2)
	assert.Equal(t, "widgets", companies["Acme"].Fields[model.FieldBusinessOverview])
	assert.Equal(t, "beta.example", companies["Beta"].Fields[model.FieldWebsite])

	resolve := CompanyResolver(companies)
	assert.Equal(t, "Acme", resolve("Acme").Name)
	assert.Empty(t, resolve("Unknown").Fields)
}

func TestNarrativeAnalyzer(t *testing.T) {
	fake := &llm.Fake{Responses: []string{"Partner on a co-branded widget bundle."}}
	n := NewNarrativeAnalyzer(fake, "claude-3-5-sonnet-20241022", 8096, 0.7)

	result, err := n.AnalyzePair(context.Background(), companyEntity("Acme"), companyEntity("Beta"), "")
	require.NoError(t, err)
	assert.Equal(t, "Partner on a co-branded widget bundle.", result.Value)
	assert.Nil(t, result.Style)

	calls := fake.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].User, "Company 1: Acme")
	assert.Contains(t, calls[0].User, "Company 2: Beta")
	require.NotNil(t, calls[0].Temperature)
	assert.InDelta(t, 0.7, *calls[0].Temperature, 0.001)
}

func TestNarrativeAnalyzerMissingProfile(t *testing.T) {
	fake := &llm.Fake{Responses: []string{"should not be called"}}
	n := NewNarrativeAnalyzer(fake, "claude-3-5-sonnet-20241022", 8096, 0.7)

	_, err := n.AnalyzePair(context.Background(), companyEntity("Acme"), model.Entity{Name: "Ghost"}, "")
	require.Error(t, err)
	assert.True(t, resilience.IsValidation(err))
	assert.Contains(t, err.Error(), "Ghost")
	assert.Equal(t, 0, fake.CallCount())
}

func TestProbabilityAnalyzerStylesTier(t *testing.T) {
	fake := &llm.Fake{Responses: []string{"Score: 55\nReasoning: Audiences overlap but products compete."}}
	p := NewProbabilityAnalyzer(fake, "o3-mini")

	result, err := p.AnalyzePair(context.Background(), companyEntity("Acme"), companyEntity("Beta"), "co-branded bundle")
	require.NoError(t, err)
	assert.Empty(t, result.Value, "the narrative must stay untouched")
	require.NotNil(t, result.Style)
	assert.Equal(t, model.ColorNeutral, result.Style.Background)
	assert.Contains(t, result.Style.Note, "Probability Score: 55%")
	assert.Contains(t, result.Style.Note, "Audiences overlap")

	calls := fake.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].User, "co-branded bundle")
}

func TestParseContact(t *testing.T) {
	tests := []struct {
		name    string
		cell    string
		want    Contact
		wantErr bool
	}{
		{
			name: "name and email",
			cell: "Jane Doe\njane.doe@acme.io",
			want: Contact{Name: "Jane Doe", Email: "jane.doe@acme.io", Company: "acme"},
		},
		{
			name: "windows line endings and padding",
			cell: "  Jane Doe \r\n jane@beta.co \r\n",
			want: Contact{Name: "Jane Doe", Email: "jane@beta.co", Company: "beta"},
		},
		{
			name:    "single line",
			cell:    "Jane Doe",
			wantErr: true,
		},
		{
			name:    "no at sign",
			cell:    "Jane Doe\nnot-an-email",
			wantErr: true,
		},
		{
			name:    "empty cell",
			cell:    "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseContact(tt.cell)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, resilience.IsValidation(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestContactEnricherChainsCalls(t *testing.T) {
	research := &llm.Fake{Respond: func(req llm.Request) (string, error) {
		if strings.Contains(req.User, "decision-makers") {
			return "1. Sam Lee, VP CX", nil
		}
		return "Jane is Head of Support at acme.", nil
	}}
	writer := &llm.Fake{Responses: []string{"Subject: quick question about your feedback loop"}}

	e := NewContactEnricher(research, writer, "sonar-pro", "claude-3-7-sonnet-20250219", 800, "zenloop", DefaultContactColumns(), nil)

	result, err := e.AnalyzeRow(context.Background(), engine.Row{Index: 3, Cells: []string{"Jane Doe\njane@acme.io"}})
	require.NoError(t, err)

	assert.Equal(t, "Jane is Head of Support at acme.", result.Updates[2])
	assert.Equal(t, "1. Sam Lee, VP CX", result.Updates[3])
	assert.Equal(t, "Subject: quick question about your feedback loop", result.Updates[4])
	assert.Equal(t, 2, research.CallCount())
	assert.Equal(t, 1, writer.CallCount())

	// The outreach draft is grounded in both lookups.
	wcalls := writer.Calls()
	assert.Contains(t, wcalls[0].User, "Jane is Head of Support")
	assert.Contains(t, wcalls[0].User, "Sam Lee")
	assert.Contains(t, wcalls[0].User, "zenloop")
}

func TestProfileEnricher(t *testing.T) {
	fake := &llm.Fake{Responses: []string{
		`{"title": "CMO", "aboutProfile": "Growth background", "emailSubject": "A widget walked into a bar", "emailContent": "Hi there..."}`,
	}}
	pitch := Pitch{
		Product:  "Protaige, an AI-driven marketing automation platform",
		Benefits: []string{"Complete brand voice and story capture/management", "Persona creation and management"},
	}
	e := NewProfileEnricher(fake, "gpt-4o", pitch, DefaultProfileColumns(), nil)

	result, err := e.AnalyzeRow(context.Background(), engine.Row{
		Index: 4,
		Cells: []string{"Pat Quinn", "https://linkedin.example/in/patquinn"},
	})
	require.NoError(t, err)
	assert.Equal(t, "CMO", result.Updates[3])
	assert.Equal(t, "Growth background", result.Updates[4])
	assert.Equal(t, "A widget walked into a bar", result.Updates[5])
	assert.Equal(t, "Hi there...", result.Updates[6])

	calls := fake.Calls()
	require.Len(t, calls, 1)
	assert.True(t, calls[0].JSONOnly)
	assert.Contains(t, calls[0].User, "Pat Quinn")
	assert.Contains(t, calls[0].User, "- Persona creation and management")
}

func TestProfileEnricherMissingURL(t *testing.T) {
	fake := &llm.Fake{}
	e := NewProfileEnricher(fake, "gpt-4o", Pitch{Product: "Protaige"}, DefaultProfileColumns(), nil)

	_, err := e.AnalyzeRow(context.Background(), engine.Row{Index: 4, Cells: []string{"Pat Quinn", ""}})
	require.Error(t, err)
	assert.True(t, resilience.IsValidation(err))
	assert.Equal(t, 0, fake.CallCount())
}

func TestProfileDiscovererParsesBlock(t *testing.T) {
	fake := &llm.Fake{Responses: []string{`Here are some profiles:
PROFILES_START
name: Alex Rivera
linkedin: https://linkedin.example/in/arivera
name: Sam Chen
linkedin: https://linkedin.example/in/schen
PROFILES_END`}}

	d := NewProfileDiscoverer(fake, "llama-3.1-sonar-large-128k-chat", Pitch{Product: "AI marketing automation"}, nil)

	seeds, err := d.Discover(context.Background(), []model.Seed{{Name: "Pat Quinn", URL: "https://linkedin.example/in/patquinn"}})
	require.NoError(t, err)
	require.Len(t, seeds, 2)
	assert.Equal(t, "Alex Rivera", seeds[0].Name)
	assert.Equal(t, "https://linkedin.example/in/schen", seeds[1].URL)

	calls := fake.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].User, "Pat Quinn")
	assert.Contains(t, calls[0].User, "PROFILES_START")
}
