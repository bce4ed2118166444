package workflow

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/protaige/outreach-cli/internal/engine"
	"github.com/protaige/outreach-cli/internal/extract"
	"github.com/protaige/outreach-cli/internal/llm"
	"github.com/protaige/outreach-cli/internal/model"
	"github.com/protaige/outreach-cli/internal/resilience"
)

// ProfileColumns is the 1-based layout of the profiles sheet.
type ProfileColumns struct {
	Name    int
	URL     int
	Title   int
	About   int
	Subject int
	Content int
	Batch   int
	Status  int
}

// DefaultProfileColumns matches the sheet layout the profiles command
// assumes.
func DefaultProfileColumns() ProfileColumns {
	return ProfileColumns{Name: 1, URL: 2, Title: 3, About: 4, Subject: 5, Content: 6, Batch: 7, Status: 8}
}

// ProfileHeader is the header row written when the sheet is created.
var ProfileHeader = []string{"Name", "LinkedIn URL", "Title", "About Profile", "Email Subject", "Email Content", "Batch Number", "Status"}

// Outputs returns the columns the enrichment fills.
func (c ProfileColumns) Outputs() []int {
	return []int{c.Title, c.About, c.Subject, c.Content}
}

const profileSystem = "You are an expert at creating personalized B2B outreach content. Focus on value proposition and relevant experience."

const profileUserTemplate = `Research this LinkedIn profile: %s (%s)

Create a personalized outreach about %s. Key benefits:
%s

Keep the email funny and quirky.

YOU MUST RESPOND WITH VALID JSON ONLY. Do not include any explanatory text.
The JSON must have exactly these fields:
{
  "title": "their current title",
  "aboutProfile": "key insights about their background (max 100 words)",
  "emailSubject": "compelling personalized subject line",
  "emailContent": "professional personalized email (2-3 paragraphs)"
}`

// Pitch describes the product the outreach emails sell.
type Pitch struct {
	// Product names and summarizes the offering, for example
	// "Protaige, an AI-driven marketing automation platform".
	Product string
	// Benefits are bullet lines inserted into the prompt.
	Benefits []string
}

// ProfileEnricher drafts a personalized outreach email for one profile
// row. It implements engine.RowAnalyzer over the profiles sheet.
type ProfileEnricher struct {
	llm   llm.Completer
	model string
	pitch Pitch
	cols  ProfileColumns
	log   *zap.Logger
}

// NewProfileEnricher builds the profiles analyzer.
func NewProfileEnricher(completer llm.Completer, model string, pitch Pitch, cols ProfileColumns, log *zap.Logger) *ProfileEnricher {
	if log == nil {
		log = zap.NewNop()
	}
	return &ProfileEnricher{llm: completer, model: model, pitch: pitch, cols: cols, log: log}
}

func (e *ProfileEnricher) AnalyzeRow(ctx context.Context, row engine.Row) (engine.RowResult, error) {
	name := row.Cell(e.cols.Name)
	url := row.Cell(e.cols.URL)
	if url == "" {
		return engine.RowResult{}, &resilience.ValidationError{Reason: "missing LinkedIn URL"}
	}

	e.log.Debug("analyzing profile", zap.String("name", name), zap.String("url", url))

	benefits := make([]string, len(e.pitch.Benefits))
	for i, ben := range e.pitch.Benefits {
		benefits[i] = "- " + ben
	}

	text, err := e.llm.Complete(ctx, llm.Request{
		System:   profileSystem,
		User:     fmt.Sprintf(profileUserTemplate, name, url, e.pitch.Product, strings.Join(benefits, "\n")),
		Model:    e.model,
		JSONOnly: true,
	})
	if err != nil {
		return engine.RowResult{}, err
	}

	fields, err := extract.Object(text,
		model.FieldTitle,
		model.FieldAboutProfile,
		model.FieldEmailSubject,
		model.FieldEmailContent)
	if err != nil {
		return engine.RowResult{}, err
	}

	return engine.RowResult{Updates: map[int]string{
		e.cols.Title:   fields[model.FieldTitle],
		e.cols.About:   fields[model.FieldAboutProfile],
		e.cols.Subject: fields[model.FieldEmailSubject],
		e.cols.Content: fields[model.FieldEmailContent],
	}}, nil
}

const discoverySystem = "You are a thorough professional profile researcher. Focus on relevant experience and connections."

const discoveryUserTemplate = `These LinkedIn profiles were recently analyzed:
%s

Find 5 similar profiles in their networks who might be interested in %s. Focus on marketing directors, CMOs etc.

Format the response exactly like this:
PROFILES_START
name: Full Name
linkedin: Profile URL
PROFILES_END`

// ProfileDiscoverer proposes new profiles similar to recently analyzed
// ones. It implements engine.Discoverer for the profiles sheet.
type ProfileDiscoverer struct {
	llm   llm.Completer
	model string
	pitch Pitch
	log   *zap.Logger
}

// NewProfileDiscoverer builds the discovery client.
func NewProfileDiscoverer(completer llm.Completer, model string, pitch Pitch, log *zap.Logger) *ProfileDiscoverer {
	if log == nil {
		log = zap.NewNop()
	}
	return &ProfileDiscoverer{llm: completer, model: model, pitch: pitch, log: log}
}

func (d *ProfileDiscoverer) Discover(ctx context.Context, seeds []model.Seed) ([]model.Seed, error) {
	lines := make([]string, len(seeds))
	for i, s := range seeds {
		lines[i] = fmt.Sprintf("- %s (%s)", s.Name, s.URL)
	}

	text, err := d.llm.Complete(ctx, llm.Request{
		System: discoverySystem,
		User:   fmt.Sprintf(discoveryUserTemplate, strings.Join(lines, "\n"), d.pitch.Product),
		Model:  d.model,
	})
	if err != nil {
		return nil, err
	}

	found := extract.Profiles(text)
	d.log.Info("discovered profiles", zap.Int("count", len(found)))
	return found, nil
}
