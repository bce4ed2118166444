package workflow

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/protaige/outreach-cli/internal/engine"
	"github.com/protaige/outreach-cli/internal/llm"
	"github.com/protaige/outreach-cli/internal/resilience"
)

// ContactColumns is the 1-based layout of the contacts sheet. The Name
// column carries "name\nemail" composite cells.
type ContactColumns struct {
	Name        int
	LinkedIn    int
	Connections int
	Outreach    int
	Status      int
}

// DefaultContactColumns matches the sheet layout the contacts command
// assumes.
func DefaultContactColumns() ContactColumns {
	return ContactColumns{Name: 1, LinkedIn: 2, Connections: 3, Outreach: 4, Status: 5}
}

// Outputs returns the columns the enrichment fills.
func (c ContactColumns) Outputs() []int {
	return []int{c.LinkedIn, c.Connections, c.Outreach}
}

// Contact is one parsed contact row.
type Contact struct {
	Name    string
	Email   string
	Company string
}

// ParseContact splits a composite name cell into name and email and
// derives the company from the email domain. Cells without both lines
// or with a malformed email are unusable input.
func ParseContact(cell string) (Contact, error) {
	var lines []string
	for _, line := range strings.FieldsFunc(cell, func(r rune) bool { return r == '\n' || r == '\r' }) {
		if s := strings.TrimSpace(line); s != "" {
			lines = append(lines, s)
		}
	}
	if len(lines) < 2 {
		return Contact{}, &resilience.ValidationError{Reason: "name cell does not contain both name and email"}
	}

	name, email := lines[0], lines[1]
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 {
		return Contact{}, &resilience.ValidationError{Reason: fmt.Sprintf("invalid email format: %s", email)}
	}
	domain := email[at+1:]
	company := domain
	if dot := strings.Index(domain, "."); dot > 0 {
		company = domain[:dot]
	}
	return Contact{Name: name, Email: email, Company: company}, nil
}

const contactResearchSystem = "You are a helpful AI assistant that provides accurate, detailed information. Focus on professional details and factual information."

// ContactEnricher chains three calls per contact: a professional
// profile lookup, a search for connected decision-makers, and a
// personalized outreach draft built from both. It implements
// engine.RowAnalyzer over the contacts sheet.
type ContactEnricher struct {
	research llm.Completer
	writer   llm.Completer

	researchModel string
	writerModel   string
	maxTokens     int

	// Product is the offering the outreach pitches.
	Product string

	cols ContactColumns
	log  *zap.Logger
}

// NewContactEnricher builds the contacts analyzer. research handles the
// two lookup calls, writer the outreach draft.
func NewContactEnricher(research, writer llm.Completer, researchModel, writerModel string, maxTokens int, product string, cols ContactColumns, log *zap.Logger) *ContactEnricher {
	if log == nil {
		log = zap.NewNop()
	}
	return &ContactEnricher{
		research:      research,
		writer:        writer,
		researchModel: researchModel,
		writerModel:   writerModel,
		maxTokens:     maxTokens,
		Product:       product,
		cols:          cols,
		log:           log,
	}
}

func (e *ContactEnricher) AnalyzeRow(ctx context.Context, row engine.Row) (engine.RowResult, error) {
	contact, err := ParseContact(row.Cell(e.cols.Name))
	if err != nil {
		return engine.RowResult{}, err
	}

	e.log.Info("enriching contact",
		zap.String("name", contact.Name),
		zap.String("company", contact.Company))

	linkedin, err := e.lookup(ctx, fmt.Sprintf(
		"Find detailed professional information about %s who works at %s. Include their current role, years at the company, previous experience, education, skills, and any notable projects or achievements. Focus on information that would be available on LinkedIn or similar professional profiles.",
		contact.Name, contact.Company))
	if err != nil {
		return engine.RowResult{}, err
	}

	connections, err := e.lookup(ctx, fmt.Sprintf(
		"Find 3-5 key decision-makers or team leaders at %s who might be connected to customer experience, digital transformation, or feedback management (excluding %s). For each person, provide their name, role, and brief background that makes them relevant for a CX AI platform like %s.",
		contact.Company, contact.Name, e.Product))
	if err != nil {
		return engine.RowResult{}, err
	}

	outreach, err := e.writer.Complete(ctx, llm.Request{
		User:      e.outreachPrompt(contact, linkedin, connections),
		Model:     e.writerModel,
		MaxTokens: e.maxTokens,
	})
	if err != nil {
		return engine.RowResult{}, err
	}

	return engine.RowResult{Updates: map[int]string{
		e.cols.LinkedIn:    linkedin,
		e.cols.Connections: connections,
		e.cols.Outreach:    outreach,
	}}, nil
}

func (e *ContactEnricher) lookup(ctx context.Context, query string) (string, error) {
	return e.research.Complete(ctx, llm.Request{
		System:    contactResearchSystem,
		User:      query,
		Model:     e.researchModel,
		MaxTokens: 2000,
	})
}

func (e *ContactEnricher) outreachPrompt(contact Contact, linkedin, connections string) string {
	return fmt.Sprintf(`You are a B2B sales expert specialized in AI and customer experience platforms.
I need to reach out to %s at %s.

Here's what I know about them:
%s

Other potential contacts at the company include:
%s

Based on this information, provide concise, personalized outreach suggestions for introducing %s, an AI-based customer experience platform. Include:

1. A compelling subject line for an email
2. A brief introduction that shows I've done my homework
3. A value proposition specifically tailored to their role and company
4. A clear, low-pressure call-to-action

Keep the suggestions action-oriented and focused on how %s can solve specific problems they might be facing with customer feedback.`,
		contact.Name, contact.Company, linkedin, connections, e.Product, e.Product)
}
