package model

// Entity is a named row subject: a company on the matrix sheets or a
// contact/profile on the outreach sheets. Fields maps column labels to
// their stored string values.
type Entity struct {
	Name   string
	Fields map[string]string
}

// Field returns the named field value, or fallback when it is blank.
func (e Entity) Field(name, fallback string) string {
	if v := e.Fields[name]; v != "" {
		return v
	}
	return fallback
}

// Company field names used by the matrix workflows.
const (
	FieldWebsite          = "website"
	FieldBusinessOverview = "businessOverview"
	FieldTargetAudience   = "targetAudience"
	FieldProducts         = "products"
	FieldPricing          = "pricing"
)

// Profile field names used by the outreach workflows.
const (
	FieldLinkedInURL  = "linkedinUrl"
	FieldTitle        = "title"
	FieldAboutProfile = "aboutProfile"
	FieldEmailSubject = "emailSubject"
	FieldEmailContent = "emailContent"
)

// CompanyOutputFields are the enrichment outputs required for a company
// row to count as fully populated.
var CompanyOutputFields = []string{
	FieldBusinessOverview,
	FieldTargetAudience,
	FieldProducts,
	FieldPricing,
}

// ProfileOutputFields are the enrichment outputs for a profile row.
var ProfileOutputFields = []string{
	FieldTitle,
	FieldAboutProfile,
	FieldEmailSubject,
	FieldEmailContent,
}

// ProcessingState tracks the lifecycle of one unit of work (a matrix
// cell or a sheet row). Transitions are monotone per attempt:
// Empty -> Processing -> {Completed | Error}. Skipped is terminal and
// reached directly from Empty.
type ProcessingState string

const (
	StateEmpty      ProcessingState = ""
	StateProcessing ProcessingState = "PROCESSING"
	StateCompleted  ProcessingState = "COMPLETED"
	StateError      ProcessingState = "ERROR"
	StateSkipped    ProcessingState = "SKIPPED"
	StatePending    ProcessingState = "Pending"
)

// Tier classifies a probability score for cell styling.
type Tier string

const (
	TierFavorable   Tier = "favorable"
	TierNeutral     Tier = "neutral"
	TierUnfavorable Tier = "unfavorable"
)

// Background fill colors per tier, carried over from the sheet styling.
const (
	ColorFavorable   = "#b7e1cd" // light green
	ColorNeutral     = "#fff2cc" // light yellow
	ColorUnfavorable = "#f4c7c3" // light red
	ColorError       = "#ffcdd2"
	ColorSkipped     = "#d9d9d9"
	ColorProcessing  = "#fce5cd"
	ColorCompleted   = "#d9ead3"
)

// TierForScore maps a clamped 0-100 score to its tier.
func TierForScore(score int) Tier {
	switch {
	case score >= 70:
		return TierFavorable
	case score >= 40:
		return TierNeutral
	default:
		return TierUnfavorable
	}
}

// TierColor returns the background color for a tier.
func TierColor(t Tier) string {
	switch t {
	case TierFavorable:
		return ColorFavorable
	case TierNeutral:
		return ColorNeutral
	default:
		return ColorUnfavorable
	}
}

// Seed identifies a row used to discover related entities, and the
// shape of a discovered entity before it is appended to the sheet.
type Seed struct {
	Name string
	URL  string
}
