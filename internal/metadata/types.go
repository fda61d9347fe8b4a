// Package metadata merges document metadata from four sources into one
// canonical record: user-supplied input takes precedence over
// filename-derived hints, which take precedence over format-reported
// attributes, which take precedence over derived structural counts.
package metadata

// DocType is the closed set of document categories.
type DocType string

const (
	DocTypeGrantProposal      DocType = "grant_proposal"
	DocTypeAnnualReport       DocType = "annual_report"
	DocTypeProgramDescription DocType = "program_description"
	DocTypeImpactReport       DocType = "impact_report"
	DocTypeStrategicPlan      DocType = "strategic_plan"
	DocTypeOther              DocType = "other"
)

// Outcome is the closed set of grant outcomes.
type Outcome string

const (
	OutcomeFunded      Outcome = "funded"
	OutcomeNotFunded   Outcome = "not_funded"
	OutcomePending     Outcome = "pending"
	OutcomeFinalReport Outcome = "final_report"
)

// ValidDocTypes lists every DocType in canonical order, for error
// messages and UI enumeration.
var ValidDocTypes = []DocType{
	DocTypeGrantProposal, DocTypeAnnualReport, DocTypeProgramDescription,
	DocTypeImpactReport, DocTypeStrategicPlan, DocTypeOther,
}

// ValidOutcomes lists every Outcome in canonical order.
var ValidOutcomes = []Outcome{OutcomeFunded, OutcomeNotFunded, OutcomePending, OutcomeFinalReport}

// UserInput is the metadata a caller supplies explicitly at ingest time.
type UserInput struct {
	DocType  DocType
	Year     int
	Programs []string
	Tags     []string
	Outcome  Outcome
}

// FormatReported is metadata an extractor reports about the source
// file itself (page count, and whatever else a format can surface).
type FormatReported struct {
	PageCount int
}

// Derived is metadata computed directly from the extracted text.
type Derived struct {
	WordCount     int
	CharCount     int
	FileSizeBytes int
}

// Merged is the canonical document metadata after four-source merge.
type Merged struct {
	DocType  DocType
	Year     int
	Programs []string
	Tags     []string
	Outcome  Outcome

	PageCount     int
	WordCount     int
	CharCount     int
	FileSizeBytes int

	Warnings []string
}
