package metadata

import (
	"testing"
)

func TestParseFilename_UnderscorePattern(t *testing.T) {
	h := ParseFilename("GrantProposal_2023_NSF_Funded.pdf")
	if !h.HasType || h.DocType != DocTypeGrantProposal {
		t.Errorf("expected grant_proposal doc type, got %+v", h)
	}
	if !h.HasYear || h.Year != 2023 {
		t.Errorf("expected year 2023, got %+v", h)
	}
	if h.Funder != "NSF" {
		t.Errorf("expected funder NSF, got %q", h.Funder)
	}
	if !h.HasOutcome || h.Outcome != OutcomeFunded {
		t.Errorf("expected funded outcome, got %+v", h)
	}
}

func TestParseFilename_SpacedYearPattern(t *testing.T) {
	h := ParseFilename("Annual Report 2022.docx")
	if !h.HasYear || h.Year != 2022 {
		t.Errorf("expected year 2022, got %+v", h)
	}
	if !h.HasType || h.DocType != DocTypeAnnualReport {
		t.Errorf("expected annual_report doc type, got %+v", h)
	}
}

func TestParseFilename_NoMatch(t *testing.T) {
	h := ParseFilename("notes.txt")
	if h.HasYear || h.HasType || h.HasOutcome {
		t.Errorf("expected no hints for an unstructured filename, got %+v", h)
	}
}

func TestMerge_UserPrecedesFilename(t *testing.T) {
	user := UserInput{DocType: DocTypeImpactReport, Year: 2024}
	m := Merge(user, "GrantProposal_2020_NSF_Funded.pdf", FormatReported{}, Derived{})
	if m.DocType != DocTypeImpactReport {
		t.Errorf("expected user doc_type to win, got %s", m.DocType)
	}
	if m.Year != 2024 {
		t.Errorf("expected user year to win, got %d", m.Year)
	}
}

func TestMerge_FilenameFillsGaps(t *testing.T) {
	m := Merge(UserInput{}, "GrantProposal_2020_NSF_Funded.pdf", FormatReported{}, Derived{})
	if m.DocType != DocTypeGrantProposal {
		t.Errorf("expected filename doc_type, got %s", m.DocType)
	}
	if m.Year != 2020 {
		t.Errorf("expected filename year, got %d", m.Year)
	}
	if m.Outcome != OutcomeFunded {
		t.Errorf("expected filename outcome to apply when user left it empty, got %s", m.Outcome)
	}
}

func TestMerge_OutcomeOnlyAppliedWhenUserAbsent(t *testing.T) {
	user := UserInput{Outcome: OutcomePending}
	m := Merge(user, "GrantProposal_2020_NSF_Funded.pdf", FormatReported{}, Derived{})
	if m.Outcome != OutcomePending {
		t.Errorf("expected user outcome to take precedence, got %s", m.Outcome)
	}
}

func TestMerge_DefaultsToOther(t *testing.T) {
	m := Merge(UserInput{}, "notes.txt", FormatReported{}, Derived{})
	if m.DocType != DocTypeOther {
		t.Errorf("expected default doc_type 'other', got %s", m.DocType)
	}
}

func TestMerge_WarningsNonBlocking(t *testing.T) {
	m := Merge(UserInput{Year: 1990}, "notes.txt", FormatReported{}, Derived{WordCount: 3, FileSizeBytes: 50})
	if len(m.Warnings) != 3 {
		t.Errorf("expected 3 warnings (word count, file size, year range), got %d: %v", len(m.Warnings), m.Warnings)
	}
}

func TestIsValidDocType(t *testing.T) {
	if !IsValidDocType(DocTypeGrantProposal) {
		t.Error("expected grant_proposal to be valid")
	}
	if IsValidDocType(DocType("bogus")) {
		t.Error("expected bogus doc type to be invalid")
	}
}

func TestIsValidOutcome(t *testing.T) {
	if !IsValidOutcome("") {
		t.Error("expected empty outcome to be valid (optional)")
	}
	if !IsValidOutcome(OutcomeFunded) {
		t.Error("expected funded to be valid")
	}
	if IsValidOutcome(Outcome("bogus")) {
		t.Error("expected bogus outcome to be invalid")
	}
}
