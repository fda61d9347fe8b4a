package metadata

import (
	"fmt"
	"time"
)

const minYear = 2000

// Merge combines user input, filename hints, format-reported
// attributes, and derived text statistics into a canonical document
// record, in that precedence order (highest first). It never fails —
// validation problems become warnings, per spec.
func Merge(user UserInput, filename string, format FormatReported, derived Derived) Merged {
	hints := ParseFilename(filename)

	m := Merged{
		DocType:       user.DocType,
		Year:          user.Year,
		Programs:      user.Programs,
		Tags:          user.Tags,
		Outcome:       user.Outcome,
		PageCount:     format.PageCount,
		WordCount:     derived.WordCount,
		CharCount:     derived.CharCount,
		FileSizeBytes: derived.FileSizeBytes,
	}

	if m.DocType == "" && hints.HasType {
		m.DocType = hints.DocType
	}
	if m.DocType == "" {
		m.DocType = DocTypeOther
	}

	if m.Year == 0 && hints.HasYear {
		m.Year = hints.Year
	}

	// A filename outcome token is only applied when the user left
	// outcome empty.
	if m.Outcome == "" && hints.HasOutcome {
		m.Outcome = hints.Outcome
	}

	if m.Programs == nil {
		m.Programs = []string{}
	}
	if m.Tags == nil {
		m.Tags = []string{}
	}

	m.Warnings = validate(m)
	return m
}

// validate returns non-blocking warnings about the merged metadata.
func validate(m Merged) []string {
	var warnings []string

	if m.WordCount > 0 && m.WordCount < 10 {
		warnings = append(warnings, fmt.Sprintf("word count is low (%d words)", m.WordCount))
	}
	if m.FileSizeBytes > 0 && m.FileSizeBytes < 1024 {
		warnings = append(warnings, fmt.Sprintf("file size is small (%d bytes)", m.FileSizeBytes))
	}
	if m.Year != 0 {
		maxYear := time.Now().Year() + 1
		if m.Year < minYear || m.Year > maxYear {
			warnings = append(warnings, fmt.Sprintf("year %d is out of the expected range [%d, %d]", m.Year, minYear, maxYear))
		}
	}

	return warnings
}

// IsValidDocType reports whether dt is one of the canonical doc types.
func IsValidDocType(dt DocType) bool {
	for _, v := range ValidDocTypes {
		if v == dt {
			return true
		}
	}
	return false
}

// IsValidOutcome reports whether oc is one of the canonical outcomes,
// or empty (outcome is optional).
func IsValidOutcome(oc Outcome) bool {
	if oc == "" {
		return true
	}
	for _, v := range ValidOutcomes {
		if v == oc {
			return true
		}
	}
	return false
}
