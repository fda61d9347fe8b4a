package metadata

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// FilenameHints are the fields a filename pattern can plausibly supply.
type FilenameHints struct {
	DocType DocType
	HasType bool

	Year    int
	HasYear bool

	Funder string

	Outcome  Outcome
	HasOutcome bool
}

// underscorePattern matches TYPE_YEAR_FUNDER[_OUTCOME], e.g.
// "GrantProposal_2023_NSF_Funded.pdf".
var underscorePattern = regexp.MustCompile(`^([A-Za-z]+)_(\d{4})_([A-Za-z0-9]+)(?:_([A-Za-z]+))?$`)

// spacedYearPattern matches SOMETHING YEAR, e.g. "Annual Report 2022.docx".
var spacedYearPattern = regexp.MustCompile(`^(.+?)[\s_-]+(\d{4})$`)

// ParseFilename extracts hints from a filename's base name (extension
// stripped). It tries the underscore-delimited TYPE_YEAR_FUNDER pattern
// first, then falls back to a trailing four-digit year.
func ParseFilename(filename string) FilenameHints {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	base = strings.TrimSpace(base)

	var hints FilenameHints

	if m := underscorePattern.FindStringSubmatch(base); m != nil {
		if dt, ok := normalizeDocType(m[1]); ok {
			hints.DocType = dt
			hints.HasType = true
		}
		if year, err := strconv.Atoi(m[2]); err == nil {
			hints.Year = year
			hints.HasYear = true
		}
		hints.Funder = m[3]
		if m[4] != "" {
			if oc, ok := normalizeOutcome(m[4]); ok {
				hints.Outcome = oc
				hints.HasOutcome = true
			}
		}
		return hints
	}

	if m := spacedYearPattern.FindStringSubmatch(base); m != nil {
		if year, err := strconv.Atoi(m[2]); err == nil {
			hints.Year = year
			hints.HasYear = true
		}
		if dt, ok := normalizeDocType(m[1]); ok {
			hints.DocType = dt
			hints.HasType = true
		}
		return hints
	}

	return hints
}

// normalizeDocType maps a loose token (PascalCase, snake_case, spaced,
// any case) to a canonical DocType.
func normalizeDocType(token string) (DocType, bool) {
	key := normalizeToken(token)
	switch key {
	case "grantproposal", "grant", "proposal":
		return DocTypeGrantProposal, true
	case "annualreport", "annual":
		return DocTypeAnnualReport, true
	case "programdescription", "program":
		return DocTypeProgramDescription, true
	case "impactreport", "impact":
		return DocTypeImpactReport, true
	case "strategicplan", "strategic", "plan":
		return DocTypeStrategicPlan, true
	case "other":
		return DocTypeOther, true
	default:
		return "", false
	}
}

// normalizeOutcome maps a filename outcome token to the canonical set.
func normalizeOutcome(token string) (Outcome, bool) {
	switch normalizeToken(token) {
	case "funded", "awarded":
		return OutcomeFunded, true
	case "notfunded", "declined", "rejected":
		return OutcomeNotFunded, true
	case "pending", "submitted":
		return OutcomePending, true
	case "finalreport", "final", "report":
		return OutcomeFinalReport, true
	default:
		return "", false
	}
}

func normalizeToken(s string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(s) {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
