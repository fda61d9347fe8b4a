package retrieval

import (
	"regexp"
	"strings"
)

var (
	queryWhitespace  = regexp.MustCompile(`\s+`)
	disallowedQuery  = regexp.MustCompile(`[^A-Za-z0-9 \-']`)
)

// abbreviations is the fixed expansion dictionary (spec §4.7a). Each
// abbreviation found in the query has its expansion appended alongside
// the original token, so both forms are available to the sub-searches.
var abbreviations = map[string]string{
	"rfp": "Request for Proposal",
	"loi": "Letter of Intent",
	"fte": "Full-Time Equivalent",
	"kpi": "Key Performance Indicator",
}

// NormalizeQuery collapses whitespace, strips characters outside
// [A-Za-z0-9 \-'], then expands known abbreviations by appending their
// expansion alongside the original token. It is a fixed point under
// repeated application and under extra inner whitespace.
func NormalizeQuery(query string) string {
	cleaned := disallowedQuery.ReplaceAllString(query, "")
	cleaned = strings.TrimSpace(queryWhitespace.ReplaceAllString(cleaned, " "))
	if cleaned == "" {
		return ""
	}

	words := strings.Split(cleaned, " ")
	var out []string
	for i, w := range words {
		out = append(out, w)
		expansion, ok := abbreviations[strings.ToLower(w)]
		if !ok || alreadyExpanded(words, i+1, expansion) {
			continue
		}
		out = append(out, expansion)
	}
	return strings.Join(out, " ")
}

// alreadyExpanded reports whether the words immediately following
// index start already spell out expansion, so a query that has been
// normalized once does not have its expansion re-appended on a later
// pass (NormalizeQuery must be a fixed point under reapplication).
func alreadyExpanded(words []string, start int, expansion string) bool {
	expansionWords := strings.Split(expansion, " ")
	if start+len(expansionWords) > len(words) {
		return false
	}
	for j, ew := range expansionWords {
		if words[start+j] != ew {
			return false
		}
	}
	return true
}
