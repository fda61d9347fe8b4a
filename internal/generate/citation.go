package generate

import (
	"regexp"
	"sort"
	"strconv"
)

var citationMarker = regexp.MustCompile(`\[(\d+)\]`)

// ExtractCitations scans text for markers of the form [n] and returns
// the sorted unique set of referenced ids (spec §4.9 "Citation
// extraction").
func ExtractCitations(text string) []int {
	matches := citationMarker.FindAllStringSubmatch(text, -1)
	seen := make(map[int]bool, len(matches))
	for _, m := range matches {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		seen[n] = true
	}

	out := make([]int, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

// countCitationOccurrences counts every marker occurrence, including
// repeats, for CitationReport.TotalCitations.
func countCitationOccurrences(text string) int {
	return len(citationMarker.FindAllString(text, -1))
}

// ValidateCitations computes the advisory report of spec §4.9: cited
// ids present in both text and candidates, candidate ids never
// referenced, referenced ids with no matching candidate, total marker
// occurrences, and overall validity. It never rewrites text.
func ValidateCitations(text string, sources []Source) CitationReport {
	candidateIDs := make(map[int]bool, len(sources))
	for _, s := range sources {
		candidateIDs[s.ID] = true
	}

	referenced := ExtractCitations(text)
	referencedSet := make(map[int]bool, len(referenced))
	for _, n := range referenced {
		referencedSet[n] = true
	}

	var cited, invalid []int
	for _, n := range referenced {
		if candidateIDs[n] {
			cited = append(cited, n)
		} else {
			invalid = append(invalid, n)
		}
	}

	var uncited []int
	for _, s := range sources {
		if !referencedSet[s.ID] {
			uncited = append(uncited, s.ID)
		}
	}
	sort.Ints(uncited)

	return CitationReport{
		CitedSources:     cited,
		UncitedSources:   uncited,
		InvalidCitations: invalid,
		TotalCitations:   countCitationOccurrences(text),
		Valid:            len(invalid) == 0,
	}
}
