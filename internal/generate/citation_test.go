package generate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractCitations_SortedUniqueSet(t *testing.T) {
	got := ExtractCitations("we won two grants [2][1] and another [1]")
	assert.Equal(t, []int{1, 2}, got)
}

func TestExtractCitations_NoMarkers(t *testing.T) {
	assert.Empty(t, ExtractCitations("no citations here"))
}

func TestValidateCitations_ComputesAllFields(t *testing.T) {
	sources := []Source{{ID: 1}, {ID: 2}, {ID: 3}}
	report := ValidateCitations("claim one [1] claim two [1][4]", sources)

	assert.Equal(t, []int{1}, report.CitedSources)
	assert.Equal(t, []int{2, 3}, report.UncitedSources)
	assert.Equal(t, []int{4}, report.InvalidCitations)
	assert.Equal(t, 3, report.TotalCitations)
	assert.False(t, report.Valid)
}

func TestValidateCitations_ValidWhenNoInvalidRefs(t *testing.T) {
	sources := []Source{{ID: 1}, {ID: 2}}
	report := ValidateCitations("supported by [1] and [2]", sources)

	assert.True(t, report.Valid)
	assert.Empty(t, report.UncitedSources)
	assert.Empty(t, report.InvalidCitations)
}

func TestValidateCitations_DoesNotRewriteText(t *testing.T) {
	sources := []Source{{ID: 1}}
	text := "an unsupported claim with no citation at all"
	report := ValidateCitations(text, sources)

	assert.Equal(t, 0, report.TotalCitations)
	assert.Equal(t, []int{1}, report.UncitedSources)
}
