package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeQuery_CollapsesWhitespaceAndStripsPunctuation(t *testing.T) {
	got := NormalizeQuery("  what   grants did;; we win??  ")
	assert.Equal(t, "what grants did we win", got)
}

func TestNormalizeQuery_ExpandsKnownAbbreviations(t *testing.T) {
	got := NormalizeQuery("did we submit an RFP last year")
	assert.Equal(t, "did we submit an RFP Request for Proposal last year", got)
}

func TestNormalizeQuery_ExpansionIsAppendedNotSubstituted(t *testing.T) {
	got := NormalizeQuery("KPI")
	assert.Equal(t, "KPI Key Performance Indicator", got)
}

func TestNormalizeQuery_EmptyAfterStrip(t *testing.T) {
	assert.Equal(t, "", NormalizeQuery("!!!???"))
}

func TestNormalizeQuery_FixedPointUnderReapplication(t *testing.T) {
	once := NormalizeQuery("our FTE count for the LOI")
	twice := NormalizeQuery(once)
	assert.Equal(t, once, twice)
}

func TestNormalizeQuery_FixedPointUnderExtraWhitespace(t *testing.T) {
	tight := NormalizeQuery("annual report 2023")
	loose := NormalizeQuery("annual    report   2023")
	assert.Equal(t, tight, loose)
}
