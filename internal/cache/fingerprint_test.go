package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ZacharyN/org-archivist-sub001/internal/vectorstore"
)

func TestFingerprint_StableUnderExtraWhitespace(t *testing.T) {
	a := Fingerprint("grants  won   in 2023", 5, 0, nil)
	b := Fingerprint("grants won in 2023", 5, 0, nil)
	assert.Equal(t, a, b)
}

func TestFingerprint_StableUnderCase(t *testing.T) {
	a := Fingerprint("Grants Won", 5, 0, nil)
	b := Fingerprint("grants won", 5, 0, nil)
	assert.Equal(t, a, b)
}

func TestFingerprint_DiffersOnTopK(t *testing.T) {
	a := Fingerprint("grants won", 5, 0, nil)
	b := Fingerprint("grants won", 10, 0, nil)
	assert.NotEqual(t, a, b)
}

func TestFingerprint_StableUnderFilterConditionOrder(t *testing.T) {
	f1 := vectorstore.And(
		vectorstore.Equals("doc_type", "grant_proposal"),
		vectorstore.Range("year", 2020, 2024),
	)
	f2 := vectorstore.And(
		vectorstore.Range("year", 2020, 2024),
		vectorstore.Equals("doc_type", "grant_proposal"),
	)

	a := Fingerprint("query", 5, 0, &f1)
	b := Fingerprint("query", 5, 0, &f2)
	assert.Equal(t, a, b)
}

func TestFingerprint_DiffersOnFilterValue(t *testing.T) {
	f1 := vectorstore.Equals("doc_type", "grant_proposal")
	f2 := vectorstore.Equals("doc_type", "annual_report")

	a := Fingerprint("query", 5, 0, &f1)
	b := Fingerprint("query", 5, 0, &f2)
	assert.NotEqual(t, a, b)
}

func TestFingerprint_NilAndEmptyFilterAreEquivalent(t *testing.T) {
	empty := vectorstore.Filter{}
	a := Fingerprint("query", 5, 0, nil)
	b := Fingerprint("query", 5, 0, &empty)
	assert.Equal(t, a, b)
}
