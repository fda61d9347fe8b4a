package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/ZacharyN/org-archivist-sub001/internal/vectorstore"
)

var fingerprintWhitespace = regexp.MustCompile(`\s+`)

// Fingerprint computes a stable hash over the normalized query, top_k,
// recency_weight, and a sorted JSON of non-empty filter fields (spec
// §4.8). It is a fixed point under extra inner whitespace in the query.
func Fingerprint(query string, topK int, recencyWeight float64, filter *vectorstore.Filter) string {
	normalized := strings.ToLower(strings.TrimSpace(fingerprintWhitespace.ReplaceAllString(query, " ")))

	var b strings.Builder
	b.WriteString(normalized)
	b.WriteByte('\x00')
	b.WriteString(strconv.Itoa(topK))
	b.WriteByte('\x00')
	b.WriteString(strconv.FormatFloat(recencyWeight, 'f', -1, 64))
	b.WriteByte('\x00')
	b.WriteString(canonicalFilterJSON(filter))

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// canonicalFilterJSON renders a filter's non-empty conditions as sorted,
// deterministic JSON so equivalent filters fingerprint identically
// regardless of construction order.
func canonicalFilterJSON(filter *vectorstore.Filter) string {
	if filter == nil || len(filter.Conditions) == 0 {
		return "{}"
	}

	type condJSON struct {
		Field string `json:"field"`
		Op    string `json:"op"`
		Value any    `json:"value,omitempty"`
		Values []any `json:"values,omitempty"`
		Min   float64 `json:"min,omitempty"`
		Max   float64 `json:"max,omitempty"`
	}

	conds := make([]condJSON, 0, len(filter.Conditions))
	for _, c := range filter.Conditions {
		conds = append(conds, condJSON{
			Field:  c.Field,
			Op:     string(c.Op),
			Value:  c.Value,
			Values: c.Values,
			Min:    c.Min,
			Max:    c.Max,
		})
	}
	sort.Slice(conds, func(i, j int) bool {
		if conds[i].Field != conds[j].Field {
			return conds[i].Field < conds[j].Field
		}
		return conds[i].Op < conds[j].Op
	})

	out, err := json.Marshal(conds)
	if err != nil {
		return fmt.Sprintf("%v", filter.Conditions)
	}
	return string(out)
}
