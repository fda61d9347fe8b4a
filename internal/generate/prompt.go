package generate

import (
	"fmt"
	"strings"
)

// BuildSystemPrompt assembles the role/audience/section/tone/citation
// instruction block (spec §4.9 "Prompt assembly").
func BuildSystemPrompt(req Request) string {
	var b strings.Builder
	b.WriteString("You are a domain writer producing grant and organizational documents grounded strictly in the provided sources.\n")

	if req.Audience != "" {
		fmt.Fprintf(&b, "Write for the following audience: %s.\n", req.Audience)
	}
	if req.Section != "" {
		fmt.Fprintf(&b, "This text fills the following document section: %s.\n", req.Section)
	}
	if req.Tone != "" {
		fmt.Fprintf(&b, "Adopt the following tone: %s.\n", req.Tone)
	}
	if req.StyleDescription != "" {
		fmt.Fprintf(&b, "House writing style: %s.\n", req.StyleDescription)
	}

	b.WriteString("Cite every factual claim drawn from a source using its bracketed number, e.g. [1] or [2][3]. ")
	b.WriteString("Never cite a number that was not given to you as a source. Do not fabricate sources or facts absent from them.")
	return b.String()
}

// BuildUserPrompt concatenates the query, one numbered block per
// source, citation instructions, and any custom instructions.
func BuildUserPrompt(req Request) string {
	var b strings.Builder
	b.WriteString(req.Query)
	b.WriteString("\n\n")

	for _, s := range req.Sources {
		fmt.Fprintf(&b, "[%d] %s (%s, %d)\n%s\n\n", s.ID, s.Filename, s.DocType, s.Year, s.Text)
	}

	b.WriteString("Cite sources by their bracketed number inline with each claim they support.")
	if req.CustomInstructions != "" {
		b.WriteString("\n\n")
		b.WriteString(req.CustomInstructions)
	}
	return b.String()
}
