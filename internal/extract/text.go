package extract

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/ZacharyN/org-archivist-sub001/internal/ragerr"
)

// TextExtractor handles plain text and markdown uploads. It decodes as
// UTF-8 when valid, falling back to a byte-for-codepoint Latin-1
// (ISO-8859-1) decode otherwise, since that is the most common
// encoding found on legacy grant documents exported from older
// word processors.
type TextExtractor struct{}

func (t *TextExtractor) SupportedExtensions() []string { return []string{"txt", "md", "markdown"} }

func (t *TextExtractor) Extract(_ context.Context, data []byte) (*Result, error) {
	var text string
	if utf8.Valid(data) {
		text = string(data)
	} else {
		text = latin1ToUTF8(data)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ragerr.ValidationError("uploaded text file is empty").WithField("file")
	}

	return &Result{Text: text}, nil
}

// latin1ToUTF8 decodes data as ISO-8859-1, where every byte maps
// directly to the Unicode code point of the same value.
func latin1ToUTF8(data []byte) string {
	runes := make([]rune, len(data))
	for i, b := range data {
		runes[i] = rune(b)
	}
	return string(runes)
}
