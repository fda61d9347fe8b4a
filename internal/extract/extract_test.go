package extract

import (
	"context"
	"testing"
)

func TestRegistry_ForUnknownExtension(t *testing.T) {
	r := NewRegistry()
	_, err := r.For("exe")
	if err == nil {
		t.Fatal("expected an error for an unsupported extension")
	}
}

func TestRegistry_ForKnownExtensions(t *testing.T) {
	r := NewRegistry()
	for _, ext := range []string{"pdf", "docx", "txt", "md", ".PDF"} {
		if _, err := r.For(ext); err != nil {
			t.Errorf("expected %q to resolve, got error: %v", ext, err)
		}
	}
}

func TestValidate_RejectsEmpty(t *testing.T) {
	if err := Validate(nil); err == nil {
		t.Fatal("expected error for empty data")
	}
	if err := Validate([]byte("x")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestTextExtractor_UTF8(t *testing.T) {
	e := &TextExtractor{}
	res, err := e.Extract(context.Background(), []byte("Hello, grant writer."))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Text != "Hello, grant writer." {
		t.Errorf("unexpected text: %q", res.Text)
	}
}

func TestTextExtractor_Latin1Fallback(t *testing.T) {
	e := &TextExtractor{}
	// 0xE9 is e-acute in Latin-1; invalid as a standalone UTF-8 byte.
	data := []byte{'c', 'a', 'f', 0xE9}
	res, err := e.Extract(context.Background(), data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Text != "café" {
		t.Errorf("expected latin-1 fallback decode, got %q", res.Text)
	}
}

func TestTextExtractor_RejectsEmpty(t *testing.T) {
	e := &TextExtractor{}
	if _, err := e.Extract(context.Background(), []byte("   ")); err == nil {
		t.Fatal("expected error for whitespace-only content")
	}
}
