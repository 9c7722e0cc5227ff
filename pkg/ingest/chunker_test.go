package ingest

import (
	"reflect"
	"strings"
	"testing"
)

func TestSplitIntoSentences(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected []string
	}{
		{
			name:     "empty text",
			text:     "",
			expected: nil,
		},
		{
			name:     "single sentence",
			text:     "This is a sentence.",
			expected: []string{"This is a sentence."},
		},
		{
			name: "multiple sentences on one line",
			text: "First sentence. Second sentence! Third sentence?",
			expected: []string{
				"First sentence.",
				"Second sentence!",
				"Third sentence?",
			},
		},
		{
			name: "blank line is a hard boundary",
			text: "First paragraph without terminator\n\nSecond paragraph.",
			expected: []string{
				"First paragraph without terminator",
				"Second paragraph.",
			},
		},
		{
			name:     "sentence spanning lines",
			text:     "This sentence\ncontinues on the next line.",
			expected: []string{"This sentence continues on the next line."},
		},
		{
			name:     "no punctuation",
			text:     "just some words",
			expected: []string{"just some words"},
		},
		{
			name:     "numeric listing stays together",
			text:     "Steps: 1. plan 2. execute 3. review",
			expected: []string{"Steps: 1. plan 2. execute 3. review"},
		},
		{
			name:     "decimal number stays together",
			text:     "Margin grew by 3.14 percent last year.",
			expected: []string{"Margin grew by 3.14 percent last year."},
		},
		{
			name: "trailing quote belongs to sentence",
			text: `He said "stop." Then he left.`,
			expected: []string{
				`He said "stop."`,
				"Then he left.",
			},
		},
		{
			name:     "only whitespace",
			text:     "   \n\n  \t ",
			expected: nil,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := splitIntoSentences(test.text)
			if !reflect.DeepEqual(got, test.expected) {
				t.Errorf("splitIntoSentences() = %#v, want %#v", got, test.expected)
			}
		})
	}
}

func TestChunk_EmptyInput(t *testing.T) {
	chunks, err := Chunk("", "doc1", "", 0)
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	if chunks != nil {
		t.Errorf("Chunk() = %v, want nil", chunks)
	}
}

func TestChunk_SingleChunk(t *testing.T) {
	chunks, err := Chunk("One sentence. Another sentence.", "doc1", "", 0)
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("len(chunks) = %d, want 1", len(chunks))
	}
	c := chunks[0]
	if c.DocumentID != "doc1" || c.Index != 0 || c.Start != 0 || c.End != 2 {
		t.Errorf("chunk metadata = %+v", c)
	}
	if c.Text != "One sentence. Another sentence." {
		t.Errorf("chunk text = %q", c.Text)
	}
}

func TestChunk_SplitsOnTokenBudget(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 20; i++ {
		sb.WriteString("Strategic planning requires a clear view of the organization. ")
	}

	chunks, err := Chunk(sb.String(), "doc1", "", 30)
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("len(chunks) = %d, want at least 2", len(chunks))
	}

	prevEnd := 0
	for i, c := range chunks {
		if c.Index != i {
			t.Errorf("chunk %d has index %d", i, c.Index)
		}
		if c.Start != prevEnd {
			t.Errorf("chunk %d starts at %d, want %d", i, c.Start, prevEnd)
		}
		if c.End <= c.Start {
			t.Errorf("chunk %d has empty range [%d,%d)", i, c.Start, c.End)
		}
		if strings.TrimSpace(c.Text) == "" {
			t.Errorf("chunk %d has empty text", i)
		}
		prevEnd = c.End
	}
	if prevEnd != 20 {
		t.Errorf("last chunk ends at %d, want 20", prevEnd)
	}
}

func TestChunk_OversizedSentenceStandsAlone(t *testing.T) {
	long := strings.Repeat("very long sentence without any terminator ", 40)
	text := "Short one. " + long + ". Short two."

	chunks, err := Chunk(text, "doc1", "", 30)
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("len(chunks) = %d, want 3", len(chunks))
	}
	if chunks[0].Text != "Short one." {
		t.Errorf("first chunk = %q", chunks[0].Text)
	}
	if chunks[2].Text != "Short two." {
		t.Errorf("last chunk = %q", chunks[2].Text)
	}
}
