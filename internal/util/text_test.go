package util

import "testing"

func TestSanitizePostgresText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "plain utf8",
			input: "hello world",
			want:  "hello world",
		},
		{
			name:  "contains null byte",
			input: "hel\x00lo",
			want:  "hello",
		},
		{
			name:  "contains invalid utf8",
			input: string([]byte{'a', 0xff, 'b'}),
			want:  "ab",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizePostgresText(tt.input)
			if got != tt.want {
				t.Fatalf("unexpected sanitized value: got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		name  string
		input string
		max   int
		want  string
	}{
		{
			name:  "short enough",
			input: "abc",
			max:   5,
			want:  "abc",
		},
		{
			name:  "exact length",
			input: "abcde",
			max:   5,
			want:  "abcde",
		},
		{
			name:  "truncated",
			input: "abcdef",
			max:   3,
			want:  "abc…",
		},
		{
			name:  "multibyte runes",
			input: "größer",
			max:   4,
			want:  "größ…",
		},
		{
			name:  "zero max",
			input: "abc",
			max:   0,
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TruncateRunes(tt.input, tt.max)
			if got != tt.want {
				t.Fatalf("unexpected truncation: got %q, want %q", got, tt.want)
			}
		})
	}
}
