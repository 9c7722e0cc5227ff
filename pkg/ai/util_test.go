package ai

import (
	"testing"
)

func TestUnmarshalFlexible_ObjectVariants(t *testing.T) {
	type node struct {
		Title     string  `json:"title"`
		Relevance float64 `json:"relevance,omitempty"`
	}

	tests := []struct {
		name  string
		input string
		want  node
	}{
		{
			name:  "valid json object",
			input: `{"title":"Growth"}`,
			want:  node{Title: "Growth"},
		},
		{
			name:  "unquoted key and single quotes",
			input: `{title: 'Growth'}`,
			want:  node{Title: "Growth"},
		},
		{
			name:  "trailing comma",
			input: `{"title":"Growth",}`,
			want:  node{Title: "Growth"},
		},
		{
			name:  "missing endbracket",
			input: `{"title":"Growth`,
			want:  node{Title: "Growth"},
		},
		{
			name:  "stringified invalid json object",
			input: `"{title: 'Growth'}"`,
			want:  node{Title: "Growth"},
		},
		{
			name:  "duplicate leading brace",
			input: "{\n{\n  \"title\": \"Growth\"\n}\n",
			want:  node{Title: "Growth"},
		},
		{
			name:  "markdown code fence",
			input: "```json\n{\"title\":\"Growth\",\"relevance\":7.5}\n```",
			want:  node{Title: "Growth", Relevance: 7.5},
		},
		{
			name:  "bare code fence",
			input: "```\n{\"title\":\"Growth\"}\n```",
			want:  node{Title: "Growth"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got node
			if err := UnmarshalFlexible(tc.input, &got); err != nil {
				t.Fatalf("UnmarshalFlexible() error = %v", err)
			}
			if got.Title != tc.want.Title || got.Relevance != tc.want.Relevance {
				t.Fatalf("UnmarshalFlexible() got = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestUnmarshalFlexible_ArrayVariants(t *testing.T) {
	type node struct {
		Title string `json:"title"`
	}

	input := `[{title:'A'},{title:'B',}]`
	var got []node
	if err := UnmarshalFlexible(input, &got); err != nil {
		t.Fatalf("UnmarshalFlexible() error = %v", err)
	}
	if len(got) != 2 || got[0].Title != "A" || got[1].Title != "B" {
		t.Fatalf("UnmarshalFlexible() got = %+v, want two nodes A,B", got)
	}
}

func TestUnmarshalFlexible_Unrecoverable(t *testing.T) {
	type node struct {
		Title string `json:"title"`
	}

	var got node
	if err := UnmarshalFlexible("hello", &got); err == nil {
		t.Fatalf("UnmarshalFlexible() expected error for unrecoverable input")
	}
}

func TestUnmarshalFlexible_NestedStringified(t *testing.T) {
	type graph struct {
		Root struct {
			Title    string `json:"title"`
			Children []struct {
				Title string `json:"title"`
			} `json:"children"`
		} `json:"root"`
	}

	input := `"{\n \"root\": {\n \"title\": \"Digitization\",\n \"children\": [{\"title\": \"Processes\"}, {\"title\": \"Culture\"}]\n }\n}"`
	var got graph
	if err := UnmarshalFlexible(input, &got); err != nil {
		t.Fatalf("UnmarshalFlexible() error = %v", err)
	}
	if got.Root.Title != "Digitization" {
		t.Fatalf("UnmarshalFlexible() root title = %q, want Digitization", got.Root.Title)
	}
	if len(got.Root.Children) != 2 || got.Root.Children[1].Title != "Culture" {
		t.Fatalf("UnmarshalFlexible() children = %+v, want Processes,Culture", got.Root.Children)
	}
}
