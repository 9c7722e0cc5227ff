// Package ingest turns uploaded plain-text documents into token-bounded,
// sentence-aware chunks and stores them with their embedding vectors. Chunks
// are the retrieval unit the vector search operates on.
package ingest

import (
	"strings"
	"unicode"

	"github.com/pkoukk/tiktoken-go"

	"github.com/strategraph/backend/pkg/common"
)

// DefaultMaxTokens bounds a single chunk. Chunks never split mid-sentence
// unless a single sentence alone exceeds the budget.
const DefaultMaxTokens = 400

// DefaultEncoder is the tiktoken encoding used for token accounting.
const DefaultEncoder = "o200k_base"

// Chunk splits text into sentence-aligned chunks of at most maxTokens
// tokens. Start and End record the sentence index range of each chunk so a
// chunk can be located in the source text later.
func Chunk(text string, documentID string, encoder string, maxTokens int) ([]common.Chunk, error) {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	if encoder == "" {
		encoder = DefaultEncoder
	}
	enc, err := tiktoken.GetEncoding(encoder)
	if err != nil {
		return nil, err
	}

	sentences := splitIntoSentences(text)
	if len(sentences) == 0 {
		return nil, nil
	}

	tokenCounts := make([]int, len(sentences))
	for i, s := range sentences {
		// +1 approximates the joining space
		tokenCounts[i] = len(enc.Encode(s, nil, nil)) + 1
	}

	var chunks []common.Chunk
	chunkStart := 0
	chunkTokens := 0

	flush := func(end int) {
		if end <= chunkStart {
			return
		}
		text := strings.TrimSpace(strings.Join(sentences[chunkStart:end], " "))
		chunks = append(chunks, common.Chunk{
			DocumentID: documentID,
			Index:      len(chunks),
			Start:      chunkStart,
			End:        end,
			Text:       text,
		})
		chunkStart = end
		chunkTokens = 0
	}

	for i := range sentences {
		if chunkTokens > 0 && chunkTokens+tokenCounts[i] > maxTokens {
			flush(i)
		}
		chunkTokens += tokenCounts[i]
	}
	flush(len(sentences))

	return chunks, nil
}

// splitIntoSentences breaks text into sentences, treating blank lines as
// hard boundaries and keeping numeric listings ("1. First 2. Second")
// inside one sentence.
func splitIntoSentences(text string) []string {
	lines := strings.Split(text, "\n")
	var sentences []string
	var current strings.Builder

	flushCurrent := func() {
		if current.Len() > 0 {
			sentences = append(sentences, strings.TrimSpace(current.String()))
			current.Reset()
		}
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			flushCurrent()
			continue
		}

		for _, sentence := range splitLineIntoSentences(trimmed) {
			if current.Len() > 0 {
				current.WriteString(" ")
			}
			current.WriteString(sentence)

			if endsSentence(sentence) {
				flushCurrent()
			}
		}
	}
	flushCurrent()

	var result []string
	for _, sentence := range sentences {
		if strings.TrimSpace(sentence) != "" {
			result = append(result, sentence)
		}
	}
	return result
}

func endsSentence(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasSuffix(s, ".") || strings.HasSuffix(s, "!") || strings.HasSuffix(s, "?")
}

func splitLineIntoSentences(line string) []string {
	var sentences []string
	var current strings.Builder

	for i := 0; i < len(line); i++ {
		current.WriteByte(line[i])

		if line[i] != '.' && line[i] != '!' && line[i] != '?' {
			continue
		}

		// "1. First item" listings and decimals like "3.14" are not
		// sentence ends
		if i > 0 && unicode.IsDigit(rune(line[i-1])) && i+1 < len(line) &&
			(line[i+1] == ' ' || unicode.IsDigit(rune(line[i+1]))) {
			continue
		}

		j := i + 1
		for j < len(line) && (line[j] == '.' || line[j] == '!' || line[j] == '?') {
			current.WriteByte(line[j])
			j++
		}
		for j < len(line) && (line[j] == '"' || line[j] == '\'' || line[j] == ')' ||
			line[j] == ']' || line[j] == '}') {
			current.WriteByte(line[j])
			j++
		}

		sentence := strings.TrimSpace(current.String())
		if sentence != "" {
			sentences = append(sentences, sentence)
		}
		current.Reset()
		i = j - 1
	}

	remaining := strings.TrimSpace(current.String())
	if remaining != "" {
		sentences = append(sentences, remaining)
	}

	return sentences
}
