// Package textproc prepares post content for the inference API: sentence
// splitting, size-bounded chunking and light keyword extraction.
package textproc

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultChunkChars is the chunk bound used for summaries when none is configured.
const DefaultChunkChars = 4500

// TextChunk is one ordered span of whole sentences.
type TextChunk struct {
	Index   int    // 0-based position in the source text
	Content string // trimmed chunk text
}

// SplitSentences splits text right after '.', '?' or '!' when the punctuation
// is followed by whitespace. The whitespace run between sentences is dropped.
func SplitSentences(text string) []string {
	var sentences []string
	start := 0
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		i += size
		if r != '.' && r != '?' && r != '!' {
			continue
		}
		next, nsize := utf8.DecodeRuneInString(text[i:])
		if nsize == 0 || !unicode.IsSpace(next) {
			continue
		}
		sentences = append(sentences, text[start:i])
		for i < len(text) {
			ws, wsize := utf8.DecodeRuneInString(text[i:])
			if !unicode.IsSpace(ws) {
				break
			}
			i += wsize
		}
		start = i
	}
	if start < len(text) {
		sentences = append(sentences, text[start:])
	}
	return sentences
}

// Segment greedily packs sentences into chunks of at most maxChars characters.
//
// A sentence is appended when len(current)+len(sentence)+1 <= maxChars, where
// current carries its trailing separator. A single sentence longer than
// maxChars is emitted whole as its own chunk; it is never split or dropped.
// Lengths are counted in runes.
func Segment(text string, maxChars int) []TextChunk {
	if maxChars <= 0 {
		maxChars = DefaultChunkChars
	}

	var chunks []TextChunk
	var current strings.Builder
	currentLen := 0

	emit := func() {
		content := strings.TrimSpace(current.String())
		if content != "" {
			chunks = append(chunks, TextChunk{Index: len(chunks), Content: content})
		}
		current.Reset()
		currentLen = 0
	}

	for _, sent := range SplitSentences(text) {
		sentLen := utf8.RuneCountInString(sent)
		if strings.TrimSpace(sent) == "" {
			continue
		}
		if currentLen+sentLen+1 > maxChars {
			emit()
		}
		current.WriteString(sent)
		current.WriteByte(' ')
		currentLen += sentLen + 1
	}
	emit()

	return chunks
}

// Chunks is Segment without the index bookkeeping.
func Chunks(text string, maxChars int) []string {
	segs := Segment(text, maxChars)
	out := make([]string, len(segs))
	for i, c := range segs {
		out[i] = c.Content
	}
	return out
}
