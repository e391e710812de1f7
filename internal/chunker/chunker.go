// Package chunker splits document text into bounded-size pieces that each fit
// a single speech synthesis request.
//
// Sentences are found by splitting on every '.' character. Abbreviations,
// decimals and ellipses are not recognised, so "Dr. Smith" and "3.14" become
// sentence boundaries too. A sentence longer than the limit is never split and
// ends up alone in an oversized chunk.
package chunker

import (
	"strings"
	"unicode/utf8"
)

// DefaultMaxChars is the chunk limit used when none is configured.
const DefaultMaxChars = 4000

// Chunk is one piece of text submitted as a single synthesis request.
type Chunk struct {
	// Index is 1-based.
	Index int
	Text  string
}

// Options configures a Chunker.
type Options struct {
	MaxChars int
	// DropDegenerate skips sentences that are nothing but the appended
	// period, such as the one produced by trailing text after the last '.'.
	DropDegenerate bool
}

// Chunker groups sentences greedily into chunks of at most MaxChars characters.
// Characters are counted as runes, not bytes.
type Chunker struct {
	opts Options
}

func New(opts Options) *Chunker {
	if opts.MaxChars <= 0 {
		opts.MaxChars = DefaultMaxChars
	}
	return &Chunker{opts: opts}
}

// MaxChars reports the effective limit.
func (c *Chunker) MaxChars() int { return c.opts.MaxChars }

// Split is a shorthand for New(Options{MaxChars: maxChars}).Split(text).
func Split(text string, maxChars int) []string {
	return New(Options{MaxChars: maxChars}).Split(text)
}

// Chunks returns the chunk texts with their 1-based positions.
func (c *Chunker) Chunks(text string) []Chunk {
	parts := c.Split(text)
	chunks := make([]Chunk, len(parts))
	for i, p := range parts {
		chunks[i] = Chunk{Index: i + 1, Text: p}
	}
	return chunks
}

// Split returns the ordered chunk texts for text.
func (c *Chunker) Split(text string) []string {
	var (
		chunks  []string
		current []string
		length  int
	)
	for _, sentence := range Sentences(text) {
		if c.opts.DropDegenerate && sentence == "." {
			continue
		}
		n := utf8.RuneCountInString(sentence)
		if length+n+1 <= c.opts.MaxChars {
			current = append(current, sentence)
			length += n + 1
			continue
		}
		if len(current) > 0 {
			chunks = append(chunks, strings.Join(current, " "))
		}
		current = []string{sentence}
		length = n
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}
	return chunks
}

// Sentences normalises newlines to spaces, splits on '.', trims each
// fragment and puts a single period back on it. Empty fragments become ".".
func Sentences(text string) []string {
	fragments := strings.Split(strings.ReplaceAll(text, "\n", " "), ".")
	sentences := make([]string, len(fragments))
	for i, f := range fragments {
		sentences[i] = strings.TrimSpace(f) + "."
	}
	return sentences
}
