package rag

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/Farx1/hrfaq-go/internal/corpus"
)

const (
	// DefaultChunkSize is the maximum chunk length in characters.
	DefaultChunkSize = 1000

	// DefaultChunkOverlap is the character overlap between consecutive
	// chunks of an oversized section.
	DefaultChunkOverlap = 100

	// minSectionLen filters out heading-only or near-empty sections.
	minSectionLen = 50
)

// Chunker splits corpus documents into indexable chunks. Documents are first
// split on level-2 headings, then oversized sections are length-bounded with
// a sliding overlap window.
type Chunker struct {
	// Size is the maximum chunk length in characters.
	Size int

	// Overlap is the character overlap between consecutive chunks.
	Overlap int
}

// NewChunker returns a Chunker with defaults applied. An overlap >= size is
// clamped to size/10 to guarantee forward progress.
func NewChunker(size, overlap int) *Chunker {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 10
	}
	return &Chunker{Size: size, Overlap: overlap}
}

// Split chunks one document. Chunk IDs depend only on the document ID and
// chunk position, so re-splitting the same document yields identical chunks.
func (c *Chunker) Split(doc corpus.Document) []Chunk {
	var chunks []Chunk
	offset := 0

	for _, section := range splitSections(doc.Text) {
		body := strings.TrimSpace(section)
		if len(body) < minSectionLen {
			continue
		}
		heading := sectionHeading(body, doc.Title)

		for _, piece := range c.bound(body) {
			chunks = append(chunks, Chunk{
				ID:         chunkID(doc.ID, offset),
				DocumentID: doc.ID,
				Title:      doc.Title,
				Section:    heading,
				Category:   doc.Category,
				Text:       piece,
				Offset:     offset,
			})
			offset++
		}
	}
	return chunks
}

// bound slices text into pieces of at most c.Size characters, with c.Overlap
// characters repeated between consecutive pieces.
func (c *Chunker) bound(text string) []string {
	if len(text) <= c.Size {
		return []string{text}
	}

	var pieces []string
	step := c.Size - c.Overlap
	for start := 0; start < len(text); start += step {
		end := start + c.Size
		if end > len(text) {
			end = len(text)
		}
		pieces = append(pieces, text[start:end])
		if end == len(text) {
			break
		}
	}
	return pieces
}

// splitSections splits markdown on level-2 heading boundaries, keeping the
// heading line with its section. The preamble before the first "## " (the
// document title and intro) is its own section.
func splitSections(text string) []string {
	lines := strings.Split(text, "\n")
	var sections []string
	var current []string

	flush := func() {
		if len(current) > 0 {
			sections = append(sections, strings.Join(current, "\n"))
			current = nil
		}
	}

	for _, line := range lines {
		if strings.HasPrefix(line, "## ") {
			flush()
		}
		current = append(current, line)
	}
	flush()
	return sections
}

// sectionHeading extracts the "## " heading of a section, falling back to
// the document title for the preamble section.
func sectionHeading(section, docTitle string) string {
	first := section
	if i := strings.IndexByte(section, '\n'); i >= 0 {
		first = section[:i]
	}
	first = strings.TrimSpace(first)
	if strings.HasPrefix(first, "## ") {
		return strings.TrimSpace(first[3:])
	}
	return docTitle
}

// chunkID derives a stable chunk identifier from the document ID and the
// chunk position within the document.
func chunkID(docID string, offset int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s#%d", docID, offset)))
	return fmt.Sprintf("%x", sum)[:16]
}
