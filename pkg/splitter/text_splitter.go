package splitter

import (
	"github.com/tmc/langchaingo/textsplitter"
)

// TextSplitter chunks source content before embedding it into the archive.
type TextSplitter struct {
	splitter textsplitter.TextSplitter
}

// NewRecursiveCharacterTextSplitter creates a splitter that prefers
// paragraph and sentence boundaries.
func NewRecursiveCharacterTextSplitter(chunkSize, chunkOverlap int) *TextSplitter {
	ts := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(chunkSize),
		textsplitter.WithChunkOverlap(chunkOverlap),
	)
	return &TextSplitter{splitter: ts}
}

// SplitText splits text into chunks.
func (ts *TextSplitter) SplitText(text string) ([]string, error) {
	return ts.splitter.SplitText(text)
}
