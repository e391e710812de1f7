// Package extract turns documents into plain text for narration.
package extract

import (
	"context"
	"errors"
)

var (
	// ErrOpen means the document could not be opened or its structure parsed.
	ErrOpen = errors.New("open document")
	// ErrRead means a page could not be converted to text.
	ErrRead = errors.New("read document text")
)

// Extractor produces the full text of a document.
type Extractor interface {
	ExtractText(ctx context.Context, path string) (string, error)
}

// Func adapts a plain function to Extractor.
type Func func(ctx context.Context, path string) (string, error)

func (f Func) ExtractText(ctx context.Context, path string) (string, error) {
	return f(ctx, path)
}
