package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDF extracts text page by page, ending each page with a newline.
type PDF struct {
	// MaxPages limits extraction to the first pages; zero reads all of them.
	MaxPages int
	Logger   *slog.Logger
}

func NewPDF(maxPages int, log *slog.Logger) *PDF {
	if log == nil {
		log = slog.Default()
	}
	return &PDF{MaxPages: maxPages, Logger: log.With(slog.String("component", "pdf-extractor"))}
}

func (p *PDF) ExtractText(ctx context.Context, path string) (text string, err error) {
	// The parser panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("%w %s: %v", ErrOpen, path, r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w %s: %w", ErrOpen, path, err)
	}
	defer f.Close()

	pages := r.NumPage()
	if p.MaxPages > 0 && pages > p.MaxPages {
		pages = p.MaxPages
	}

	var b strings.Builder
	fonts := make(map[string]*pdf.Font)
	for i := 1; i <= pages; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page := r.Page(i)
		if page.V.IsNull() {
			b.WriteString("\n")
			continue
		}
		for _, name := range page.Fonts() {
			if _, ok := fonts[name]; !ok {
				font := page.Font(name)
				fonts[name] = &font
			}
		}
		content, err := page.GetPlainText(fonts)
		if err != nil {
			return "", fmt.Errorf("%w page %d of %s: %w", ErrRead, i, path, err)
		}
		b.WriteString(content)
		b.WriteString("\n")
	}

	if p.Logger != nil {
		p.Logger.Debug("pdf extracted",
			slog.String("path", path),
			slog.Int("pages", pages),
			slog.Int("chars", b.Len()))
	}
	return b.String(), nil
}
