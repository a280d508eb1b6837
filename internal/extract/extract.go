// Package extract reads positioned text out of fixed rectangles of a PDF.
package extract

import (
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
	"golang.org/x/text/unicode/norm"

	"ewroster/internal/config"
	appLog "ewroster/internal/log"
)

// defaultPageHeight is A4 in points, used when a page has no MediaBox.
const defaultPageHeight = 842.0

// ErrPage is returned when a page cannot be decoded.
var ErrPage = errors.New("extract: unreadable page")

// Glyph is a piece of text with its baseline position in top-left page
// coordinates.
type Glyph struct {
	X, Y     float64
	W        float64
	FontSize float64
	S        string
}

// Page holds the glyphs of one page.
type Page struct {
	Glyphs []Glyph
}

// Document is an open PDF. Decoded pages are cached.
type Document struct {
	f     *os.File
	r     *pdf.Reader
	pages map[int]*Page
}

// Open opens the PDF at path.
func Open(path string) (*Document, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("extract: open %s: %w", path, err)
	}
	appLog.Debug("pdf opened", "path", path, "pages", r.NumPage())
	return &Document{f: f, r: r, pages: make(map[int]*Page)}, nil
}

func (d *Document) Close() error {
	return d.f.Close()
}

func (d *Document) NumPages() int {
	return d.r.NumPage()
}

// RegionText returns the text inside r on page i (0-based), one visual
// line per text line, top to bottom.
func (d *Document) RegionText(i int, r config.Rect) (string, error) {
	p, err := d.Page(i)
	if err != nil {
		return "", err
	}
	return p.Region(r), nil
}

// Page decodes page i (0-based).
func (d *Document) Page(i int) (p *Page, err error) {
	if p, ok := d.pages[i]; ok {
		return p, nil
	}
	if i < 0 || i >= d.r.NumPage() {
		return nil, fmt.Errorf("%w: page %d out of range", ErrPage, i+1)
	}

	pg := d.r.Page(i + 1)
	if pg.V.IsNull() {
		return nil, fmt.Errorf("%w: page %d missing", ErrPage, i+1)
	}

	// The content stream decoder panics on malformed input.
	defer func() {
		if rec := recover(); rec != nil {
			p, err = nil, fmt.Errorf("%w: page %d: %v", ErrPage, i+1, rec)
		}
	}()

	height := pageHeight(pg)
	texts := pg.Content().Text
	p = &Page{Glyphs: make([]Glyph, 0, len(texts))}
	for _, t := range texts {
		p.Glyphs = append(p.Glyphs, Glyph{
			X:        t.X,
			Y:        height - t.Y,
			W:        t.W,
			FontSize: t.FontSize,
			S:        t.S,
		})
	}
	d.pages[i] = p
	return p, nil
}

// pageHeight reads the MediaBox, following inherited values up the page tree.
func pageHeight(pg pdf.Page) float64 {
	for v := pg.V; !v.IsNull(); v = v.Key("Parent") {
		box := v.Key("MediaBox")
		if box.Len() != 4 {
			continue
		}
		if h := box.Index(3).Float64() - box.Index(1).Float64(); h > 0 {
			return h
		}
	}
	return defaultPageHeight
}

// Region assembles the glyphs whose origin lies in r into lines. Glyphs on
// roughly the same baseline form a line; a horizontal gap wider than a
// fraction of the font size becomes a space.
func (p *Page) Region(r config.Rect) string {
	var in []Glyph
	for _, g := range p.Glyphs {
		if r.Contains(g.X, g.Y) {
			in = append(in, g)
		}
	}
	if len(in) == 0 {
		return ""
	}

	sort.SliceStable(in, func(a, b int) bool { return in[a].Y < in[b].Y })

	var lines [][]Glyph
	for _, g := range in {
		n := len(lines)
		if n > 0 && sameLine(lines[n-1][0], g) {
			lines[n-1] = append(lines[n-1], g)
			continue
		}
		lines = append(lines, []Glyph{g})
	}

	var out strings.Builder
	for _, line := range lines {
		sort.SliceStable(line, func(a, b int) bool { return line[a].X < line[b].X })

		var sb strings.Builder
		prevEnd := math.Inf(-1)
		for _, g := range line {
			if !math.IsInf(prevEnd, -1) && g.X-prevEnd > spaceGap(g) {
				sb.WriteByte(' ')
			}
			sb.WriteString(g.S)
			prevEnd = g.X + g.W
		}
		// Fonts may carry explicit space glyphs as well; keep single spaces.
		text := norm.NFKC.String(sb.String())
		out.WriteString(strings.Join(strings.Fields(text), " "))
		out.WriteByte('\n')
	}

	return out.String()
}

func sameLine(a, b Glyph) bool {
	tol := math.Max(a.FontSize, b.FontSize) / 2
	if tol <= 0 {
		tol = 2
	}
	return math.Abs(a.Y-b.Y) <= tol
}

func spaceGap(g Glyph) float64 {
	if g.FontSize > 0 {
		return g.FontSize * 0.25
	}
	return 1.5
}
