package statement

import (
	"fmt"
	"io"
	"os"

	"github.com/Veraticus/spice-statements/internal/common"
	"github.com/dslipak/pdf"
)

// PDFSource reads positioned text from a PDF document.
type PDFSource struct {
	reader *pdf.Reader
	closer io.Closer
	name   string
}

// OpenPDF opens a PDF file as a PageSource. The caller must Close it.
func OpenPDF(path string) (*PDFSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &common.ParseError{Source: path, Err: err}
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, &common.ParseError{Source: path, Err: err}
	}

	src, err := NewPDFSource(f, info.Size(), path)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	src.closer = f

	return src, nil
}

// NewPDFSource reads a PDF from r. The name is only used in errors.
func NewPDFSource(r io.ReaderAt, size int64, name string) (src *PDFSource, err error) {
	// The PDF reader panics on some malformed cross-reference tables.
	defer func() {
		if rec := recover(); rec != nil {
			src, err = nil, &common.ParseError{Source: name, Err: fmt.Errorf("malformed pdf: %v", rec)}
		}
	}()

	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return nil, &common.ParseError{Source: name, Err: err}
	}

	return &PDFSource{reader: reader, name: name}, nil
}

// NumPages implements PageSource.
func (s *PDFSource) NumPages() int {
	return s.reader.NumPage()
}

// Page implements PageSource. PDF pages are numbered from one.
func (s *PDFSource) Page(index int) (page Page, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("decode page content: %v", rec)
		}
	}()

	p := s.reader.Page(index + 1)
	if p.V.IsNull() {
		return Page{}, fmt.Errorf("page %d not found", index+1)
	}

	content := p.Content()
	fragments := make([]Fragment, 0, len(content.Text))
	for _, t := range content.Text {
		fragments = append(fragments, Fragment{
			S:        t.S,
			X:        t.X,
			Y:        t.Y,
			W:        t.W,
			FontSize: t.FontSize,
		})
	}

	return Page{Fragments: fragments, Width: mediaBoxWidth(p.V)}, nil
}

// Close releases the underlying file, if any.
func (s *PDFSource) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// mediaBoxWidth reads the page width, following inherited MediaBox entries.
// Zero means unknown and the caller falls back to the content extent.
func mediaBoxWidth(v pdf.Value) float64 {
	for depth := 0; depth < 32 && !v.IsNull(); depth++ {
		box := v.Key("MediaBox")
		if box.Len() == 4 {
			return box.Index(2).Float64() - box.Index(0).Float64()
		}
		v = v.Key("Parent")
	}
	return 0
}
