package statement

// Fragment is a piece of text positioned on a page. Coordinates follow PDF
// conventions: X grows rightward, Y grows upward from the bottom edge.
type Fragment struct {
	S        string
	X        float64
	Y        float64
	W        float64
	FontSize float64
}

// Page is one page of a paginated document.
type Page struct {
	Fragments []Fragment
	Width     float64
}

// PageSource yields the pages of a paginated document.
type PageSource interface {
	NumPages() int
	// Page returns the page at a zero-based index.
	Page(index int) (Page, error)
}

// Pages is an in-memory PageSource.
type Pages []Page

// NumPages implements PageSource.
func (p Pages) NumPages() int {
	return len(p)
}

// Page implements PageSource.
func (p Pages) Page(index int) (Page, error) {
	return p[index], nil
}
