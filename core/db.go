package core

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// Page is a 1-based page request; zero values mean "everything".
type Page struct {
	Number int `query:"page"`
	Size   int `query:"page_size"`
}

const maxPageSize = 200

// Clean bounds the page to sane values.
func (p *Page) Clean() {
	if p.Size < 0 {
		p.Size = 0
	}
	if p.Size > maxPageSize {
		p.Size = maxPageSize
	}
	if p.Number < 1 {
		p.Number = 1
	}
}

// Limit returns the SQL limit, 0 when unpaginated.
func (p Page) Limit() uint64 { return uint64(p.Size) }

// Offset returns the SQL offset.
func (p Page) Offset() uint64 {
	if p.Size == 0 || p.Number <= 1 {
		return 0
	}
	return uint64((p.Number - 1) * p.Size)
}

// Slice applies the page to an in-memory result of length n, returning [start, end).
func (p Page) Slice(n int) (int, int) {
	if p.Size == 0 {
		return 0, n
	}
	start := int(p.Offset())
	if start > n {
		start = n
	}
	end := start + p.Size
	if end > n {
		end = n
	}
	return start, end
}
