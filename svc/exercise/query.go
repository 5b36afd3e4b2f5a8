package exercise

import (
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

type SortColumn string

const (
	SortByDate   SortColumn = "date"
	SortByName   SortColumn = "exercise_name"
	SortByWeight SortColumn = "weight"
)

type SortOrder string

const (
	OrderAsc  SortOrder = "asc"
	OrderDesc SortOrder = "desc"
)

// TypeAll disables the type filter.
const TypeAll Type = "all"

// Query is the list page's search, filter and sort state. It is bound from
// the page's Datastar signals.
type Query struct {
	Search string     `query:"search" json:"search"`
	Type   Type       `query:"type" json:"type"`
	SortBy SortColumn `query:"sort_by" json:"sort_by"`
	Order  SortOrder  `query:"order" json:"order"`
}

// DefaultQuery shows everything, newest first.
func DefaultQuery() Query {
	return Query{Type: TypeAll, SortBy: SortByDate, Order: OrderDesc}
}

// Normalize replaces unknown values with defaults.
func (q Query) Normalize() Query {
	d := DefaultQuery()
	q.Search = strings.TrimSpace(q.Search)
	if q.Type != TypeMachine && q.Type != TypeFree {
		q.Type = d.Type
	}
	switch q.SortBy {
	case SortByDate, SortByName, SortByWeight:
	default:
		q.SortBy = d.SortBy
	}
	if q.Order != OrderAsc {
		q.Order = OrderDesc
	}
	return q
}

// ToggleSort flips the order when column is already the sort column and
// otherwise switches to column, descending.
func (q Query) ToggleSort(column SortColumn) Query {
	if q.SortBy == column {
		if q.Order == OrderAsc {
			q.Order = OrderDesc
		} else {
			q.Order = OrderAsc
		}
		return q
	}
	q.SortBy = column
	q.Order = OrderDesc
	return q
}

// Indicator is the arrow shown next to a sortable column header.
func (q Query) Indicator(column SortColumn) string {
	if q.SortBy != column {
		return ""
	}
	if q.Order == OrderAsc {
		return "↑"
	}
	return "↓"
}

// Apply returns the matching exercises in display order. The input is not
// modified and ties keep their input order.
func (q Query) Apply(list []Exercise) []Exercise {
	q = q.Normalize()
	needle := strings.ToLower(q.Search)

	out := make([]Exercise, 0, len(list))
	for _, e := range list {
		if needle != "" && !strings.Contains(strings.ToLower(e.Name), needle) {
			continue
		}
		if q.Type != TypeAll && e.Type != q.Type {
			continue
		}
		out = append(out, e)
	}

	var cmp func(a, b Exercise) int
	switch q.SortBy {
	case SortByName:
		// Collators keep scratch buffers; one per call.
		col := collate.New(language.Und, collate.IgnoreCase)
		cmp = func(a, b Exercise) int { return col.CompareString(a.Name, b.Name) }
	case SortByWeight:
		cmp = func(a, b Exercise) int { return compareFloat(a.Weight, b.Weight) }
	default:
		cmp = func(a, b Exercise) int { return a.Date.Compare(b.Date) }
	}
	if q.Order == OrderDesc {
		asc := cmp
		cmp = func(a, b Exercise) int { return -asc(a, b) }
	}
	slices.SortStableFunc(out, cmp)
	return out
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
