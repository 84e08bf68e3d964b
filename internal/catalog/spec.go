// Package catalog defines the parameterized query specification for the
// public video listing: filter, text match, sort, and pagination.
package catalog

import (
	"strings"

	"github.com/google/uuid"
)

const (
	// DefaultLimit is the page size applied when the caller supplies none.
	DefaultLimit = 10
	// MaxLimit caps the page size regardless of what the caller asks for.
	MaxLimit = 100
)

// SortField enumerates the columns the catalog may be ordered by. Anything
// outside this set falls back to SortByCreatedAt rather than erroring.
type SortField int

const (
	SortByCreatedAt SortField = iota
	SortByViews
	SortByDuration
	SortByTitle
)

// ParseSortField maps the wire-level sort name onto the enumeration. The
// second return reports whether the input was recognised; unknown or empty
// input yields the default field.
func ParseSortField(s string) (SortField, bool) {
	s = strings.TrimSpace(s)
	switch s {
	case "", "createdAt":
		return SortByCreatedAt, s != ""
	case "views":
		return SortByViews, true
	case "duration":
		return SortByDuration, true
	case "title":
		return SortByTitle, true
	default:
		return SortByCreatedAt, false
	}
}

// Column returns the videos-table column backing the sort field.
func (f SortField) Column() string {
	switch f {
	case SortByViews:
		return "views"
	case SortByDuration:
		return "duration"
	case SortByTitle:
		return "title"
	default:
		return "created_at"
	}
}

// Direction is the sort direction. Descending is the default.
type Direction int

const (
	Descending Direction = iota
	Ascending
)

// ParseDirection accepts the wire forms "asc"/"1" and "desc"/"-1".
func ParseDirection(s string) Direction {
	switch strings.TrimSpace(s) {
	case "asc", "1":
		return Ascending
	default:
		return Descending
	}
}

// SQL returns the ORDER BY keyword for the direction.
func (d Direction) SQL() string {
	if d == Ascending {
		return "ASC"
	}
	return "DESC"
}

// QuerySpec captures one catalog request. Construct it from raw request
// values and call Normalize before executing.
type QuerySpec struct {
	Page      int
	Limit     int
	Query     string
	OwnerID   string
	Sort      SortField
	Direction Direction
}

// Normalize applies defaults and bounds: page at least 1, limit defaulted and
// capped, free-text trimmed, and the owner filter dropped entirely unless it
// parses as a UUID. A garbage owner id must mean "no owner constraint", never
// a filter that accidentally matches nothing or everything.
func (s QuerySpec) Normalize() QuerySpec {
	if s.Page < 1 {
		s.Page = 1
	}
	if s.Limit <= 0 {
		s.Limit = DefaultLimit
	}
	if s.Limit > MaxLimit {
		s.Limit = MaxLimit
	}

	s.Query = strings.TrimSpace(s.Query)

	s.OwnerID = strings.TrimSpace(s.OwnerID)
	if s.OwnerID != "" {
		if _, err := uuid.Parse(s.OwnerID); err != nil {
			s.OwnerID = ""
		}
	}

	return s
}

// Offset returns the number of rows to skip, computed after filtering and
// sorting, never before.
func (s QuerySpec) Offset() int {
	return (s.Page - 1) * s.Limit
}

// TotalPages derives the page count from a total computed over the same
// filter predicate as the result set.
func (s QuerySpec) TotalPages(totalDocs int64) int64 {
	if totalDocs <= 0 {
		return 0
	}
	return (totalDocs + int64(s.Limit) - 1) / int64(s.Limit)
}
