// Package position holds the value types of the scroll engine: offsets,
// persisted scroll records, and view keys.
//
// position interprets nothing. It does not know what a surface is or where
// records are stored; it only defines the shapes the other packages exchange
// and the arithmetic (sanitize, clamp) that keeps them safe to apply.
package position

import (
	"net/url"
	"sort"
	"strings"
	"time"
)

// Offset is a scroll position in device pixels, measured from the top-left
// of the surface's content.
type Offset struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Record is the persisted scroll state of one view. SavedAt is diagnostic
// only — it never drives eviction.
type Record struct {
	ViewKey string    `json:"view_key"`
	OffsetX int       `json:"offset_x"`
	OffsetY int       `json:"offset_y"`
	SavedAt time.Time `json:"saved_at"`
}

// Offset returns the record's offsets as an Offset value.
func (r Record) Offset() Offset {
	return Offset{X: r.OffsetX, Y: r.OffsetY}
}

// Key derives the canonical view key from a path and a raw query string.
// Two filter states of the same route are distinct views, so the query is
// part of the key. Parameters are sorted by name (values too, for repeated
// names) so that ?a=1&b=2 and ?b=2&a=1 produce the same key.
//
// An unparsable query is kept verbatim: a stable-but-ugly key beats a lossy
// one, since the only requirement is that identical logical views collide.
func Key(path, rawQuery string) string {
	if path == "" {
		path = "/"
	}
	if rawQuery == "" {
		return path
	}

	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return path + "?" + rawQuery
	}

	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(path)
	b.WriteByte('?')
	first := true
	for _, name := range names {
		vals := append([]string(nil), values[name]...)
		sort.Strings(vals)
		for _, v := range vals {
			if !first {
				b.WriteByte('&')
			}
			first = false
			b.WriteString(url.QueryEscape(name))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(v))
		}
	}
	return b.String()
}

// Sanitize maps invalid offsets (negative components from a corrupted
// record) to zero. Safe defaults, never an error.
func Sanitize(o Offset) Offset {
	if o.X < 0 {
		o.X = 0
	}
	if o.Y < 0 {
		o.Y = 0
	}
	return o
}

// Clamp bounds target.Y by the maximum scrollable extent. X passes through:
// horizontal overshoot is handled by the surface itself, vertical overshoot
// is the case that matters for late-growing content.
func Clamp(target Offset, maxY int) Offset {
	if maxY < 0 {
		maxY = 0
	}
	if target.Y > maxY {
		target.Y = maxY
	}
	return target
}
