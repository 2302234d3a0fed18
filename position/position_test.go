package position

import (
	"testing"
	"time"
)

func TestKey(t *testing.T) {
	tests := []struct {
		name  string
		path  string
		query string
		want  string
	}{
		{"no query", "/catalog", "", "/catalog"},
		{"empty path defaults to root", "", "", "/"},
		{"single param", "/catalog", "category=shoes", "/catalog?category=shoes"},
		{"params sorted by name", "/catalog", "b=2&a=1", "/catalog?a=1&b=2"},
		{"repeated name sorted by value", "/catalog", "tag=2&tag=1", "/catalog?tag=1&tag=2"},
		{"unparsable query kept verbatim", "/catalog", "a=%zz", "/catalog?a=%zz"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Key(tt.path, tt.query); got != tt.want {
				t.Errorf("Key(%q, %q) = %q, want %q", tt.path, tt.query, got, tt.want)
			}
		})
	}
}

func TestKey_ParamOrderIrrelevant(t *testing.T) {
	a := Key("/catalog", "category=shoes&sort=price")
	b := Key("/catalog", "sort=price&category=shoes")
	if a != b {
		t.Errorf("keys differ for same logical view: %q vs %q", a, b)
	}
}

func TestKey_DistinctFiltersDistinctViews(t *testing.T) {
	a := Key("/catalog", "category=shoes")
	b := Key("/catalog", "category=hats")
	if a == b {
		t.Errorf("distinct filter states collided on %q", a)
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   Offset
		want Offset
	}{
		{"valid passes through", Offset{X: 3, Y: 2400}, Offset{X: 3, Y: 2400}},
		{"negative y zeroed", Offset{X: 0, Y: -5}, Offset{X: 0, Y: 0}},
		{"negative x zeroed", Offset{X: -1, Y: 10}, Offset{X: 0, Y: 10}},
		{"both negative", Offset{X: -7, Y: -7}, Offset{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sanitize(tt.in); got != tt.want {
				t.Errorf("Sanitize(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		name   string
		target Offset
		maxY   int
		want   Offset
	}{
		{"within bounds", Offset{X: 0, Y: 1000}, 2400, Offset{X: 0, Y: 1000}},
		{"overshoot clamped", Offset{X: 0, Y: 5000}, 1200, Offset{X: 0, Y: 1200}},
		{"exact max", Offset{X: 0, Y: 1200}, 1200, Offset{X: 0, Y: 1200}},
		{"negative max treated as zero", Offset{X: 2, Y: 10}, -4, Offset{X: 2, Y: 0}},
		{"x untouched", Offset{X: 999, Y: 5000}, 100, Offset{X: 999, Y: 100}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clamp(tt.target, tt.maxY); got != tt.want {
				t.Errorf("Clamp(%v, %d) = %v, want %v", tt.target, tt.maxY, got, tt.want)
			}
		})
	}
}

func TestRecordOffset(t *testing.T) {
	rec := Record{ViewKey: "/v", OffsetX: 3, OffsetY: 9, SavedAt: time.Now()}
	if got := rec.Offset(); got != (Offset{X: 3, Y: 9}) {
		t.Errorf("Offset() = %v", got)
	}
}
