package paging

import (
	"math"
	"net/http/httptest"
	"testing"
)

func TestParsePage(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  int
	}{
		{"missing", "", 1},
		{"valid", "?page=3", 3},
		{"zero", "?page=0", 1},
		{"negative", "?page=-2", 1},
		{"non-numeric", "?page=abc", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/items"+tt.query, nil)
			if got := ParsePage(r); got != tt.want {
				t.Errorf("ParsePage() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestParsePageSize(t *testing.T) {
	tests := []struct {
		name  string
		query string
		def   int
		want  int
	}{
		{"missing uses default", "", 0, DefaultPageSize},
		{"missing uses configured", "", 30, 30},
		{"non-numeric", "?pp=lots", 0, DefaultPageSize},
		{"zero", "?pp=0", 0, DefaultPageSize},
		{"valid", "?pp=7", 0, 7},
		{"no maximum", "?pp=5000", 0, 5000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/items"+tt.query, nil)
			if got := ParsePageSize(r, tt.def); got != tt.want {
				t.Errorf("ParsePageSize() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestOffset(t *testing.T) {
	tests := []struct {
		page, size int
		want       int64
	}{
		{1, 20, 0},
		{2, 20, 20},
		{5, 7, 28},
		{0, 20, 0},
		{3, 0, 0},
		{math.MaxInt, math.MaxInt, math.MaxInt64},
		{math.MaxInt / 2, 4, math.MaxInt64},
	}
	for _, tt := range tests {
		if got := Offset(tt.page, tt.size); got != tt.want {
			t.Errorf("Offset(%d, %d) = %d, want %d", tt.page, tt.size, got, tt.want)
		}
	}
}

func TestNewPage(t *testing.T) {
	p := NewPage(2, 20, 45)
	if p.Pages != 3 || !p.HasPrev || !p.HasNext {
		t.Errorf("NewPage(2,20,45) = %+v", p)
	}
	p = NewPage(3, 20, 45)
	if p.HasNext {
		t.Errorf("last page should not have next: %+v", p)
	}
	p = NewPage(1, math.MaxInt, 45)
	if p.Pages != 1 || p.HasNext {
		t.Errorf("huge page size: %+v", p)
	}
	p = NewPage(1, 20, 0)
	if p.Pages != 0 || p.HasPrev || p.HasNext {
		t.Errorf("empty list: %+v", p)
	}
}

func TestComputeRange(t *testing.T) {
	tests := []struct {
		name               string
		page, size, shown  int
		wantStart, wantEnd int64
	}{
		{"no results", 1, 20, 0, 0, 0},
		{"first page full", 1, 20, 20, 1, 20},
		{"second page partial", 2, 20, 5, 21, 25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeRange(tt.page, tt.size, tt.shown)
			if got.Start != tt.wantStart || got.End != tt.wantEnd {
				t.Errorf("ComputeRange() = %+v, want start=%d end=%d", got, tt.wantStart, tt.wantEnd)
			}
		})
	}
}
