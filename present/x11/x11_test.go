package x11

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestBands(t *testing.T) {
	tests := []struct {
		name      string
		w, h, max int
		want      []band
	}{
		{"one band", 4, 3, 1024, []band{{0, 3}}},
		{"split", 16, 5, putImageHeader + 2*4*16, []band{{0, 2}, {2, 2}, {4, 1}}},
		{"row too wide", 1000, 2, 256, []band{{0, 1}, {1, 1}}},
		{"empty", 8, 0, 1024, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := bands(tt.w, tt.h, tt.max)
			if diff := cmp.Diff(tt.want, got, cmp.AllowUnexported(band{})); diff != "" {
				t.Fatalf("bands differ: %s", diff)
			}
		})
	}
}

func TestCheckSize(t *testing.T) {
	tests := []struct {
		name      string
		w, h, max int
		ok        bool
	}{
		{"fits", 640, 480, 1 << 18, true},
		{"widest row", 64, 1, putImageHeader + 4*64, true},
		{"row too wide", 65, 1, putImageHeader + 4*64, false},
		{"wider than int16", 70000, 10, 1 << 30, false},
		{"taller than int16", 10, maxSize + 1, 1 << 30, false},
		{"empty", 0, 10, 1 << 18, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkSize(tt.w, tt.h, tt.max)
			if ok := err == nil; ok != tt.ok {
				t.Fatalf("checkSize(%d, %d, %d) = %v, want ok %v", tt.w, tt.h, tt.max, err, tt.ok)
			}
		})
	}
}
