package host

import (
	"testing"
)

func TestRectOutset(t *testing.T) {
	tests := []struct {
		name   string
		rect   Rect
		amount float64
		want   Rect
	}{
		{
			name:   "grows on every edge",
			rect:   Rect{X: 10, Y: 10, Width: 100, Height: 50},
			amount: 2,
			want:   Rect{X: 8, Y: 8, Width: 104, Height: 54},
		},
		{
			name:   "zero is identity",
			rect:   Rect{X: 1, Y: 2, Width: 3, Height: 4},
			amount: 0,
			want:   Rect{X: 1, Y: 2, Width: 3, Height: 4},
		},
		{
			name:   "negative insets",
			rect:   Rect{Width: 10, Height: 10},
			amount: -1,
			want:   Rect{X: 1, Y: 1, Width: 8, Height: 8},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rect.Outset(tt.amount); got != tt.want {
				t.Errorf("Outset(%v) = %v, want %v", tt.amount, got, tt.want)
			}
		})
	}
}

func TestRectEmpty(t *testing.T) {
	if !(Rect{}).Empty() {
		t.Error("zero rect should be empty")
	}
	if !(Rect{Width: 10}).Empty() {
		t.Error("zero-height rect should be empty")
	}
	if (Rect{Width: 1, Height: 1}).Empty() {
		t.Error("1x1 rect should not be empty")
	}
}

func TestPaintTransparent(t *testing.T) {
	if !Clear.Transparent() {
		t.Error("Clear should be transparent")
	}
	if (Paint{R: 255, G: 255, B: 255, A: 255}).Transparent() {
		t.Error("opaque white should not be transparent")
	}
	if !(Paint{R: 255, G: 255, B: 255, A: 0}).Transparent() {
		t.Error("zero alpha should be transparent regardless of color")
	}
}
