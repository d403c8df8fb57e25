package money

import (
	"math"
	"testing"
	"time"
)

func TestInterest(t *testing.T) {
	tests := []struct {
		principal, rate, years, want float64
	}{
		{10000, 10, 1, 1000},
		{10000, 10, 0.5, 500},
		{5000, 12, 100.0 / 365.0, 164.38356164383562},
		{0, 10, 1, 0},
	}

	for _, tt := range tests {
		got := Interest(tt.principal, tt.rate, tt.years)
		if math.Abs(got-tt.want) > 1e-6 {
			t.Errorf("Interest(%v, %v, %v) = %v, want %v", tt.principal, tt.rate, tt.years, got, tt.want)
		}
	}
}

func TestRound(t *testing.T) {
	tests := map[float64]float64{
		102.74: 103,
		102.5:  103,
		102.49: 102,
		-2.5:   -3,
		0:      0,
	}
	for in, want := range tests {
		if got := Round(in); got != want {
			t.Errorf("Round(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestValid(t *testing.T) {
	if Valid(math.NaN()) || Valid(math.Inf(1)) {
		t.Error("NaN and Inf must be invalid")
	}
	if !Valid(12.5) {
		t.Error("12.5 must be valid")
	}
}

func TestAddDays(t *testing.T) {
	start := time.Date(2024, time.February, 27, 10, 0, 0, 0, time.UTC)
	got := AddDays(start, 3)
	want := time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("AddDays() = %v, want %v", got, want)
	}
}

func TestAddMonthsRollover(t *testing.T) {
	tests := []struct {
		name  string
		start time.Time
		n     int
		want  time.Time
	}{
		{
			name:  "jan 31 non-leap",
			start: time.Date(2023, time.January, 31, 0, 0, 0, 0, time.UTC),
			n:     1,
			want:  time.Date(2023, time.March, 3, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "jan 31 leap",
			start: time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC),
			n:     1,
			want:  time.Date(2024, time.March, 2, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "mid month",
			start: time.Date(2024, time.May, 15, 0, 0, 0, 0, time.UTC),
			n:     3,
			want:  time.Date(2024, time.August, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "year boundary",
			start: time.Date(2024, time.November, 30, 0, 0, 0, 0, time.UTC),
			n:     2,
			want:  time.Date(2025, time.January, 30, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AddMonths(tt.start, tt.n); !got.Equal(tt.want) {
				t.Errorf("AddMonths() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestArithmetic(t *testing.T) {
	if got := Add(0.1, 0.2); got != 0.3 {
		t.Errorf("Add(0.1, 0.2) = %v, want 0.3", got)
	}
	if got := Sub(10273.97, 103); got != 10170.97 {
		t.Errorf("Sub = %v, want 10170.97", got)
	}
	if got := Mul(102.7, 3); got != 308.1 {
		t.Errorf("Mul = %v, want 308.1", got)
	}
}
