package position

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestAdjust(t *testing.T) {
	tests := []struct {
		name     string
		quantity string
		step     string
		want     string
	}{
		{"floors to step precision", "0.12345678", "0.001", "0.123"},
		{"below step is zero", "0.0009", "0.001", "0"},
		{"exact multiple unchanged", "0.123", "0.001", "0.123"},
		{"integer step", "7.9", "1", "7"},
		{"coarse step", "123.456", "0.5", "123"},
		{"fine step", "0.00012345", "0.00001", "0.00012"},
		{"equal to step", "0.001", "0.001", "0.001"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Adjust(dec(tc.quantity), dec(tc.step))
			if !got.Equal(dec(tc.want)) {
				t.Errorf("Adjust(%s, %s) = %s, want %s", tc.quantity, tc.step, got, tc.want)
			}
		})
	}
}

func TestAdjust_Idempotent(t *testing.T) {
	cases := [][2]string{
		{"0.12345678", "0.001"},
		{"1234.5678", "0.5"},
		{"0.0009", "0.001"},
		{"99.99999", "0.00001"},
	}

	for _, c := range cases {
		q, step := dec(c[0]), dec(c[1])
		once := Adjust(q, step)
		twice := Adjust(once, step)
		if !once.Equal(twice) {
			t.Errorf("Adjust not idempotent for (%s, %s): %s != %s", q, step, once, twice)
		}
	}
}

func TestAdjust_NeverExceedsInput(t *testing.T) {
	cases := [][2]string{
		{"0.12345678", "0.001"},
		{"5.000001", "0.1"},
		{"0.999999", "1"},
	}

	for _, c := range cases {
		q, step := dec(c[0]), dec(c[1])
		got := Adjust(q, step)
		if got.GreaterThan(q) {
			t.Errorf("Adjust(%s, %s) = %s exceeds input", q, step, got)
		}
		if got.IsNegative() {
			t.Errorf("Adjust(%s, %s) = %s is negative", q, step, got)
		}
		// Result must be an exact multiple of step.
		if !got.Mod(step).IsZero() {
			t.Errorf("Adjust(%s, %s) = %s is not a multiple of step", q, step, got)
		}
	}
}

func TestAdjust_DegenerateInputs(t *testing.T) {
	if !Adjust(dec("1"), decimal.Zero).IsZero() {
		t.Error("zero step should adjust to zero")
	}
	if !Adjust(decimal.Zero, dec("0.001")).IsZero() {
		t.Error("zero quantity should adjust to zero")
	}
	if !Adjust(dec("-1"), dec("0.001")).IsZero() {
		t.Error("negative quantity should adjust to zero")
	}
}
