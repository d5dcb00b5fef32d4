package layout

import (
	"math"
	"testing"
)

// TestPtMmRoundTrip 验证 pt↔mm 换算的往返精度（允许极小的浮点误差）。
func TestPtMmRoundTrip(t *testing.T) {
	for _, pt := range []float64{0, 0.001, 5.75, 6.5, 7.5, 72} {
		back := pt * PtToMm * MmToPt
		if diff := math.Abs(back - pt); diff > 1e-9 {
			t.Fatalf("pt→mm→pt 往返误差过大: in=%gpt back=%g diff=%g", pt, back, diff)
		}
	}
}

func TestParseLength(t *testing.T) {
	cases := []struct {
		in       string
		fallback Unit
		mm       float64
	}{
		{"3mm", UnitPT, 3},
		{"1in", UnitPT, 25.4},
		{"72pt", UnitMM, 72 * PtToMm},
		{" 8 ", UnitMM, 8},
		{"7.5", UnitPT, 7.5 * PtToMm},
		{"2.5MM", UnitPT, 2.5},
	}
	for _, tc := range cases {
		l, err := ParseLength(tc.in, tc.fallback)
		if err != nil {
			t.Fatalf("%q: unexpected error %v", tc.in, err)
		}
		if got := l.To(UnitMM); math.Abs(got-tc.mm) > 1e-9 {
			t.Fatalf("%q: got %gmm want %gmm", tc.in, got, tc.mm)
		}
	}
	for _, bad := range []string{"wide", "", "-1pt"} {
		if _, err := ParseLength(bad, UnitMM); err == nil {
			t.Fatalf("%q: expected error", bad)
		}
	}
}

func TestParseBodySizes(t *testing.T) {
	sizes, err := ParseBodySizes([]string{"7.5pt", "6.5", "2mm"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sizes) != 3 || sizes[0] != 7.5 || sizes[1] != 6.5 {
		t.Fatalf("unexpected sizes: %v", sizes)
	}
	if math.Abs(sizes[2]-2*MmToPt) > 1e-9 {
		t.Fatalf("2mm 应换算为 %gpt，实际 %g", 2*MmToPt, sizes[2])
	}
	if _, err := ParseBodySizes([]string{"6pt", "7pt"}); err == nil {
		t.Fatalf("非递减档位应返回错误")
	}
	if _, err := ParseBodySizes([]string{"0pt"}); err == nil {
		t.Fatalf("零字号应返回错误")
	}
}
