package units

import (
	"math"
	"testing"
)

// TestPtMmRoundTrip 验证 pt↔mm 换算的往返精度（允许极小的浮点误差）。
func TestPtMmRoundTrip(t *testing.T) {
	samples := []float64{0, 0.001, 1, 12, 14.4, 72, 96, 144, 1000}
	for _, pt := range samples {
		mm := pt * PtToMm
		back := mm * MmToPt
		if diff := math.Abs(back - pt); diff > 1e-9 {
			t.Fatalf("pt→mm→pt 往返误差过大: in=%gpt mm=%g back=%g diff=%g", pt, mm, back, diff)
		}
	}
}

// TestParseLength 覆盖常见单位与非法输入。
func TestParseLength(t *testing.T) {
	cases := []struct {
		in     string
		wantMM float64
	}{
		{"58mm", 58},
		{"5.8cm", 58},
		{"1in", 25.4},
		{"72pt", 72 * PtToMm},
		{" 40 ", 40},
	}
	for _, tc := range cases {
		l, err := ParseLength(tc.in)
		if err != nil {
			t.Fatalf("ParseLength(%q): %v", tc.in, err)
		}
		mm, err := l.ToMM()
		if err != nil {
			t.Fatalf("ToMM(%q): %v", tc.in, err)
		}
		if math.Abs(mm-tc.wantMM) > 1e-9 {
			t.Fatalf("ParseLength(%q) = %gmm, want %g", tc.in, mm, tc.wantMM)
		}
	}
	if _, err := ParseLength("abc"); err == nil {
		t.Fatalf("expected error for abc")
	}
	l, err := ParseLength("12px")
	if err != nil {
		t.Fatalf("ParseLength(12px): %v", err)
	}
	if _, err := l.ToMM(); err == nil {
		t.Fatalf("px should not convert to mm without a device")
	}
}

func TestDeviceConversions(t *testing.T) {
	d := NewDevice(3.78)
	if got := d.MmToPxRound(58); got != 219 {
		t.Fatalf("58mm = %dpx, want 219", got)
	}
	if got := d.MmToPxRound(40); got != 151 {
		t.Fatalf("40mm = %dpx, want 151", got)
	}
	// 14pt × 1.2 × 0.352777 × 3.78 ≈ 22.40
	if got := d.LineHeightPx(14); got != 22 {
		t.Fatalf("line height for 14pt = %d, want 22", got)
	}
	if NewDevice(0).MmToPx != DefaultMmToPx {
		t.Fatalf("zero factor should fall back to default")
	}
	if got := d.PxToMm(d.MmToPx * 10); math.Abs(got-10) > 1e-9 {
		t.Fatalf("PxToMm round trip = %g", got)
	}
}
