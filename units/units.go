package units

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// This file defines unit-safe lengths and the single mm→px mapping shared by
// text and image sections.

// Unit is the unit a length was written in.
type Unit int

const (
	UnitNone Unit = iota // unit-less numbers
	UnitMM               // millimeters
	UnitCM               // centimeters
	UnitIN               // inches
	UnitPT               // points
	UnitPX               // printer dots
)

// Conversion constants between pt and mm.
const (
	PtToMm = 0.352777
	MmToPt = 1.0 / PtToMm
)

// DefaultMmToPx 是默认的每毫米像素数（96 DPI，与编辑器预览一致）。
const DefaultMmToPx = 3.78

// UnitToString returns a short string for a Unit value.
func UnitToString(u Unit) string {
	switch u {
	case UnitMM:
		return "mm"
	case UnitCM:
		return "cm"
	case UnitIN:
		return "in"
	case UnitPT:
		return "pt"
	case UnitPX:
		return "px"
	default:
		return ""
	}
}

// Length preserves a numeric value with its unit.
type Length struct {
	Value float64 `json:"value"`
	Unit  Unit    `json:"unit"`
}

func (l Length) IsZero() bool { return l.Value == 0 }

// ToMM converts to millimeters. Pixel lengths need the device factor and are
// rejected here; UnitNone is taken as millimeters.
func (l Length) ToMM() (float64, error) {
	switch l.Unit {
	case UnitMM, UnitNone:
		return l.Value, nil
	case UnitCM:
		return l.Value * 10, nil
	case UnitIN:
		return l.Value * 25.4, nil
	case UnitPT:
		return l.Value * PtToMm, nil
	}
	return 0, fmt.Errorf("units: cannot convert %s to mm without a device factor", UnitToString(l.Unit))
}

// ToPT converts to points; UnitNone is taken as points.
func (l Length) ToPT() (float64, error) {
	if l.Unit == UnitNone || l.Unit == UnitPT {
		return l.Value, nil
	}
	mm, err := l.ToMM()
	if err != nil {
		return 0, err
	}
	return mm * MmToPt, nil
}

// ParseLength parses strings like "58mm", "14pt", "2in" or "12".
func ParseLength(value string) (Length, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return Length{}, fmt.Errorf("units: empty length")
	}
	unit := UnitNone
	num := v
	for _, suf := range []struct {
		s string
		u Unit
	}{{"mm", UnitMM}, {"cm", UnitCM}, {"in", UnitIN}, {"pt", UnitPT}, {"px", UnitPX}} {
		if strings.HasSuffix(v, suf.s) {
			unit = suf.u
			num = strings.TrimSpace(strings.TrimSuffix(v, suf.s))
			break
		}
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return Length{}, fmt.Errorf("units: invalid length %q", value)
	}
	return Length{Value: f, Unit: unit}, nil
}

// Device maps physical lengths to printer dots.
type Device struct {
	MmToPx float64
}

// NewDevice returns a Device, falling back to DefaultMmToPx for non-positive factors.
func NewDevice(mmToPx float64) Device {
	if mmToPx <= 0 || math.IsNaN(mmToPx) || math.IsInf(mmToPx, 0) {
		mmToPx = DefaultMmToPx
	}
	return Device{MmToPx: mmToPx}
}

// MmToPxRound converts millimeters to whole pixels.
func (d Device) MmToPxRound(mm float64) int {
	return int(math.Round(mm * d.MmToPx))
}

// PtToPx converts points to fractional pixels.
func (d Device) PtToPx(pt float64) float64 {
	return pt * PtToMm * d.MmToPx
}

// PxToMm converts pixels back to millimeters.
func (d Device) PxToMm(px float64) float64 {
	return px / d.MmToPx
}

// LineHeightPx 返回字号对应的行高：fontSizePt × 1.2，按设备换算后取整。
func (d Device) LineHeightPx(fontSizePt float64) int {
	return int(math.Round(d.PtToPx(fontSizePt * 1.2)))
}
