package raster

import "fmt"

// bayerMatrix returns an n×n Bayer matrix already converted to black
// thresholds on the 0–255 scale: cell m becomes (2m+1)·255 / (2n²), so a
// pure 0 sample is always black and a pure 255 sample always white.
func bayerMatrix(n int) ([][]float64, error) {
	if n == 0 {
		n = DefaultMatrixSize
	}
	if n != 4 && n != 8 {
		return nil, fmt.Errorf("raster: dither matrix size must be 4 or 8, got %d", n)
	}
	index := bayerIndex(n)
	cells := float64(n * n)
	out := make([][]float64, n)
	for y := range index {
		out[y] = make([]float64, n)
		for x, m := range index[y] {
			out[y][x] = float64(2*m+1) * 255 / (2 * cells)
		}
	}
	return out, nil
}

// bayerIndex builds the classic recursive index matrix:
// M(2n) = [[4M, 4M+2], [4M+3, 4M+1]].
func bayerIndex(n int) [][]int {
	m := [][]int{{0}}
	for size := 1; size < n; size *= 2 {
		next := make([][]int, size*2)
		for i := range next {
			next[i] = make([]int, size*2)
		}
		for y := 0; y < size; y++ {
			for x := 0; x < size; x++ {
				v := 4 * m[y][x]
				next[y][x] = v
				next[y][x+size] = v + 2
				next[y+size][x] = v + 3
				next[y+size][x+size] = v + 1
			}
		}
		m = next
	}
	return m
}
