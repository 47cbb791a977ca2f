package ahp

import (
	"fmt"
	"math"
)

const (
	// ScaleMin and ScaleMax bound a single judgment on the Saaty 1–9
	// reciprocal scale. 1/9 means "j extremely dominates i".
	ScaleMin = 1.0 / 9.0
	ScaleMax = 9.0

	diagonalTolerance   = 1e-9
	reciprocalTolerance = 1e-6
)

// Matrix is a square positive reciprocal pairwise-comparison matrix.
// Cell (i,j) holds the judged relative importance of criterion i over
// criterion j; cell (j,i) is maintained as its exact reciprocal.
type Matrix struct {
	order int
	cells [][]float64
}

// NewMatrix returns an order-n matrix with every entry set to 1
// (all pairs judged equally important until judgments are recorded).
func NewMatrix(n int) (*Matrix, error) {
	if n < 2 {
		return nil, &InvalidMatrixError{Reason: fmt.Sprintf("order must be >= 2, got %d", n)}
	}
	cells := make([][]float64, n)
	for i := range cells {
		cells[i] = make([]float64, n)
		for j := range cells[i] {
			cells[i][j] = 1.0
		}
	}
	return &Matrix{order: n, cells: cells}, nil
}

// FromRows builds a matrix from a full 2D judgment array and validates it.
func FromRows(rows [][]float64) (*Matrix, error) {
	n := len(rows)
	if n < 2 {
		return nil, &InvalidMatrixError{Reason: fmt.Sprintf("order must be >= 2, got %d", n)}
	}
	cells := make([][]float64, n)
	for i, row := range rows {
		if len(row) != n {
			return nil, &InvalidMatrixError{Reason: fmt.Sprintf("row %d has %d entries, expected %d", i, len(row), n)}
		}
		cells[i] = make([]float64, n)
		copy(cells[i], row)
	}
	m := &Matrix{order: n, cells: cells}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// SetJudgment records the judged importance of criterion i over criterion j
// and fills (j,i) with the exact reciprocal. Values must lie on the 1–9
// reciprocal scale.
func (m *Matrix) SetJudgment(i, j int, value float64) error {
	if i < 0 || i >= m.order || j < 0 || j >= m.order {
		return &InvalidMatrixError{Reason: fmt.Sprintf("judgment (%d,%d) out of range for order %d", i, j, m.order)}
	}
	if i == j {
		return &InvalidMatrixError{Reason: "cannot judge a criterion against itself"}
	}
	if value < ScaleMin || value > ScaleMax {
		return &InvalidMatrixError{Reason: fmt.Sprintf("judgment %g outside 1/9..9 scale", value)}
	}
	m.cells[i][j] = value
	m.cells[j][i] = 1.0 / value
	return nil
}

// Order returns N, the number of criteria.
func (m *Matrix) Order() int { return m.order }

// At returns the entry at (i,j).
func (m *Matrix) At(i, j int) float64 { return m.cells[i][j] }

// Rows returns a deep copy of the underlying 2D array.
func (m *Matrix) Rows() [][]float64 {
	out := make([][]float64, m.order)
	for i := range out {
		out[i] = make([]float64, m.order)
		copy(out[i], m.cells[i])
	}
	return out
}

// Validate checks the structural invariants: all entries strictly positive,
// diagonal equal to 1, and the reciprocal property a[j][i] == 1/a[i][j].
// A matrix that fails is rejected outright, never silently repaired.
func (m *Matrix) Validate() error {
	for i := 0; i < m.order; i++ {
		for j := 0; j < m.order; j++ {
			v := m.cells[i][j]
			if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
				return &InvalidMatrixError{Reason: fmt.Sprintf("entry (%d,%d) = %g is not strictly positive", i, j, v)}
			}
		}
		if math.Abs(m.cells[i][i]-1.0) > diagonalTolerance {
			return &InvalidMatrixError{Reason: fmt.Sprintf("diagonal entry (%d,%d) = %g, expected 1", i, i, m.cells[i][i])}
		}
	}
	for i := 0; i < m.order; i++ {
		for j := i + 1; j < m.order; j++ {
			if math.Abs(m.cells[i][j]*m.cells[j][i]-1.0) > reciprocalTolerance {
				return &InvalidMatrixError{Reason: fmt.Sprintf("reciprocal property violated at (%d,%d): %g * %g != 1", i, j, m.cells[i][j], m.cells[j][i])}
			}
		}
	}
	return nil
}
