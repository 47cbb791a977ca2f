package ahp

import "fmt"

// InvalidMatrixError reports a comparison matrix that violates a structural
// invariant (not square, non-positive entry, diagonal != 1, broken
// reciprocal property). The math is undefined on such a matrix, so callers
// must fix the input; there is nothing to retry.
type InvalidMatrixError struct {
	Reason string
}

func (e *InvalidMatrixError) Error() string {
	return "invalid comparison matrix: " + e.Reason
}

// UnsupportedMatrixSizeError reports a matrix order outside the random-index
// table's domain. Callers can reduce the criteria count or supply extended
// table entries via configuration.
type UnsupportedMatrixSizeError struct {
	Order    int
	MaxOrder int
}

func (e *UnsupportedMatrixSizeError) Error() string {
	return fmt.Sprintf("matrix order %d exceeds random-index table (max %d)", e.Order, e.MaxOrder)
}
