// Package ahp implements the pairwise-comparison engine: it converts a
// stakeholder's reciprocal judgment matrix into a normalized criteria
// weight vector plus a consistency ratio measuring how coherent the
// judgments are. All operations are pure and deterministic.
package ahp

import "math"

// DefaultConsistencyThreshold is the conventional acceptability bound for
// the consistency ratio. Some organizations relax this to 0.15 for larger
// matrices; it is configurable for that reason.
const DefaultConsistencyThreshold = 0.1

// Result is the output of a weight derivation.
type Result struct {
	// Weights is the normalized weight vector, parallel to the criteria
	// list the matrix was built from. Sums to 1.0 within 1e-6.
	Weights []float64 `json:"weights"`
	// ConsistencyRatio is CI/RI; 0 means perfectly consistent. Always >= 0.
	ConsistencyRatio float64 `json:"consistency_ratio"`
	// LambdaMax is the principal eigenvalue estimate, surfaced for
	// explainability alongside the derived CI.
	LambdaMax        float64 `json:"lambda_max"`
	ConsistencyIndex float64 `json:"consistency_index"`
}

// Engine derives weight vectors from comparison matrices. It carries the
// random-index table and the acceptance threshold as injected configuration
// rather than package globals.
type Engine struct {
	randomIndex map[int]float64
	threshold   float64
}

// NewEngine creates an Engine. riExtensions extends the built-in Saaty
// random-index table (orders > 10); threshold <= 0 falls back to the
// conventional 0.1.
func NewEngine(riExtensions map[int]float64, threshold float64) *Engine {
	if threshold <= 0 {
		threshold = DefaultConsistencyThreshold
	}
	return &Engine{
		randomIndex: RandomIndexTable(riExtensions),
		threshold:   threshold,
	}
}

// DeriveWeights computes the normalized weight vector and consistency ratio
// for a validated positive reciprocal matrix using the geometric-mean
// method. Same matrix in, same result out, no hidden state.
func (e *Engine) DeriveWeights(m *Matrix) (*Result, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	n := m.Order()
	if _, ok := e.randomIndex[n]; !ok {
		return nil, &UnsupportedMatrixSizeError{Order: n, MaxOrder: e.maxOrder()}
	}

	// Geometric mean of each row, then normalize so the weights sum to 1.
	gm := make([]float64, n)
	var gmSum float64
	for i := 0; i < n; i++ {
		product := 1.0
		for j := 0; j < n; j++ {
			product *= m.At(i, j)
		}
		gm[i] = math.Pow(product, 1.0/float64(n))
		gmSum += gm[i]
	}
	weights := make([]float64, n)
	for i := range weights {
		weights[i] = gm[i] / gmSum
	}

	// Principal eigenvalue estimate: average of (M·w)_i / w_i. Entries are
	// strictly positive, so every weight is nonzero.
	var lambdaMax float64
	for i := 0; i < n; i++ {
		var rowDot float64
		for j := 0; j < n; j++ {
			rowDot += m.At(i, j) * weights[j]
		}
		lambdaMax += rowDot / weights[i]
	}
	lambdaMax /= float64(n)

	result := &Result{
		Weights:   weights,
		LambdaMax: lambdaMax,
	}

	// With only 2 criteria a reciprocal matrix cannot be inconsistent.
	if n <= 2 {
		return result, nil
	}

	ci := (lambdaMax - float64(n)) / (float64(n) - 1)
	if ci < 0 {
		// Numerical noise; a reciprocal matrix has lambda_max >= n.
		ci = 0
	}
	result.ConsistencyIndex = ci

	ri := e.randomIndex[n]
	if ri > 0 {
		result.ConsistencyRatio = ci / ri
	}
	return result, nil
}

// IsAcceptable reports whether a consistency ratio is below the configured
// acceptance threshold. The engine never blocks on an unacceptable ratio
// itself; whether to use the weights anyway is the caller's policy.
func (e *Engine) IsAcceptable(consistencyRatio float64) bool {
	return consistencyRatio < e.threshold
}

// Threshold returns the configured acceptance threshold.
func (e *Engine) Threshold() float64 { return e.threshold }

func (e *Engine) maxOrder() int {
	max := 0
	for n := range e.randomIndex {
		if n > max {
			max = n
		}
	}
	return max
}
