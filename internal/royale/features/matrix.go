package features

// FeatureMatrix is a dense row-major M×K matrix of encoded cards.
// It is read-only once built.
type FeatureMatrix struct {
	rows int
	cols int
	data []float64
}

// Rows returns M.
func (m *FeatureMatrix) Rows() int {
	return m.rows
}

// Cols returns K.
func (m *FeatureMatrix) Cols() int {
	return m.cols
}

// Row returns row i. The slice aliases the matrix storage and must not be modified.
func (m *FeatureMatrix) Row(i int) []float64 {
	return m.data[i*m.cols : (i+1)*m.cols : (i+1)*m.cols]
}

// At returns the element at row i, column j.
func (m *FeatureMatrix) At(i, j int) float64 {
	return m.data[i*m.cols+j]
}

// Select returns the rows at the given indices, in the given order.
func (m *FeatureMatrix) Select(indices []int) [][]float64 {
	out := make([][]float64, len(indices))
	for i, idx := range indices {
		out[i] = m.Row(idx)
	}
	return out
}
