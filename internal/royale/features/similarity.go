package features

import "math"

// Mean returns the component-wise arithmetic mean of vectors, or nil when
// vectors is empty. All vectors must share the same length.
func Mean(vectors [][]float64) []float64 {
	if len(vectors) == 0 {
		return nil
	}

	mean := make([]float64, len(vectors[0]))
	for _, v := range vectors {
		for i := range mean {
			mean[i] += v[i]
		}
	}

	n := float64(len(vectors))
	for i := range mean {
		mean[i] /= n
	}
	return mean
}

// CosineSimilarity computes the cosine similarity between two vectors.
// Mismatched lengths and zero-norm vectors yield 0.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	sim := dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
	switch {
	case math.IsNaN(sim):
		return 0
	case sim > 1:
		return 1
	case sim < -1:
		return -1
	}
	return sim
}

// Similarity compares the mean of the selected vectors with a candidate vector.
// An empty selection has similarity 0. Callers deduplicate selected vectors;
// duplicates weight the mean.
func Similarity(selected [][]float64, candidate []float64) float64 {
	if len(selected) == 0 {
		return 0
	}
	return CosineSimilarity(Mean(selected), candidate)
}
