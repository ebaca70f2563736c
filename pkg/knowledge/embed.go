package knowledge

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// Embedder turns texts into vectors, one per text, in order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// DefaultHashDimensions is the vector size of HashEmbedder.
const DefaultHashDimensions = 256

// HashEmbedder is a deterministic bag-of-words embedder.
// It needs no network access, so it backs offline indexes and tests.
type HashEmbedder struct {
	Dimensions int
}

// Embed hashes every lowercased word into a bucket and L2-normalizes the counts.
func (h HashEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	dims := h.Dimensions
	if dims <= 0 {
		dims = DefaultHashDimensions
	}

	out := make([][]float64, len(texts))
	for i, text := range texts {
		vec := make([]float64, dims)
		for _, word := range tokenize(text) {
			hasher := fnv.New32a()
			_, _ = hasher.Write([]byte(word))
			vec[hasher.Sum32()%uint32(dims)]++
		}
		normalize(vec)
		out[i] = vec
	}
	return out, nil
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

func normalize(vec []float64) {
	var sum float64
	for _, v := range vec {
		sum += v * v
	}
	if sum == 0 {
		return
	}
	norm := math.Sqrt(sum)
	for i := range vec {
		vec[i] /= norm
	}
}

// cosineSimilarity returns 0 for mismatched or zero vectors.
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
