// Marquee - AI Catalog Recommendation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package semantic

import (
	"hash/fnv"
	"math"
	"strings"
)

// Embedder turns query text into a unit-length vector.
type Embedder interface {
	Embed(text string) []float32
	Dimensions() int
}

// HashEmbedder is a feature-hashing embedder over word unigrams, word
// bigrams and character trigrams. It needs no model and is deterministic,
// so identical normalized queries always have similarity 1.
type HashEmbedder struct {
	dims int
}

// NewHashEmbedder creates a HashEmbedder with dims dimensions (minimum 16).
func NewHashEmbedder(dims int) *HashEmbedder {
	if dims < 16 {
		dims = 16
	}
	return &HashEmbedder{dims: dims}
}

// Dimensions implements Embedder.
func (h *HashEmbedder) Dimensions() int { return h.dims }

// Embed implements Embedder.
func (h *HashEmbedder) Embed(text string) []float32 {
	vec := make([]float32, h.dims)
	words := strings.Fields(text)

	for i, w := range words {
		h.add(vec, "w:"+w, 1.0)
		if i > 0 {
			h.add(vec, "b:"+words[i-1]+" "+w, 0.7)
		}
		padded := " " + w + " "
		runes := []rune(padded)
		for j := 0; j+3 <= len(runes); j++ {
			h.add(vec, "c:"+string(runes[j:j+3]), 0.5)
		}
	}
	normalize(vec)
	return vec
}

// add hashes feature into a bucket; a second hash bit picks the sign so
// collisions tend to cancel.
func (h *HashEmbedder) add(vec []float32, feature string, weight float32) {
	hasher := fnv.New64a()
	_, _ = hasher.Write([]byte(feature))
	sum := hasher.Sum64()
	idx := int(sum % uint64(h.dims))
	if (sum>>63)&1 == 1 {
		weight = -weight
	}
	vec[idx] += weight
}

func normalize(vec []float32) {
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return
	}
	inv := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= inv
	}
}

// Cosine returns the cosine similarity of two vectors of equal length.
// Unit vectors make this a dot product; lengths are still divided out so
// callers may pass unnormalized vectors.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
