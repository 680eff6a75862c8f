package embedding

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"unicode"
)

const (
	tokenWeight   = 1.0
	trigramWeight = 0.5
)

// HashProvider is a pure, local embedding built from hashed word tokens and
// character trigrams. Identical text always yields an identical vector, and
// texts sharing words score a positive cosine similarity.
type HashProvider struct {
	dimensions int
}

// NewHashProvider creates a hash embedder with the given output length.
func NewHashProvider(dimensions int) *HashProvider {
	return &HashProvider{dimensions: dimensions}
}

// Embed implements Provider.
func (p *HashProvider) Embed(_ context.Context, text string) ([]float32, error) {
	if p.dimensions <= 0 {
		return nil, errors.New("hash embedding: dimensions must be positive")
	}

	vec := make([]float32, p.dimensions)
	for _, token := range tokenize(text) {
		vec[p.bucket("w:"+token)] += tokenWeight

		runes := []rune(" " + token + " ")
		for i := 0; i+3 <= len(runes); i++ {
			vec[p.bucket("c:"+string(runes[i:i+3]))] += trigramWeight
		}
	}

	// Text without any letters or digits still gets a stable, non-zero vector.
	if isZero(vec) {
		for i, r := range text {
			vec[i%p.dimensions] += float32(r) / 1000
		}
		if isZero(vec) {
			vec[0] = 1
		}
	}

	normalize(vec)
	return vec, nil
}

func (p *HashProvider) bucket(feature string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(feature))
	return int(h.Sum32() % uint32(p.dimensions))
}

// Dimensions implements Provider.
func (p *HashProvider) Dimensions() int {
	return p.dimensions
}

// Name implements Provider.
func (p *HashProvider) Name() string {
	return "hash"
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func isZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
