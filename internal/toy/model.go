// Package toy is a small deterministic language model that lets chatd run end
// to end without an external inference engine.
package toy

import (
	"fmt"
	"math"
	"math/rand"

	"chatd/internal/generate"
)

// LM is a seeded recurrent model: an embedding matrix folds each token into a
// hidden state held by the per-session Cache, and a projection matrix maps
// that state to vocabulary logits.
type LM struct {
	Vocab  int
	Hidden int

	emb  []float32 // [Vocab x Hidden]
	w    []float32 // [Hidden x Vocab]
	bias []float32 // [Vocab]
}

// NewLM fills the weights deterministically from seed.
func NewLM(vocab, hidden int, seed int64) *LM {
	m := &LM{
		Vocab:  vocab,
		Hidden: hidden,
		emb:    make([]float32, vocab*hidden),
		w:      make([]float32, hidden*vocab),
		bias:   make([]float32, vocab),
	}
	fillRand(m.emb, seed+11)
	fillRand(m.w, seed+23)
	return m
}

// SetBias adds b to the logit of token id on every forward pass.
func (m *LM) SetBias(id int, b float32) {
	if id >= 0 && id < m.Vocab {
		m.bias[id] = b
	}
}

// Cache is the recurrent state of one session.
type Cache struct {
	h []float32
	n int
}

func (c *Cache) Len() int { return c.n }

func (m *LM) NewCache() generate.KVCache {
	return &Cache{h: make([]float32, m.Hidden)}
}

// ForwardWithCache folds tokens into cache and returns the logits for the
// last position. pos must equal the number of positions already in cache.
func (m *LM) ForwardWithCache(kv generate.KVCache, tokens []int, pos int) ([]float32, error) {
	c, ok := kv.(*Cache)
	if !ok {
		return nil, fmt.Errorf("toy: unexpected cache type %T", kv)
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("toy: empty window")
	}
	if pos != c.n {
		return nil, fmt.Errorf("toy: position %d does not match cache length %d", pos, c.n)
	}
	for _, tok := range tokens {
		if tok < 0 || tok >= m.Vocab {
			return nil, fmt.Errorf("toy: token %d outside vocabulary of %d", tok, m.Vocab)
		}
	}

	for _, tok := range tokens {
		row := m.emb[tok*m.Hidden : (tok+1)*m.Hidden]
		for i := range c.h {
			c.h[i] = float32(math.Tanh(float64(0.5*c.h[i] + row[i])))
		}
		c.n++
	}

	logits := make([]float32, m.Vocab)
	for j := 0; j < m.Vocab; j++ {
		sum := m.bias[j]
		for i := 0; i < m.Hidden; i++ {
			sum += c.h[i] * m.w[i*m.Vocab+j]
		}
		logits[j] = sum
	}
	return logits, nil
}

func fillRand(dst []float32, seed int64) {
	r := rand.New(rand.NewSource(seed))
	for i := range dst {
		dst[i] = float32(r.NormFloat64())
	}
}
