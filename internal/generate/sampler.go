package generate

import (
	"errors"
	"math"
	"math/rand"
	"sort"
)

// SamplingConfig is the process-wide sampling policy. It is not per request.
type SamplingConfig struct {
	// Temperature <= 0 selects the argmax.
	Temperature float32
	// TopP keeps the smallest set of tokens whose probability mass reaches TopP.
	TopP float32
	// TopK limits candidates before TopP. Zero disables it.
	TopK int
	Seed int64
}

// DefaultSampling mirrors the policy the service has always shipped with.
func DefaultSampling() SamplingConfig {
	return SamplingConfig{Temperature: 0.7, TopP: 0.9, Seed: 42}
}

// Sampler draws token ids from logits. A Sampler is owned by one run.
type Sampler struct {
	cfg  SamplingConfig
	rng  *rand.Rand
	idx  []int
	prob []float64
}

// NewSampler seeds a sampler; equal configs yield equal draws for equal logits.
func NewSampler(cfg SamplingConfig) *Sampler {
	if cfg.TopP <= 0 || cfg.TopP > 1 {
		cfg.TopP = 1
	}
	if cfg.TopK < 0 {
		cfg.TopK = 0
	}
	return &Sampler{cfg: cfg, rng: rand.New(rand.NewSource(cfg.Seed))}
}

// Sample picks the next token id.
func (s *Sampler) Sample(logits []float32) (int, error) {
	if len(logits) == 0 {
		return 0, errors.New("empty logits")
	}
	for _, v := range logits {
		if math.IsNaN(float64(v)) {
			return 0, errors.New("logits contain NaN")
		}
	}
	if s.cfg.Temperature <= 0 {
		return argmax(logits), nil
	}

	if cap(s.idx) < len(logits) {
		s.idx = make([]int, len(logits))
		s.prob = make([]float64, len(logits))
	}
	idx := s.idx[:len(logits)]
	prob := s.prob[:len(logits)]

	// Softmax over logits / T with max subtraction for stability.
	invT := 1 / float64(s.cfg.Temperature)
	maxv := math.Inf(-1)
	for _, v := range logits {
		if x := float64(v) * invT; x > maxv {
			maxv = x
		}
	}
	var sum float64
	for i, v := range logits {
		e := math.Exp(float64(v)*invT - maxv)
		prob[i] = e
		idx[i] = i
		sum += e
	}
	if sum == 0 || math.IsInf(sum, 0) {
		return argmax(logits), nil
	}
	for i := range prob {
		prob[i] /= sum
	}

	sort.SliceStable(idx, func(a, b int) bool { return prob[idx[a]] > prob[idx[b]] })
	n := len(idx)
	if s.cfg.TopK > 0 && s.cfg.TopK < n {
		n = s.cfg.TopK
	}
	var mass float64
	cut := n
	for i := 0; i < n; i++ {
		mass += prob[idx[i]]
		if mass >= float64(s.cfg.TopP) {
			cut = i + 1
			break
		}
	}
	cands := idx[:cut]
	var total float64
	for _, id := range cands {
		total += prob[id]
	}

	r := s.rng.Float64() * total
	for _, id := range cands {
		r -= prob[id]
		if r <= 0 {
			return id, nil
		}
	}
	return cands[len(cands)-1], nil
}

func argmax(v []float32) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}
