package generate

// Tokenizer converts between text and token ids.
type Tokenizer interface {
	// Encode tokenizes text. An empty result is valid.
	Encode(text string) ([]int, error)
	// Decode renders the full token sequence back to text.
	Decode(tokens []int) (string, error)
	// TokenID looks up a token string in the vocabulary.
	TokenID(token string) (int, bool)
}

// Engine computes next-token logits. Forward receives the context window for
// this step and the number of tokens already folded into the engine's state,
// and returns logits over the vocabulary for the final position.
type Engine interface {
	Forward(tokens []int, pos int) ([]float32, error)
}

// Resetter is implemented by engines that embed recurrent state (a KV cache)
// which must be cleared before a new session uses them.
type Resetter interface {
	ResetState()
}

// KVCache is an engine-owned recurrent state supplied per session.
type KVCache interface {
	// Len is the number of positions held by the cache.
	Len() int
}

// CachedEngine is an engine whose cache is created by the caller and passed
// to every forward call. Wrap it with WithCache to serve it as an Engine.
type CachedEngine interface {
	NewCache() KVCache
	ForwardWithCache(cache KVCache, tokens []int, pos int) ([]float32, error)
}

// WithCache adapts a CachedEngine to Engine. The adapter holds one cache at a
// time; ResetState replaces it with a fresh one.
func WithCache(e CachedEngine) Engine {
	return &cacheEngine{inner: e, cache: e.NewCache()}
}

type cacheEngine struct {
	inner CachedEngine
	cache KVCache
}

func (c *cacheEngine) Forward(tokens []int, pos int) ([]float32, error) {
	return c.inner.ForwardWithCache(c.cache, tokens, pos)
}

func (c *cacheEngine) ResetState() { c.cache = c.inner.NewCache() }
