package generate

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Defaults applied when the corresponding Config fields are unset.
const (
	DefaultMaxSteps    = 64
	DefaultStepCeiling = 256
	DefaultEOSToken    = "</s>"
)

// StopReason tells why a run ended.
type StopReason string

const (
	StopEOS        StopReason = "eos"
	StopMaxSteps   StopReason = "max_steps"
	StopDisconnect StopReason = "disconnected"
	StopCancelled  StopReason = "cancelled"
	StopEmpty      StopReason = "empty_prompt"
	StopError      StopReason = "error"
)

// Session is one generation request. ID is opaque and only echoed back.
type Session struct {
	ID       string
	Prompt   string
	MaxSteps int
}

// Result is the authoritative outcome of a run, independent of whether the
// stream consumer received every chunk.
type Result struct {
	SessionID  string
	Text       string
	StopReason StopReason
	// Steps counts forward passes.
	Steps            int
	PromptTokens     int
	CompletionTokens int
	// Chunks counts text chunks accepted by the sink.
	Chunks     int
	HandleWait time.Duration
	Duration   time.Duration
}

// Config parameterizes an Orchestrator.
type Config struct {
	Tokenizer       Tokenizer
	Sampling        SamplingConfig
	DefaultMaxSteps int
	StepCeiling     int
	EOSToken        string
	Logger          zerolog.Logger
}

// Orchestrator runs decode loops against the engine behind a Handle.
type Orchestrator struct {
	handle   *Handle
	tok      Tokenizer
	sampling SamplingConfig
	defSteps int
	ceiling  int
	eosToken string
	log      zerolog.Logger
}

// NewOrchestrator applies defaults to cfg.
func NewOrchestrator(h *Handle, cfg Config) *Orchestrator {
	o := &Orchestrator{
		handle:   h,
		tok:      cfg.Tokenizer,
		sampling: cfg.Sampling,
		defSteps: cfg.DefaultMaxSteps,
		ceiling:  cfg.StepCeiling,
		eosToken: cfg.EOSToken,
		log:      cfg.Logger,
	}
	if o.ceiling <= 0 {
		o.ceiling = DefaultStepCeiling
	}
	if o.defSteps <= 0 {
		o.defSteps = DefaultMaxSteps
	}
	if o.eosToken == "" {
		o.eosToken = DefaultEOSToken
	}
	return o
}

// ClampSteps resolves a requested step budget: non-positive means the
// default, anything above the ceiling is cut to it.
func (o *Orchestrator) ClampSteps(n int) int {
	if n <= 0 {
		n = o.defSteps
	}
	if n > o.ceiling {
		n = o.ceiling
	}
	return n
}

// Run generates text for sess, pushing chunks to sink as soon as they become
// visible. The step budget is the only bound on its duration; ctx is checked
// at the top of every step, before the next forward pass.
//
// Every path ends with a ChunkDone push unless the sink reported closed.
// Encoding, decoding, inference and lock failures push one ChunkError first
// and are returned with the partial result.
func (o *Orchestrator) Run(ctx context.Context, sess Session, sink Sink) (Result, error) {
	start := time.Now()
	res := Result{SessionID: sess.ID}
	log := o.log.With().Str("session_id", sess.ID).Logger()
	maxSteps := o.ClampSteps(sess.MaxSteps)
	// Terminal markers are delivered even after caller cancellation.
	markCtx := context.WithoutCancel(ctx)

	engine, release, err := o.handle.Acquire(ctx)
	res.HandleWait = time.Since(start)
	if err != nil {
		if !IsLock(err) && ctx.Err() != nil {
			res.StopReason = StopCancelled
			o.complete(markCtx, sink, &res, start, log)
			return res, nil
		}
		return o.fail(markCtx, sink, res, start, log, err)
	}
	defer release()
	log.Debug().Dur("wait", res.HandleWait).Msg("model handle acquired")

	if r, ok := engine.(Resetter); ok {
		r.ResetState()
	}

	tokens, err := o.tok.Encode(sess.Prompt)
	if err != nil {
		return o.fail(markCtx, sink, res, start, log, classify(KindEncoding, "encode prompt", err))
	}
	res.PromptTokens = len(tokens)
	eos, hasEOS := o.tok.TokenID(o.eosToken)
	if !hasEOS {
		log.Warn().Str("eos_token", o.eosToken).Msg("eos token not in vocabulary, relying on step budget")
	}
	if len(tokens) == 0 {
		res.StopReason = StopEmpty
		o.complete(markCtx, sink, &res, start, log)
		return res, nil
	}

	var (
		diff    textDiff
		text    strings.Builder
		pos     int
		sampler = NewSampler(o.sampling)
	)
	res.StopReason = StopMaxSteps
	for step := 0; step < maxSteps; step++ {
		if ctx.Err() != nil {
			res.StopReason = StopCancelled
			break
		}

		// The whole prompt on the first step, then only the newest token:
		// the engine keeps earlier positions in its own state.
		window := tokens
		if step > 0 {
			window = tokens[len(tokens)-1:]
		}
		logits, err := engine.Forward(window, pos)
		res.Steps++
		if err != nil {
			res.Text = text.String()
			return o.fail(markCtx, sink, res, start, log, classify(KindInference, "forward", err))
		}
		pos += len(window)

		next, err := sampler.Sample(logits)
		if err != nil {
			res.Text = text.String()
			return o.fail(markCtx, sink, res, start, log, classify(KindInference, "sample", err))
		}
		tokens = append(tokens, next)
		res.CompletionTokens++

		full, err := o.tok.Decode(tokens)
		if err != nil {
			res.Text = text.String()
			return o.fail(markCtx, sink, res, start, log, classify(KindDecoding, "decode tokens", err))
		}
		log.Debug().Int("step", step).Int("text_len", len(full)).Msg("decode step")

		if chunk := diff.next(full); chunk != "" {
			err := sink.Push(ctx, Chunk{Kind: ChunkText, Text: chunk})
			if errors.Is(err, ErrSinkClosed) {
				// Nobody reads the stream anymore; the chunk still counts.
				text.WriteString(chunk)
				log.Info().Int("step", step).Msg("client disconnected, stopping generation")
				res.StopReason = StopDisconnect
				break
			}
			if err != nil {
				// Cancelled while the chunk waited for room: it was never
				// delivered, so it is not part of the result either.
				res.StopReason = StopCancelled
				break
			}
			text.WriteString(chunk)
			res.Chunks++
			diff.commit(len(full))
		}

		if hasEOS && next == eos {
			res.StopReason = StopEOS
			break
		}
	}
	res.Text = text.String()
	o.complete(markCtx, sink, &res, start, log)
	return res, nil
}

// complete pushes the completion marker unless the consumer is gone.
func (o *Orchestrator) complete(ctx context.Context, sink Sink, res *Result, start time.Time, log zerolog.Logger) {
	if res.StopReason != StopDisconnect {
		_ = sink.Push(ctx, Chunk{Kind: ChunkDone})
	}
	res.Duration = time.Since(start)
	log.Info().
		Str("stop_reason", string(res.StopReason)).
		Int("steps", res.Steps).
		Int("completion_tokens", res.CompletionTokens).
		Dur("dur", res.Duration).
		Msg("generation finished")
}

// fail surfaces err as one error chunk followed by the completion marker.
func (o *Orchestrator) fail(ctx context.Context, sink Sink, res Result, start time.Time, log zerolog.Logger, err error) (Result, error) {
	res.StopReason = StopError
	res.Duration = time.Since(start)
	if perr := sink.Push(ctx, Chunk{Kind: ChunkError, Text: err.Error(), Err: err}); !errors.Is(perr, ErrSinkClosed) {
		_ = sink.Push(ctx, Chunk{Kind: ChunkDone})
	}
	log.Error().Err(err).Int("steps", res.Steps).Dur("dur", res.Duration).Msg("generation failed")
	return res, err
}

// classify wraps err with kind unless it already carries one.
func classify(kind Kind, op string, err error) error {
	if _, ok := KindOf(err); ok {
		return err
	}
	return NewError(kind, op, err)
}
