package generate

// textDiff turns a growing decoded string into non-overlapping chunks.
// Boundaries come from byte lengths only, never from token boundaries, so the
// concatenation of every emitted chunk equals the final decoded text.
type textDiff struct {
	// watermark is the byte length of text already handed out. It never decreases.
	watermark int
}

// next returns the suffix of full beyond the watermark. It is empty when a
// decode step did not enlarge the visible text.
func (d *textDiff) next(full string) string {
	if len(full) <= d.watermark {
		return ""
	}
	return full[d.watermark:]
}

// commit moves the watermark to n when n is ahead of it.
func (d *textDiff) commit(n int) {
	if n > d.watermark {
		d.watermark = n
	}
}
