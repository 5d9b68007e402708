// Package tokenizer holds the text/token converters served by chatd.
package tokenizer

import "fmt"

// Special token strings shared by every tokenizer in this package.
const (
	UnkToken = "<unk>"
	BOSToken = "<s>"
	EOSToken = "</s>"
)

// Ids of the special tokens in Byte. Byte value b maps to b+byteBase.
const (
	byteUnk  = 0
	byteBOS  = 1
	byteEOS  = 2
	byteBase = 3
)

// Byte is a byte-level tokenizer with three special tokens. Every input
// encodes losslessly, so Encode never fails.
type Byte struct{}

// NewByte returns a byte-level tokenizer.
func NewByte() *Byte { return &Byte{} }

// VocabSize is the number of distinct ids Byte produces.
func (*Byte) VocabSize() int { return byteBase + 256 }

func (*Byte) Encode(text string) ([]int, error) {
	out := make([]int, len(text))
	for i := 0; i < len(text); i++ {
		out[i] = int(text[i]) + byteBase
	}
	return out, nil
}

// Decode renders tokens, skipping special ids. A trailing incomplete UTF-8
// sequence is withheld until the tokens completing it arrive.
func (b *Byte) Decode(tokens []int) (string, error) {
	buf := make([]byte, 0, len(tokens))
	for _, id := range tokens {
		switch {
		case id < 0 || id >= b.VocabSize():
			return "", fmt.Errorf("token id %d out of range", id)
		case id < byteBase:
			continue
		}
		buf = append(buf, byte(id-byteBase))
	}
	return string(trimPartialRune(buf)), nil
}

func (*Byte) TokenID(token string) (int, bool) {
	switch token {
	case UnkToken:
		return byteUnk, true
	case BOSToken:
		return byteBOS, true
	case EOSToken:
		return byteEOS, true
	}
	return 0, false
}
