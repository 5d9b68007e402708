package tokenizer

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	json "github.com/goccy/go-json"
)

// Space markers used by common vocabularies.
const (
	markerSentencePiece = "▁"
	markerByteLevel     = "Ġ"
)

// ErrUnknownText is returned by Encode when a vocabulary has no <unk> token
// and the text contains a character no token covers.
var ErrUnknownText = errors.New("text not covered by vocabulary")

// Vocab is a fixed-vocabulary tokenizer loaded from a HuggingFace
// tokenizer.json. It encodes by greedy longest match rather than replaying
// merges; ids round-trip through Decode all the same.
type Vocab struct {
	encoder map[string]int
	decoder []string
	special map[int]bool
	marker  string
	maxLen  int
	unkID   int
	hasUnk  bool
}

type tokenizerJSON struct {
	Model struct {
		Type     string         `json:"type"`
		Vocab    map[string]int `json:"vocab"`
		UnkToken string         `json:"unk_token"`
	} `json:"model"`
	AddedTokens []struct {
		ID      int    `json:"id"`
		Content string `json:"content"`
		Special bool   `json:"special"`
	} `json:"added_tokens"`
}

// LoadVocab reads a tokenizer.json file.
func LoadVocab(path string) (*Vocab, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseVocab(data)
}

// ParseVocab builds a Vocab from tokenizer.json contents.
func ParseVocab(data []byte) (*Vocab, error) {
	var tj tokenizerJSON
	if err := json.Unmarshal(data, &tj); err != nil {
		return nil, fmt.Errorf("parse tokenizer.json: %w", err)
	}
	if len(tj.Model.Vocab) == 0 {
		return nil, errors.New("tokenizer.json: empty vocabulary")
	}

	v := &Vocab{
		encoder: make(map[string]int, len(tj.Model.Vocab)+len(tj.AddedTokens)),
		special: make(map[int]bool),
	}
	maxID := -1
	add := func(tok string, id int) error {
		if id < 0 {
			return fmt.Errorf("tokenizer.json: negative id for %q", tok)
		}
		v.encoder[tok] = id
		if id > maxID {
			maxID = id
		}
		if n := len(tok); n > v.maxLen {
			v.maxLen = n
		}
		return nil
	}
	var sp, bl int
	for tok, id := range tj.Model.Vocab {
		if err := add(tok, id); err != nil {
			return nil, err
		}
		if strings.HasPrefix(tok, markerSentencePiece) {
			sp++
		} else if strings.HasPrefix(tok, markerByteLevel) {
			bl++
		}
	}
	for _, at := range tj.AddedTokens {
		if err := add(at.Content, at.ID); err != nil {
			return nil, err
		}
		if at.Special {
			v.special[at.ID] = true
		}
	}
	switch {
	case sp > 0 && sp >= bl:
		v.marker = markerSentencePiece
	case bl > 0:
		v.marker = markerByteLevel
	}

	v.decoder = make([]string, maxID+1)
	for tok, id := range v.encoder {
		v.decoder[id] = tok
	}

	unk := tj.Model.UnkToken
	if unk == "" {
		unk = UnkToken
	}
	v.unkID, v.hasUnk = v.encoder[unk]
	return v, nil
}

// VocabSize is one past the largest id.
func (v *Vocab) VocabSize() int { return len(v.decoder) }

// Encode splits text by greedy longest match. Spaces are rewritten to the
// vocabulary's space marker first.
func (v *Vocab) Encode(text string) ([]int, error) {
	if v.marker != "" {
		text = strings.ReplaceAll(text, " ", v.marker)
	}
	var out []int
	for i := 0; i < len(text); {
		end := i + v.maxLen
		if end > len(text) {
			end = len(text)
		}
		matched := false
		for j := end; j > i; j-- {
			if id, ok := v.encoder[text[i:j]]; ok {
				out = append(out, id)
				i = j
				matched = true
				break
			}
		}
		if matched {
			continue
		}
		// byte fallback (<0xNN>) before giving up on the rune
		_, size := utf8.DecodeRuneInString(text[i:])
		if ids, ok := v.byteFallback(text[i : i+size]); ok {
			out = append(out, ids...)
		} else if v.hasUnk {
			out = append(out, v.unkID)
		} else {
			return nil, fmt.Errorf("%w: %q at byte %d", ErrUnknownText, text[i:i+size], i)
		}
		i += size
	}
	return out, nil
}

func (v *Vocab) byteFallback(s string) ([]int, bool) {
	ids := make([]int, 0, len(s))
	for i := 0; i < len(s); i++ {
		id, ok := v.encoder[fmt.Sprintf("<0x%02X>", s[i])]
		if !ok {
			return nil, false
		}
		ids = append(ids, id)
	}
	return ids, true
}

// Decode concatenates token strings, skipping special tokens and mapping
// space markers and <0xNN> byte tokens back. A trailing incomplete UTF-8
// sequence is withheld.
func (v *Vocab) Decode(tokens []int) (string, error) {
	var buf []byte
	for _, id := range tokens {
		if id < 0 || id >= len(v.decoder) {
			return "", fmt.Errorf("token id %d out of range", id)
		}
		if v.special[id] {
			continue
		}
		tok := v.decoder[id]
		if b, ok := parseByteToken(tok); ok {
			buf = append(buf, b)
			continue
		}
		if v.marker != "" {
			tok = strings.ReplaceAll(tok, v.marker, " ")
		}
		buf = append(buf, tok...)
	}
	return string(trimPartialRune(buf)), nil
}

func (v *Vocab) TokenID(token string) (int, bool) {
	id, ok := v.encoder[token]
	return id, ok
}

func parseByteToken(tok string) (byte, bool) {
	if len(tok) != 6 || !strings.HasPrefix(tok, "<0x") || tok[5] != '>' {
		return 0, false
	}
	n, err := strconv.ParseUint(tok[3:5], 16, 8)
	if err != nil {
		return 0, false
	}
	return byte(n), true
}
