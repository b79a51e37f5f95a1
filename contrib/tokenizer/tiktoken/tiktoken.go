package tiktoken

import (
	"github.com/pkoukk/tiktoken-go"
)

// Tokenizer implements tokenizer.Tokenizer on top of the tiktoken BPE codecs.
type Tokenizer struct {
	enc *tiktoken.Tiktoken
}

// New resolves a codec by model name, falling back to encoding name.
func New(name string) (*Tokenizer, error) {
	enc, err := tiktoken.EncodingForModel(name)
	if err != nil {
		enc, err = tiktoken.GetEncoding(name)
		if err != nil {
			return nil, err
		}
	}
	return &Tokenizer{enc: enc}, nil
}

// Encode converts text into token ids.
func (t *Tokenizer) Encode(text string) ([]int, error) {
	return t.enc.Encode(text, nil, nil), nil
}

// Decode converts token ids back into text.
func (t *Tokenizer) Decode(ids []int) (string, error) {
	return t.enc.Decode(ids), nil
}

// CountTokens returns the number of tokens in the text.
func (t *Tokenizer) CountTokens(text string) (int, error) {
	ids, err := t.Encode(text)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}
