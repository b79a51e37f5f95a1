package tokenizer

// Tokenizer counts and encodes text for model context budgeting.
type Tokenizer interface {
	// Encode converts text into token ids.
	Encode(text string) ([]int, error)

	// Decode converts token ids back into text.
	Decode(ids []int) (string, error)

	// CountTokens returns the number of tokens in the text.
	CountTokens(text string) (int, error)
}
