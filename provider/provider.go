package provider

import (
	"context"

	"github.com/sweetpotato0/ragguard/message"
)

// LLM defines the interface every chat-model provider implements.
// Implementations must be safe for sequential reuse within one run and for
// concurrent use across runs; they never mutate the messages they receive.
type LLM interface {
	// Generate produces a single assistant message for the conversation.
	Generate(ctx context.Context, messages []*message.Message) (*message.Message, error)

	// SetTemperature updates the temperature setting for generation
	SetTemperature(temp float64)

	// SetMaxTokens updates the maximum tokens limit for generation
	SetMaxTokens(max int64)

	// SetModel updates the model to use for generation
	SetModel(model string)
}
