package tokenizer

import (
	"context"
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

const defaultEncoding = "cl100k_base"

// TiktokenCounter counts BPE tokens with tiktoken-go.
type TiktokenCounter struct {
	encoding string
	tke      *tiktoken.Tiktoken
}

// NewTiktokenCounter loads modelOrEncoding, trying it first as an encoding name
// and then as a model name. Empty means cl100k_base.
func NewTiktokenCounter(modelOrEncoding string) (*TiktokenCounter, error) {
	if modelOrEncoding == "" {
		modelOrEncoding = defaultEncoding
	}
	tke, err := tiktoken.GetEncoding(modelOrEncoding)
	if err != nil {
		tke, err = tiktoken.EncodingForModel(modelOrEncoding)
		if err != nil {
			return nil, &Error{Encoding: modelOrEncoding, Err: fmt.Errorf("load encoding: %w", err)}
		}
	}
	return &TiktokenCounter{encoding: modelOrEncoding, tke: tke}, nil
}

// CountTokens returns the number of BPE tokens in text.
func (c *TiktokenCounter) CountTokens(_ context.Context, text string) (int, error) {
	if c.tke == nil {
		return 0, &Error{Encoding: c.encoding, Err: fmt.Errorf("encoder not initialized")}
	}
	return len(c.tke.Encode(text, nil, nil)), nil
}

// Name returns the encoding or model name the counter was built for.
func (c *TiktokenCounter) Name() string {
	return c.encoding
}
