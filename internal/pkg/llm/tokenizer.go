package llm

import (
	"sync"

	"github.com/tiktoken-go/tokenizer"
)

var (
	codec     tokenizer.Codec
	codecOnce sync.Once
	codecErr  error
)

func getCodec() (tokenizer.Codec, error) {
	codecOnce.Do(func() {
		codec, codecErr = tokenizer.Get(tokenizer.Cl100kBase)
	})
	return codec, codecErr
}

// EstimateTokens cl100k_base 近似 token 数，出错时返回 0
func EstimateTokens(text string) int {
	c, err := getCodec()
	if err != nil {
		return 0
	}
	ids, _, err := c.Encode(text)
	if err != nil {
		return 0
	}
	return len(ids)
}

// TruncateToTokens 超过 maxTokens 时按 token 截断；maxTokens<=0 不截断
func TruncateToTokens(text string, maxTokens int) (string, bool) {
	if maxTokens <= 0 {
		return text, false
	}
	c, err := getCodec()
	if err != nil {
		return text, false
	}
	ids, _, err := c.Encode(text)
	if err != nil || len(ids) <= maxTokens {
		return text, false
	}
	truncated, err := c.Decode(ids[:maxTokens])
	if err != nil {
		return text, false
	}
	return truncated, true
}
