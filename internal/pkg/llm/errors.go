package llm

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrAuthConfiguration 未配置模型服务凭据，属于部署问题
	ErrAuthConfiguration = errors.New("LLM API key is not configured")
	ErrRateLimited       = errors.New("rate limit exceeded")
	ErrQuotaExhausted    = errors.New("AI credits exhausted")
	ErrGenerationFailed  = errors.New("AI generation failed")
)

// GenerationFailedError 其他非 2xx 状态
type GenerationFailedError struct {
	StatusCode int
}

func (e *GenerationFailedError) Error() string {
	return fmt.Sprintf("AI generation failed: %d", e.StatusCode)
}

func (e *GenerationFailedError) Is(target error) bool {
	return target == ErrGenerationFailed
}

// statusError 将上游状态码映射为错误
func statusError(code int) error {
	switch code {
	case http.StatusTooManyRequests:
		return ErrRateLimited
	case http.StatusPaymentRequired:
		return ErrQuotaExhausted
	default:
		return &GenerationFailedError{StatusCode: code}
	}
}
