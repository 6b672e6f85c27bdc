package stream

import (
	"errors"
	"fmt"
)

// ErrStreamInterrupted 服务端发出 error 事件或连接在终止帧前断开
var ErrStreamInterrupted = errors.New("stream interrupted")

// StreamError 流中断错误，Partial 为中断前已累积的内容
type StreamError struct {
	Message string
	Partial string
	Cause   error
}

func (e *StreamError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *StreamError) Is(target error) bool {
	return target == ErrStreamInterrupted
}

func (e *StreamError) Unwrap() error {
	return e.Cause
}
